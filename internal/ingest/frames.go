package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"math"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// maxFrameLine bounds a single JSON frame line. Capture frames carry
// full rosters and routinely exceed bufio's default token size.
const maxFrameLine = 1 << 20

// Vec3 is a 3D vector as emitted by the capture client.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Magnitude returns the Euclidean norm of v.
func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// FramePlayer is one player's kinematic state within a frame.
type FramePlayer struct {
	UserID   string `json:"userid"`
	Position Vec3   `json:"position"`
	Velocity Vec3   `json:"velocity"`
}

// FrameTeam groups the players on one side.
type FrameTeam struct {
	Players []FramePlayer `json:"players"`
}

// Frame is one capture snapshot of a session.
type Frame struct {
	SessionID string      `json:"sessionid"`
	Time      float64     `json:"game_clock"`
	Teams     []FrameTeam `json:"teams"`
}

type playerKey struct {
	sessionID string
	userID    string
}

// playerState carries the finite-difference history for one player.
type playerState struct {
	lastVelocity Vec3
	lastAccel    Vec3
	hasAccel     bool
}

// FrameProcessor differences per-player velocity into acceleration and
// acceleration into jerk magnitude across consecutive frames. The
// differences are not normalized by frame spacing; uniform frame
// intervals are assumed, matching the capture pipeline.
type FrameProcessor struct {
	states    map[playerKey]*playerState
	malformed int
}

// NewFrameProcessor creates an empty processor.
func NewFrameProcessor() *FrameProcessor {
	return &FrameProcessor{states: make(map[playerKey]*playerState)}
}

// ProcessFrame folds one frame into the per-player state and returns the
// jerk samples it produced. A player's first two frames only prime the
// velocity and acceleration history and emit nothing.
func (p *FrameProcessor) ProcessFrame(frame Frame) []domain.RawSample {
	var samples []domain.RawSample
	for _, team := range frame.Teams {
		for _, player := range team.Players {
			key := playerKey{sessionID: frame.SessionID, userID: player.UserID}
			state, ok := p.states[key]
			if !ok {
				p.states[key] = &playerState{lastVelocity: player.Velocity}
				continue
			}

			accel := player.Velocity.Sub(state.lastVelocity)
			if state.hasAccel {
				samples = append(samples, domain.RawSample{
					SessionID: frame.SessionID,
					UserID:    player.UserID,
					Time:      frame.Time,
					Jerk:      accel.Sub(state.lastAccel).Magnitude(),
				})
			}

			state.lastVelocity = player.Velocity
			state.lastAccel = accel
			state.hasAccel = true
		}
	}
	return samples
}

// ReadFrames consumes newline-delimited JSON frames from r and returns
// all jerk samples. Unparseable lines are skipped and counted; only a
// read failure is an error.
func (p *FrameProcessor) ReadFrames(r io.Reader) ([]domain.RawSample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameLine)

	var samples []domain.RawSample
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			p.malformed++
			continue
		}
		samples = append(samples, p.ProcessFrame(frame)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Malformed reports how many input lines failed to parse.
func (p *FrameProcessor) Malformed() int {
	return p.malformed
}
