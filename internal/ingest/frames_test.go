package ingest

import (
	"strings"
	"testing"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

func frameWith(session string, clock float64, userID string, vel Vec3) Frame {
	return Frame{
		SessionID: session,
		Time:      clock,
		Teams: []FrameTeam{
			{Players: []FramePlayer{{UserID: userID, Velocity: vel}}},
		},
	}
}

func TestFrameProcessor_JerkFromVelocity(t *testing.T) {
	p := NewFrameProcessor()

	// Frames 1 and 2 prime velocity and acceleration history.
	if got := p.ProcessFrame(frameWith("s1", 0, "u1", Vec3{})); len(got) != 0 {
		t.Fatalf("frame 0 emitted %d samples, want 0", len(got))
	}
	if got := p.ProcessFrame(frameWith("s1", 1, "u1", Vec3{X: 1})); len(got) != 0 {
		t.Fatalf("frame 1 emitted %d samples, want 0", len(got))
	}

	// accel goes (1,0,0) -> (2,0,0): jerk magnitude 1.
	got := p.ProcessFrame(frameWith("s1", 2, "u1", Vec3{X: 3}))
	if len(got) != 1 {
		t.Fatalf("frame 2 emitted %d samples, want 1", len(got))
	}
	want := domain.RawSample{SessionID: "s1", UserID: "u1", Time: 2, Jerk: 1}
	if got[0] != want {
		t.Errorf("frame 2 sample = %+v, want %+v", got[0], want)
	}

	// accel goes (2,0,0) -> (0,0,0): jerk magnitude 2.
	got = p.ProcessFrame(frameWith("s1", 3, "u1", Vec3{X: 3}))
	if len(got) != 1 || got[0].Jerk != 2 {
		t.Errorf("frame 3 = %+v, want jerk 2", got)
	}
}

func TestFrameProcessor_PlayersTrackedIndependently(t *testing.T) {
	p := NewFrameProcessor()

	// Same user ID in two sessions must not share state.
	p.ProcessFrame(frameWith("s1", 0, "u1", Vec3{}))
	p.ProcessFrame(frameWith("s1", 1, "u1", Vec3{X: 1}))

	if got := p.ProcessFrame(frameWith("s2", 0, "u1", Vec3{X: 50})); len(got) != 0 {
		t.Errorf("fresh session emitted %d samples, want 0", len(got))
	}
}

func TestReadFrames(t *testing.T) {
	input := strings.Join([]string{
		`{"sessionid":"s1","game_clock":0,"teams":[{"players":[{"userid":"u1","velocity":{"x":0,"y":0,"z":0}}]}]}`,
		``,
		`not json at all`,
		`{"sessionid":"s1","game_clock":1,"teams":[{"players":[{"userid":"u1","velocity":{"x":1,"y":0,"z":0}}]}]}`,
		`{"sessionid":"s1","game_clock":2,"teams":[{"players":[{"userid":"u1","velocity":{"x":3,"y":0,"z":0}}]}]}`,
	}, "\n")

	p := NewFrameProcessor()
	samples, err := p.ReadFrames(strings.NewReader(input))
	if err != nil {
		t.Fatalf("read frames: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(samples))
	}
	if samples[0].Jerk != 1 {
		t.Errorf("expected jerk 1, got %v", samples[0].Jerk)
	}
	if p.Malformed() != 1 {
		t.Errorf("expected 1 malformed line, got %d", p.Malformed())
	}
}
