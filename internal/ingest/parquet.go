// Package ingest converts external telemetry into raw jerk samples: a
// columnar features file produced by the capture pipeline, or raw
// frame streams that still need differentiation.
package ingest

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/vrpulse/jerk-sentinel/internal/domain"
)

// jerkRow mirrors the features.parquet schema written by the capture
// pipeline: one row per (session, user, time) jerk reading.
type jerkRow struct {
	SessionID string  `parquet:"name=sessionid, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserID    string  `parquet:"name=userid, type=BYTE_ARRAY, convertedtype=UTF8"`
	Time      float64 `parquet:"name=time, type=DOUBLE"`
	Jerk      float64 `parquet:"name=jerk, type=DOUBLE"`
}

// labeledRow is the output schema for persisted detection results.
type labeledRow struct {
	SessionID   string  `parquet:"name=sessionid, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserID      string  `parquet:"name=userid, type=BYTE_ARRAY, convertedtype=UTF8"`
	WindowIndex int64   `parquet:"name=window_index, type=INT64"`
	MaxJerk     float64 `parquet:"name=max_jerk, type=DOUBLE"`
	Score       float64 `parquet:"name=score, type=DOUBLE"`
	IsAnomaly   bool    `parquet:"name=is_anomaly, type=BOOLEAN"`
}

// ReadSamples loads every row of a features parquet file.
func ReadSamples(path string) ([]domain.RawSample, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(jerkRow), 4)
	if err != nil {
		return nil, fmt.Errorf("create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	rows := make([]jerkRow, num)
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	samples := make([]domain.RawSample, num)
	for i, r := range rows {
		samples[i] = domain.RawSample{
			SessionID: r.SessionID,
			UserID:    r.UserID,
			Time:      r.Time,
			Jerk:      r.Jerk,
		}
	}
	return samples, nil
}

// WriteSamples writes samples to path in the same schema ReadSamples
// expects.
func WriteSamples(path string, samples []domain.RawSample) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(jerkRow), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	for _, s := range samples {
		row := jerkRow{
			SessionID: s.SessionID,
			UserID:    s.UserID,
			Time:      s.Time,
			Jerk:      s.Jerk,
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}

// WriteLabeledWindows writes a detection's output to path, one row per
// window.
func WriteLabeledWindows(path string, windows []domain.LabeledWindow) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(labeledRow), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	for _, w := range windows {
		row := labeledRow{
			SessionID:   w.SessionID,
			UserID:      w.UserID,
			WindowIndex: w.WindowIndex,
			MaxJerk:     w.MaxJerk,
			Score:       w.Score,
			IsAnomaly:   w.IsAnomaly,
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	return nil
}
