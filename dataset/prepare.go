package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"yashubustudio/newscat/internal/logger"
	"yashubustudio/newscat/textnorm"
)

// Output file names written by Prepare.
const (
	TrainFile  = "train.csv"
	TestFile   = "test.csv"
	LabelsFile = "labels.csv"
)

// DefaultTestFraction is the held-out share used when none is configured.
const DefaultTestFraction = 0.2

// PrepareOptions configures a Prepare run.
type PrepareOptions struct {
	InputPath string
	OutputDir string
	Read      ReadOptions
	// Normalizer cleans sentences before splitting. Nil skips normalization.
	Normalizer   *textnorm.Normalizer
	TestFraction float64
	Seed         uint64
	LabelOrder   LabelOrder
	// RawLabels writes label strings instead of encoded indices.
	RawLabels bool
	Logger    logger.Logger
}

// PrepareReport summarizes a Prepare run.
type PrepareReport struct {
	Read       ReadStats
	Dropped    int
	Train      int
	Test       int
	Labels     int
	TrainPath  string
	TestPath   string
	LabelsPath string
	Elapsed    time.Duration
}

// NormalizeRecords cleans every sentence with n and drops records whose
// cleaned sentence is empty. It returns the kept records and the number
// dropped.
func NormalizeRecords(ctx context.Context, n *textnorm.Normalizer, records []Record) ([]Record, int, error) {
	docs := make([]string, len(records))
	for i, rec := range records {
		docs[i] = rec.Sentence
	}
	cleaned, err := n.NormalizeAll(ctx, docs)
	if err != nil {
		return nil, 0, fmt.Errorf("normalize records: %w", err)
	}
	out := make([]Record, 0, len(records))
	for i, rec := range records {
		if cleaned[i] == "" {
			continue
		}
		out = append(out, Record{Sentence: cleaned[i], Label: rec.Label})
	}
	return out, len(records) - len(out), nil
}

// Prepare reads the input dataset, normalizes it, fits the label map, splits
// it and writes the train, test and label map files into OutputDir.
func Prepare(ctx context.Context, opts PrepareOptions) (PrepareReport, error) {
	start := time.Now()
	log := logger.OrNop(opts.Logger).With("component", "dataset")
	report := PrepareReport{}
	if opts.InputPath == "" {
		return report, errors.New("prepare: input path is required")
	}
	if opts.OutputDir == "" {
		return report, errors.New("prepare: output dir is required")
	}
	if opts.TestFraction == 0 {
		opts.TestFraction = DefaultTestFraction
	}

	records, stats, err := ReadRecords(opts.InputPath, opts.Read)
	if err != nil {
		return report, fmt.Errorf("prepare: %w", err)
	}
	report.Read = stats
	log.Info("read dataset", "path", opts.InputPath, "rows", stats.Total, "skipped", stats.Skipped)

	if opts.Normalizer != nil {
		var dropped int
		records, dropped, err = NormalizeRecords(ctx, opts.Normalizer, records)
		if err != nil {
			return report, fmt.Errorf("prepare: %w", err)
		}
		report.Dropped = dropped
		log.Debug("normalized dataset", "kept", len(records), "dropped", dropped)
	}
	if len(records) == 0 {
		return report, errors.New("prepare: no usable records")
	}

	labels := make([]string, len(records))
	for i, rec := range records {
		labels[i] = rec.Label
	}
	labelMap, err := FitLabels(labels, opts.LabelOrder)
	if err != nil {
		return report, fmt.Errorf("prepare: %w", err)
	}
	report.Labels = labelMap.Len()

	train, test, err := Split(records, opts.TestFraction, opts.Seed)
	if err != nil {
		return report, fmt.Errorf("prepare: %w", err)
	}
	report.Train = len(train)
	report.Test = len(test)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	encoder := labelMap
	if opts.RawLabels {
		encoder = nil
	}
	report.TrainPath = filepath.Join(opts.OutputDir, TrainFile)
	report.TestPath = filepath.Join(opts.OutputDir, TestFile)
	report.LabelsPath = filepath.Join(opts.OutputDir, LabelsFile)
	if err := WriteRecords(report.TrainPath, train, encoder); err != nil {
		return report, fmt.Errorf("prepare: %w", err)
	}
	if err := WriteRecords(report.TestPath, test, encoder); err != nil {
		return report, fmt.Errorf("prepare: %w", err)
	}
	if err := WriteLabelMap(report.LabelsPath, labelMap); err != nil {
		return report, fmt.Errorf("prepare: %w", err)
	}
	report.Elapsed = time.Since(start)
	log.Info("prepared dataset",
		"train", report.Train,
		"test", report.Test,
		"labels", report.Labels,
		"dropped", report.Dropped,
		"elapsed", report.Elapsed,
	)
	return report, nil
}
