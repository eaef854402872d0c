package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/newscat/dataset"
)

func newPrepareCmd(a *app) *cobra.Command {
	var (
		inputPath  string
		outputDir  string
		testSize   float64
		seed       uint64
		labelOrder string
		textField  string
		labelField string
		rawLabels  bool
		skipNorm   bool
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Normalize a labelled dataset and write train/test partitions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputPath = strings.TrimSpace(inputPath)
			if inputPath == "" {
				return errors.New("missing required --input file")
			}
			dc := a.cfg.Dataset
			flags := cmd.Flags()
			if flags.Changed("output-dir") {
				dc.OutputDir = outputDir
			}
			if flags.Changed("test-size") {
				dc.TestFraction = testSize
			}
			if flags.Changed("seed") {
				dc.Seed = seed
			}
			if flags.Changed("label-order") {
				dc.LabelOrder = labelOrder
			}
			if flags.Changed("text-field") {
				dc.TextField = textField
			}
			if flags.Changed("label-field") {
				dc.LabelField = labelField
			}
			if flags.Changed("raw-labels") {
				dc.RawLabels = rawLabels
			}

			opts := dataset.PrepareOptions{
				InputPath:    inputPath,
				OutputDir:    dc.OutputDir,
				Read:         dc.ReadOptions(),
				TestFraction: dc.TestFraction,
				Seed:         dc.Seed,
				LabelOrder:   dataset.LabelOrder(dc.LabelOrder),
				RawLabels:    dc.RawLabels,
				Logger:       a.log,
			}
			if !skipNorm {
				n, err := a.normalizer(a.cfg.Normalizer)
				if err != nil {
					return err
				}
				opts.Normalizer = n
			}
			report, err := dataset.Prepare(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "read %d rows (%d skipped, %d empty after cleaning)\n",
				report.Read.Total, report.Read.Skipped, report.Dropped)
			fmt.Fprintf(out, "train: %d rows -> %s\n", report.Train, report.TrainPath)
			fmt.Fprintf(out, "test:  %d rows -> %s\n", report.Test, report.TestPath)
			fmt.Fprintf(out, "labels: %d -> %s\n", report.Labels, report.LabelsPath)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&inputPath, "input", "", "NDJSON, CSV or TSV dataset")
	flags.StringVar(&outputDir, "output-dir", "", "Directory for train.csv, test.csv and labels.csv")
	flags.Float64Var(&testSize, "test-size", dataset.DefaultTestFraction, "Held-out fraction in (0,1)")
	flags.Uint64Var(&seed, "seed", 0, "Shuffle seed; 0 picks a random split")
	flags.StringVar(&labelOrder, "label-order", string(dataset.LabelOrderSorted), "Label index order: sorted or first_seen")
	flags.StringVar(&textField, "text-field", "", "JSON path or column holding the text")
	flags.StringVar(&labelField, "label-field", "", "JSON path or column holding the label")
	flags.BoolVar(&rawLabels, "raw-labels", false, "Write label strings instead of indices")
	flags.BoolVar(&skipNorm, "no-normalize", false, "Keep sentences as read")
	return cmd
}
