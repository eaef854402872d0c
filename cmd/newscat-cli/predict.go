package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"yashubustudio/newscat/inference"
)

func newPredictCmd(a *app) *cobra.Command {
	var (
		texts      []string
		inputPath  string
		outputPath string
		outputDir  string
		modelDir   string
		topK       int
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify headlines with the exported model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			docs := append([]string{}, texts...)
			if inputPath != "" {
				f, err := os.Open(filepath.Clean(inputPath))
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				lines, err := readLines(f)
				f.Close()
				if err != nil {
					return err
				}
				for _, line := range lines {
					if strings.TrimSpace(line) != "" {
						docs = append(docs, line)
					}
				}
			}
			if len(docs) == 0 {
				return errors.New("nothing to classify: pass --text or --input")
			}

			mc := a.cfg.Model
			if modelDir != "" {
				mc.Dir = modelDir
				mc.ID = ""
			}
			if cmd.Flags().Changed("top-k") {
				mc.TopK = topK
			}
			model, err := loadModel(a, mc)
			if err != nil {
				return err
			}
			defer model.Close()

			start := time.Now()
			preds, err := model.Predict(cmd.Context(), docs)
			if err != nil {
				return err
			}
			a.log.Debug("classified", "documents", len(docs), "elapsed", time.Since(start))

			if outputPath != "" || outputDir != "" {
				path, err := resolveOutputPath(outputPath, outputDir)
				if err != nil {
					return err
				}
				if err := writeResultCSV(path, docs, preds); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d predictions to %s\n", len(preds), path)
				return nil
			}
			printPredictions(cmd.OutOrStdout(), docs, preds)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringArrayVar(&texts, "text", nil, "Headline to classify (repeatable)")
	flags.StringVar(&inputPath, "input", "", "Text file with one headline per line")
	flags.StringVar(&outputPath, "output", "", "CSV file to write results")
	flags.StringVar(&outputDir, "output-dir", "", "Directory for a timestamped result_*.csv")
	flags.StringVar(&modelDir, "model-dir", "", "Directory holding model.onnx, tokenizer.json and labels.csv")
	flags.IntVar(&topK, "top-k", 3, "Number of ranked labels per headline")
	return cmd
}

func loadModel(a *app, mc inference.ModelConfig) (*inference.Model, error) {
	n, err := a.normalizer(a.cfg.Normalizer)
	if err != nil {
		return nil, err
	}
	model, err := inference.LoadModel(mc, inference.WithNormalizer(n), inference.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	return model, nil
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("result_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}

func writeResultCSV(path string, docs []string, preds []inference.Prediction) error {
	if len(docs) != len(preds) {
		return fmt.Errorf("documents/predictions length mismatch: %d vs %d", len(docs), len(preds))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"headline", "sentence", "label", "label_enc", "score"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range preds {
		row := []string{docs[i], p.Text, p.Label, fmt.Sprint(p.Index), fmt.Sprintf("%.3f", p.Score)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result: %w", err)
	}
	return f.Close()
}

func printPredictions(w io.Writer, docs []string, preds []inference.Prediction) {
	for i, p := range preds {
		fmt.Fprintf(w, "%d. %s\n", i+1, summarize(docs[i]))
		if len(p.Top) == 0 {
			fmt.Fprintf(w, "    %s (score=%.3f)\n", p.Label, p.Score)
			continue
		}
		for _, s := range p.Top {
			fmt.Fprintf(w, "    - %s (score=%.3f)\n", s.Label, s.Score)
		}
	}
}

func summarize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "(empty)"
	}
	runes := []rune(text)
	if len(runes) > 60 {
		return string(runes[:60]) + "…"
	}
	return text
}
