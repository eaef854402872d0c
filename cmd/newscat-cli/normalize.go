package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newNormalizeCmd(a *app) *cobra.Command {
	var (
		inputPath string
		disable   []string
		maxLength int
	)
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Clean one document per line from --input or stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Normalizer
			for _, name := range disable {
				if err := cfg.SetStage(name, false); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("max-length") {
				cfg.MaxLength = maxLength
			}
			n, err := a.normalizer(cfg)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if inputPath != "" {
				f, err := os.Open(filepath.Clean(inputPath))
				if err != nil {
					return fmt.Errorf("open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			docs, err := readLines(in)
			if err != nil {
				return err
			}
			out, err := n.NormalizeAll(cmd.Context(), docs)
			if err != nil {
				return err
			}
			w := bufio.NewWriter(cmd.OutOrStdout())
			for _, line := range out {
				fmt.Fprintln(w, line)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&inputPath, "input", "", "Text file with one document per line (default: stdin)")
	cmd.Flags().StringSliceVar(&disable, "disable", nil, "Stages to switch off, e.g. lemmatize,remove_stopwords")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Override the output length cap; 0 disables truncation")
	return cmd
}

// readLines returns every line of r, blank ones included, so output lines
// stay aligned with input lines.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
