package main

import (
	"github.com/spf13/cobra"

	"yashubustudio/newscat/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr     string
		modelDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /ping and /invocations until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := a.cfg.Server
			if addr != "" {
				sc.Addr = addr
			}
			mc := a.cfg.Model
			if modelDir != "" {
				mc.Dir = modelDir
				mc.ID = ""
			}
			model, err := loadModel(a, mc)
			if err != nil {
				return err
			}
			defer model.Close()
			return server.New(sc, model, a.log).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "Directory holding model.onnx, tokenizer.json and labels.csv")
	return cmd
}
