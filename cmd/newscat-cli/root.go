package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"yashubustudio/newscat/internal/config"
	"yashubustudio/newscat/internal/logger"
	"yashubustudio/newscat/textnorm"
)

// app carries state resolved by the root command for its subcommands.
type app struct {
	configPath string
	logLevel   string
	logJSON    bool

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "newscat-cli",
		Short:         "Prepare news headline datasets and serve the headline classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to config.json (default: ./config.json)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error or disabled")
	flags.BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON")

	root.AddCommand(
		newNormalizeCmd(a),
		newPrepareCmd(a),
		newPredictCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	overrides := map[string]any{}
	if cmd.Flags().Changed("log-level") {
		overrides["log.level"] = a.logLevel
	}
	if cmd.Flags().Changed("log-json") {
		overrides["log.json"] = a.logJSON
	}
	cfg, err := config.Load(a.configPath, overrides)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logCfg := cfg.Log.LoggerConfig()
	logCfg.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	a.log = logger.NewLogger(logCfg)
	return nil
}

// normalizer builds a normalizer from the configured stages and word lists.
func (a *app) normalizer(cfg textnorm.Config) (*textnorm.Normalizer, error) {
	res, err := textnorm.LoadResources(a.cfg.Resources.StopwordsPath, a.cfg.Resources.LemmasPath)
	if err != nil {
		return nil, err
	}
	return textnorm.New(cfg, res), nil
}
