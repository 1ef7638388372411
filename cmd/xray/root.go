package main

import (
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
	"github.com/agenttrace/xray/internal/pkg/logger"
)

// Version is set at build time
var Version = "0.1.0"

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "xray",
		Short: "X-Ray records why a multi-step decision pipeline produced its output",
		Long: `X-Ray runs decision pipelines and prints the recorded execution trace.

Commands:
  run     - Run a pipeline for a request and print its trace
  demo    - Print the built-in demonstration trace

Example:
  xray run "stainless steel water bottle under $50"
  xray run --backend offline "beginner sql blog posts"
  xray demo`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("backend", "", `Reasoner backend, "openai" or "offline" (or set REASONER_BACKEND)`)
	root.PersistentFlags().String("log-level", "", "Log level written to stderr (or set LOG_LEVEL)")
	_ = v.BindPFlag("reasoner_backend", root.PersistentFlags().Lookup("backend"))
	_ = v.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newRunCmd(v))
	root.AddCommand(newDemoCmd())
	return root
}

// loadConfig reads configuration with command line flags taking precedence
func loadConfig(v *viper.Viper) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadWith(v)
	if err != nil {
		return nil, nil, err
	}
	// stdout carries the trace, logs go to stderr
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: "console", Output: os.Stderr})
	return cfg, log, nil
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
