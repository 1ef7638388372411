package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
	"github.com/agenttrace/xray/internal/reasoner"
	"github.com/agenttrace/xray/internal/registry"
	"github.com/agenttrace/xray/internal/service"
	"github.com/agenttrace/xray/internal/workflow"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "run <request>",
		Short: "Run a pipeline synchronously and print the execution",
		Long: `Run selects the pipeline for the request, records every step and prints
the resulting execution as JSON. The execution is printed even when the
run fails; the exit status is then non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(v)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			request := strings.Join(args, " ")
			router, err := workflow.NewRouter(cliReasoner(cfg, log), log)
			if err != nil {
				return err
			}
			svc := service.NewExecutionService(registry.New(registry.WithLogger(log)), router, log,
				service.WithRunTimeout(cfg.Worker.RunTimeout),
			)

			exec, runErr := svc.Execute(cmd.Context(), request)
			if exec != nil {
				if err := printJSON(cmd.OutOrStdout(), exec); err != nil {
					return err
				}
			}
			if runErr != nil {
				return fmt.Errorf("run failed: %w", runErr)
			}
			return nil
		},
	}
}

// cliReasoner builds the configured backend without the Redis cache
func cliReasoner(cfg *config.Config, log *zap.Logger) reasoner.Reasoner {
	if cfg.Reasoner.Backend == "offline" {
		return workflow.Offline()
	}
	return reasoner.NewOpenAI(cfg.Reasoner, log)
}
