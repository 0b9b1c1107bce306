package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/llmcompass/compass/internal/webapi"
)

func newServeCommand() *cobra.Command {
	var port int
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recommendation API server",
		Long: `Start the HTTP API server.

Endpoints:
  POST /api/v1/query                        Run a recommendation query
  POST /api/v1/query/{session_id}/clarify   Answer a clarification question
  GET  /api/v1/health                       Liveness check

The relevance index is built from the stored benchmark descriptions at
startup. With --offline the server uses the deterministic local embedder and
collaborator stubs instead of the configured LLM endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch, _, err := buildOrchestrator(ctx, cfg, offline)
			if err != nil {
				return err
			}

			server := webapi.New(orch, cfg.Server.APIKey, nil)
			return server.Start(ctx, cfg.Server.Port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the local embedder and collaborator stubs instead of the LLM endpoint")

	return cmd
}
