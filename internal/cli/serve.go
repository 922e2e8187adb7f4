package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ashalaginvimeo/AS-test/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over an HTTP JSON API",
		Long: `Serve the tools over HTTP.

  GET    /api/tools                    tool catalog with schemas
  POST   /api/tools/{tool}             run one tool synchronously
  POST   /api/sessions                 open a session
  GET    /api/sessions/{id}?wait=N     session state, optionally waiting for generation N
  PUT    /api/sessions/{id}/tool       select the session's tool
  POST   /api/sessions/{id}/submit     start a request, returns its generation
  POST   /api/sessions/{id}/cancel     cancel the in-flight request
  DELETE /api/sessions/{id}            close the session
  GET    /healthz, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger, err := opts.logger(false)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			g, err := opts.buildGateway(ctx, logger, reg)
			if err != nil {
				return err
			}

			srv := server.New(g, logger, server.Options{
				Addr:            opts.cfg.Server.Addr,
				ShutdownTimeout: opts.cfg.Server.ShutdownTimeout,
				MaxSessions:     opts.cfg.Server.MaxSessions,
				RequestTimeout:  opts.cfg.RequestTimeout,
				Registerer:      reg,
				Gatherer:        reg,
			})
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	_ = opts.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
