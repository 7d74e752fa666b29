package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/folio/internal/server"
	"github.com/matzehuels/folio/pkg/buildinfo"
	"github.com/matzehuels/folio/pkg/pipeline"
	"github.com/matzehuels/folio/pkg/toolchain"
)

// serveCommand creates the serve command, which runs the HTTP worker.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP worker",
		Long: `Serve exposes the pipeline over HTTP:

  GET  /health   liveness and version
  POST /process  {"service_id": "rec..."}

The listen address defaults to server.host and server.port (PORT).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (host:port), overrides the configuration")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// checkToolchain reports a missing xelatex or pdfinfo binary.
func checkToolchain(r *pipeline.Runner) error {
	if ts, ok := r.Typesetter.(*toolchain.Typesetter); ok {
		if err := ts.Check(); err != nil {
			return err
		}
	}
	if in, ok := r.Inspector.(*toolchain.Inspector); ok {
		return in.Check()
	}
	return nil
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.settings()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, runnerOpts{noCache: noCache, withData: true})
	if err != nil {
		return err
	}
	defer closeRunner(runner)

	if err := checkToolchain(runner); err != nil {
		c.Logger.Warn("toolchain incomplete, runs will fail", "err", err)
	}

	if addr == "" {
		addr = cfg.Server.Addr()
	}
	srv := server.New(runner, c.Logger, server.Options{
		Version:       buildinfo.Version,
		MaxConcurrent: cfg.Server.MaxConcurrent,
	})
	return srv.ListenAndServe(ctx, addr, cfg.Server.ShutdownTimeout)
}
