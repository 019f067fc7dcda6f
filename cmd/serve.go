package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bilisync/internal/server"
)

// Serve runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(cmd); err != nil {
		return err
	}

	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		r.config.Server.Port = port
	}

	return server.New(r.config.Server, r.syncer, r.registry, r.logger).Start(ctx)
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve health, metrics and sync endpoints over HTTP",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{Name: "host", Usage: "Listen host (defaults to server.host)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (defaults to server.port)"},
		},
		Action: r.Serve,
	}
}
