package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/api"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve a read/edit HTTP API over one DAT file",
		ArgsUsage: "<file.dat>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyServeConfig(cmd, configFrom(ctx), &addr)
			log := logger.FromContext(ctx)

			path, err := fileArg(cmd)
			if err != nil {
				return err
			}
			sess, err := openSession(ctx, path)
			if err != nil {
				return err
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(sess, log.With("component", "api")).Register(e)

			log.Info("starting server", "address", addr, "file", path)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			if err := sc.Start(ctx, e); err != nil {
				return cli.Exit(fmt.Sprintf("error: serve: %v", err), 1)
			}
			if sess.Dirty() {
				log.Warn("server stopped with unsaved edits", "file", path)
			}
			return nil
		},
	}
}
