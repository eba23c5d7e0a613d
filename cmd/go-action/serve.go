package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"github.com/bassista/go_action/internal/api/middleware"
	"github.com/bassista/go_action/internal/api/route"
	"github.com/bassista/go_action/internal/app"
	"github.com/bassista/go_action/internal/config"
	"github.com/bassista/go_action/internal/logger"
	"github.com/enrichman/httpgrace"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve actions over HTTP, one container per invocation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				opts.cfg.Server.Port = port
			}
			return serve(opts.cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port; overrides server.port and PORT")
	return cmd
}

func serve(cfg *config.Config) error {
	a, err := app.NewFromConfig(cfg, true)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := a.StartWatchers(); err != nil {
		return err
	}

	r := newEngine(a)
	srv := createGraceHttpServer(a.BaseCtx, "gateway", cfg.Server, r)

	logger.WithComponent("main").Infof("Gateway will run on port: %d", cfg.Server.Port)
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newEngine(a *app.App) *gin.Engine {
	gin.SetMode(a.Config.Misc.GinMode)
	gin.DefaultWriter = logger.Logger.Writer()
	gin.DefaultErrorWriter = logger.Logger.Writer()

	r := gin.New()
	r.Use(middleware.HoneybadgerMiddleware(logger.WithComponent("honeybadger")))
	r.Use(gin.Recovery())
	route.SetupRoutes(r, a)
	return r
}

func createGraceHttpServer(ctx context.Context, name string, serverConfig config.ServerConfig, r *gin.Engine) *httpgrace.Server {
	slogLogger := slog.New(slog.NewTextHandler(logger.Logger.Writer(), nil))

	srv := httpgrace.NewServer(r,
		httpgrace.WithTimeout(serverConfig.ShutDownTimeout),
		httpgrace.WithSignals(syscall.SIGTERM, syscall.SIGINT),
		httpgrace.WithLogger(slogLogger),
		httpgrace.WithBeforeShutdown(func() {
			logger.WithComponent("http").Infof("Shutting down %s server....", name)
		}),
		httpgrace.WithServerOptions(
			httpgrace.WithReadTimeout(serverConfig.ReadTimeout),
			httpgrace.WithWriteTimeout(serverConfig.WriteTimeout),
			httpgrace.WithIdleTimeout(serverConfig.IdleTimeout),
			func(srv *http.Server) {
				srv.BaseContext = func(_ net.Listener) context.Context {
					return ctx
				}
			},
			func(srv *http.Server) {
				srv.ErrorLog = log.New(logger.Logger.Writer(), fmt.Sprintf("[%s] ", name), log.LstdFlags)
			},
		),
	)
	return srv
}
