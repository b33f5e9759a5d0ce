package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"viberate/internal/bootstrap"
	"viberate/internal/bootstrap/logging"
	"viberate/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the marketplace HTTP API",
	RunE: withSchema(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}
		if strings.TrimSpace(app.Config.HTTP.JWTSecret) == "" {
			return errors.New("http.jwt_secret is required to serve the API")
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           app.Handler,
			ReadHeaderTimeout: app.Config.HTTP.ReadTimeout,
			ReadTimeout:       app.Config.HTTP.ReadTimeout,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logging.Info(ctx, "http server started", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve http")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.HTTP.ShutdownTimeout)
			defer cancel()
			logging.Info(ctx, "http server shutting down")
			return server.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			logging.Error(ctx, "http server failed", slog.Any("err", errs.Loggable(err)))
			return err
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default http.addr)")
}
