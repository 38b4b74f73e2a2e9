package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sonrisasaludable/frontdesk/internal/config"
	"github.com/sonrisasaludable/frontdesk/internal/handler"
	"github.com/sonrisasaludable/frontdesk/internal/logging"
	"github.com/sonrisasaludable/frontdesk/internal/service/chat"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := logging.New(cfg.LogLevel)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if ttl := cfg.Assistant.SessionIdleTTL; ttl > 0 {
		go sweepSessions(ctx, app.sessions, ttl, logging.Component(logger, "sessions"))
	}

	router := handler.NewRouter(app.facts, app.sessions, app.ai, logger)
	return startServer(ctx, cfg.Server, router, logging.Component(logger, "server"))
}

func sweepSessions(ctx context.Context, sessions *chat.Service, interval time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.Sweep(ctx); removed > 0 {
				log.WithField("removed", removed).Info("expired sessions swept")
			}
		}
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *logrus.Entry) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.WithField("addr", addr).Info("Sonrisa Saludable front desk listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
