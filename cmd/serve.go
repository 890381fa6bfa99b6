package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanpawarit/Chative-Support-Router/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	opts := api.Options{
		Version:        appVersion,
		AllowedOrigins: api.ParseOrigins(a.cfg.CORSOrigins),
		CleanupURL:     a.cfg.cleanupURL(),
	}
	if a.verifier != nil {
		opts.Verifier = a.verifier
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           api.NewServer(a.service, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.sessions.StartJanitor(ctx, a.cfg.JanitorInterval)
	a.scheduleCleanup(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", appVersion).Msg("support router listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	remaining := a.service.SweepSessions()
	log.Info().Int("active_sessions", remaining).Msg("expired sessions cleaned up")
	return nil
}
