package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/auth"
	"github.com/MarcoPoloResearchLab/babytracker/internal/metrics"
	"github.com/MarcoPoloResearchLab/babytracker/internal/photos"
	"github.com/MarcoPoloResearchLab/babytracker/internal/server"
	"github.com/MarcoPoloResearchLab/babytracker/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func (a *cli) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServer(cmd.Context())
		},
	}
}

func (a *cli) runServer(ctx context.Context) error {
	var recorder *metrics.Recorder
	var observer tracker.MetricsRecorder
	if a.viper.GetBool("metrics.enabled") {
		recorder = metrics.NewRecorder()
		observer = recorder
	}

	rt, err := a.openRuntime(ctx, observer)
	if err != nil {
		return err
	}
	defer rt.Close()

	deps := server.Dependencies{
		Tracker:      rt.tracker,
		Users:        rt.users,
		Metrics:      recorder,
		Realtime:     server.NewRealtimeDispatcher(),
		DefaultOwner: rt.config.DefaultOwner,
		Logger:       rt.logger,
	}
	if rt.config.AuthEnabled() {
		issuer, err := newTokenIssuer(rt)
		if err != nil {
			return err
		}
		deps.Tokens = issuer
	}
	if rt.photos.Driver() == photos.DriverFilesystem {
		deps.PhotoDir = rt.config.Photos.Dir
	}

	handler, err := server.NewHTTPHandler(deps)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              rt.config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("server starting",
			zap.String("address", rt.config.HTTPAddress),
			zap.String("storage_driver", string(rt.config.StorageDriver)),
			zap.String("photos_driver", string(rt.photos.Driver())),
			zap.Bool("auth_enabled", rt.config.AuthEnabled()),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		rt.logger.Info("server stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newTokenIssuer(rt *runtime) (*auth.TokenIssuer, error) {
	return auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(rt.config.SigningSecret),
		Issuer:        rt.config.TokenIssuer,
		Audience:      rt.config.TokenAudience,
		TokenTTL:      rt.config.TokenTTL,
	})
}
