package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memorizefacts/internal/app/server/api"
	"memorizefacts/internal/app/server/config"
	"memorizefacts/internal/infrastructure/storage/postgres"
	"memorizefacts/internal/utils/logger"

	"golang.org/x/exp/slog"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Hour
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env, logger.WithLevel(conf.Logger.LogLevel))

	if err := run(conf, log); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(conf *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	storage, err := postgres.New(ctx, conf, log)
	if err != nil {
		return err
	}
	defer storage.Close()

	services := api.NewServices(storage, conf.Server.SessionTTL, log)
	go services.Sessions.Sweep(ctx, sweepInterval)

	mux, err := api.New(storage, services, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.Server.RunAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", conf.Server.RunAddress), slog.String("env", conf.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
