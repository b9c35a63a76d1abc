// Package notifierservice assembles the HTTP surface and the summary event
// pipeline into one runnable service.
package notifierservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/tsvet01/eng-pulse/internal/api"
	"github.com/tsvet01/eng-pulse/internal/dispatch"
	"github.com/tsvet01/eng-pulse/internal/pipeline"
	"github.com/tsvet01/eng-pulse/notifierservice/config"
	"github.com/tsvet01/eng-pulse/pkg/push"
)

type Wrapper struct {
	server   *http.Server
	consumer *pipeline.Consumer
	logger   *slog.Logger

	cancelConsumer context.CancelFunc
	consumerDone   chan error
}

// New assembles the service: registration API, health endpoint and the
// Pub/Sub consumer.
func New(
	cfg *config.Config,
	consumer *pipeline.Consumer,
	store push.EndpointStore,
	dispatcher *dispatch.Dispatcher,
	logger *slog.Logger,
) (*Wrapper, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}

	tokenAPI := api.NewTokenAPI(store, dispatcher, logger)

	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         3600,
	}))
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Method not allowed"})
	})

	router.Post("/register-token", tokenAPI.RegisterFCM)
	router.Post("/unregister-token", tokenAPI.UnregisterFCM)
	router.Post("/register-apns-token", tokenAPI.RegisterAPNS)
	router.Post("/unregister-apns-token", tokenAPI.UnregisterAPNS)
	router.Post("/trigger-apns", tokenAPI.TriggerAPNS)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Wrapper{
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		consumer: consumer,
		logger:   logger.With("component", "Service"),
	}, nil
}

// Start runs the consumer and blocks serving HTTP until Shutdown.
func (w *Wrapper) Start(ctx context.Context) error {
	consumerCtx, cancel := context.WithCancel(ctx)
	w.cancelConsumer = cancel
	w.consumerDone = make(chan error, 1)

	go func() {
		w.consumerDone <- w.consumer.Start(consumerCtx)
	}()

	w.logger.Info("HTTP server listening", "addr", w.server.Addr)
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops the consumer, then drains the HTTP server.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error

	if w.cancelConsumer != nil {
		w.cancelConsumer()
		select {
		case err := <-w.consumerDone:
			if err != nil {
				w.logger.Error("Consumer shutdown failed.", "err", err)
				finalErr = err
			}
		case <-ctx.Done():
			w.logger.Error("Consumer shutdown timed out.")
			finalErr = ctx.Err()
		}
	}

	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}

	w.logger.Info("Service shutdown complete.")
	return finalErr
}
