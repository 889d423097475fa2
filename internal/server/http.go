package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// NewHTTPMux registers the page, the API and, when webhook is non-nil, the
// Telegram webhook.
func NewHTTPMux(s *Server, webhook http.HandlerFunc) *http.ServeMux {
	mux := http.NewServeMux()
	if s != nil {
		s.routes(mux)
	}
	if webhook != nil {
		mux.HandleFunc("POST /telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })
	return mux
}

// Handler wraps the mux with request logging.
func Handler(mux *http.ServeMux, logger zerolog.Logger) http.Handler {
	return requestLogger(logger.With().Str("component", "http").Logger(), mux)
}

// ListenAndServe serves until ctx is cancelled, then drains for up to ten seconds.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
