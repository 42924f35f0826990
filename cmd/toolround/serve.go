package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/skosovsky/toolround"
)

const maxBodyBytes = 1 << 20

// ServeCmd serves answers over HTTP.
type ServeCmd struct {
	Addr string `help:"Listen address. Defaults to TOOLROUND_ADDR."`
}

// Run is called by kong.
func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	gatherer, metrics := newMetrics()
	a, err := newApp(ctx, g, metrics)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := c.Addr
	if addr == "" {
		addr = g.cfg.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(a, gatherer, g.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	g.logger.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type generateRequest struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

type generateResponse struct {
	Answer     string `json:"answer"`
	ExchangeID string `json:"exchange_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newHandler(a *app, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/generate", func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		ex, err := a.orchestrator.Run(r.Context(), a.Request(req.Query, req.Context), a.executor)
		if err != nil {
			status := statusFor(err)
			logger.Warn().Err(err).Int("status", status).Msg("generate failed")
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, generateResponse{Answer: ex.Text, ExchangeID: ex.ID})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, toolround.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
