package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/ares/internal/cache"
	"github.com/rickgao/ares/internal/marketdata"
	"github.com/rickgao/ares/internal/model"
	"github.com/rickgao/ares/internal/poller"
)

// Fetcher retrieves one market snapshot.
type Fetcher interface {
	FetchMarketData(ctx context.Context, marketID string) (model.Snapshot, error)
}

// Pinger is a dependency that can report its connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CycleReporter exposes the last poll cycle.
type CycleReporter interface {
	LastCycle() poller.CycleStats
}

// Deps holds everything the handlers read from. Nil fields are omitted
// from health output.
type Deps struct {
	Fetcher     Fetcher
	Cache       cache.Store
	Database    Pinger
	Poller      CycleReporter
	Metrics     http.Handler
	MetricsPath string
	Logger      *slog.Logger
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}

	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, deps.MetricsPath, deps.Metrics)
	}
	if deps.Fetcher != nil {
		r.Get("/markets/{marketID}", h.market)
		r.Get("/markets/", h.market)
	}

	return r
}

type handlers struct {
	deps Deps
}

type healthResponse struct {
	Status     string         `json:"status"`
	Components map[string]any `json:"components"`
}

// health reports component status.
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	if h.deps.Database != nil {
		if err := h.deps.Database.Ping(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			resp.Components["database"] = "connected"
		}
	}

	if h.deps.Cache != nil {
		component := map[string]any{}
		if p, ok := h.deps.Cache.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				component["status"] = "disconnected"
				component["error"] = err.Error()
			}
		}
		if n, err := h.deps.Cache.Len(ctx); err == nil {
			component["entries"] = n
		}
		if _, down := component["error"]; down && resp.Status == "healthy" {
			// Fetches still succeed without the cache.
			resp.Status = "degraded"
		}
		resp.Components["cache"] = component
	}

	if h.deps.Poller != nil {
		last := h.deps.Poller.LastCycle()
		component := map[string]any{
			"markets": last.Markets,
			"fetched": last.Fetched,
			"failed":  last.Failed,
		}
		if !last.StartedAt.IsZero() {
			component["last_cycle"] = last.StartedAt.UTC().Format(time.RFC3339)
		}
		if last.Markets > 0 && last.Fetched == 0 && resp.Status == "healthy" {
			resp.Status = "degraded"
		}
		resp.Components["poller"] = component
	}

	status := http.StatusOK
	if resp.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp, h.deps.Logger)
}

// market fetches one snapshot through the client.
func (h *handlers) market(w http.ResponseWriter, r *http.Request) {
	marketID, err := marketIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid market id", h.deps.Logger)
		return
	}

	snap, err := h.deps.Fetcher.FetchMarketData(r.Context(), marketID)
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg, h.deps.Logger)
		return
	}

	writeJSON(w, http.StatusOK, snap, h.deps.Logger)
}

// marketIDParam returns the decoded market id. chi matches on RawPath when it
// is set (e.g. the id holds %2F) and on the already decoded Path otherwise, so
// the param is unescaped only in the first case.
func marketIDParam(r *http.Request) (string, error) {
	param := chi.URLParam(r, "marketID")
	if r.URL.RawPath == "" {
		return param, nil
	}
	return url.PathUnescape(param)
}

// errorStatus maps client errors to HTTP responses. Provider details stay in the logs.
func errorStatus(err error) (int, string) {
	var (
		fetchErr *marketdata.FetchError
		parseErr *marketdata.ParseError
	)
	switch {
	case errors.Is(err, marketdata.ErrEmptyMarketID):
		return http.StatusBadRequest, "market id is required"
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "market data provider unavailable"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "market data provider returned an invalid response"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	writeJSON(w, status, map[string]string{"error": msg}, logger)
}

func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}
