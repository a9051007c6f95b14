package lifecycle

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/tagmystickies-bot/internal/health"
	"github.com/Proton-105/tagmystickies-bot/internal/middleware"
	"github.com/Proton-105/tagmystickies-bot/pkg/logger"
)

type probeResponse struct {
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Components []health.Result `json:"components,omitempty"`
}

// NewOpsRouter serves the liveness, readiness and metrics endpoints.
func NewOpsRouter(probes HealthChecker, log *slog.Logger) *mux.Router {
	if log == nil {
		log = slog.Default()
	}

	r := mux.NewRouter()
	r.Use(logger.Middleware, middleware.HTTPLogging(log))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := probes.Liveness(req.Context()); err != nil {
			writeProbe(w, log, http.StatusServiceUnavailable, probeResponse{Status: "FAIL", Error: err.Error()})
			return
		}
		writeProbe(w, log, http.StatusOK, probeResponse{Status: "OK"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, req *http.Request) {
		results, err := probes.Readiness(req.Context())
		if err != nil {
			writeProbe(w, log, http.StatusServiceUnavailable, probeResponse{Status: "FAIL", Error: err.Error(), Components: results})
			return
		}
		writeProbe(w, log, http.StatusOK, probeResponse{Status: "OK", Components: results})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func writeProbe(w http.ResponseWriter, log *slog.Logger, status int, body probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("failed to write probe response", slog.Any("error", err))
	}
}
