package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// RouteOptions tunes the router.
type RouteOptions struct {
	// SearchRate caps search requests per second across all clients. Zero
	// disables the limit.
	SearchRate  float64
	SearchBurst int
}

// limit rejects requests with 429 once the limiter runs out of tokens.
func limit(l *rate.Limiter, next http.HandlerFunc) http.HandlerFunc {
	if l == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error:   "rate_limited",
				Message: "too many search requests",
			})
			return
		}
		next(w, r)
	}
}

func RegisterRoutes(h *Handler, opts RouteOptions) http.Handler {
	router := mux.NewRouter()

	var limiter *rate.Limiter
	if opts.SearchRate > 0 {
		burst := opts.SearchBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.SearchRate), burst)
	}

	// Map endpoints
	router.HandleFunc("/maps", h.CreateMap).Methods("POST")
	router.HandleFunc("/maps/{map_id}", h.GetMap).Methods("GET")

	// Obstacle endpoints
	router.HandleFunc("/maps/{map_id}/obstacles", h.ListObstacles).Methods("GET")
	router.HandleFunc("/maps/{map_id}/obstacles", h.AddObstacles).Methods("POST")
	router.HandleFunc("/maps/{map_id}/obstacles", h.ClearObstacles).Methods("DELETE")

	// Search endpoints
	router.HandleFunc("/maps/{map_id}/leaf", h.Locate).Methods("GET")
	router.HandleFunc("/maps/{map_id}/path", limit(limiter, h.FindPath)).Methods("POST")
	router.HandleFunc("/maps/{map_id}/flowfield", limit(limiter, h.FlowField)).Methods("POST")
	router.HandleFunc("/maps/{map_id}/next", limit(limiter, h.NextStep)).Methods("POST")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/healthz", HandleHealthCheck).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)

	return recovery(cors(router))
}
