package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/domain"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/server/handler"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/server/middleware"
	"github.com/alethena/Draggable-ServiceHunter-Shares/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per RateLimitWindow per client; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Claims serves the wrapper's embedded claim registry; EquityClaims serves
// the registry guarding the unwrapped share register.
type Handlers struct {
	Health       *handler.HealthHandler
	Status       *handler.StatusHandler
	Equity       *handler.TokenHandler
	Wrapper      *handler.WrapperHandler
	Claims       *handler.ClaimHandler
	EquityClaims *handler.ClaimHandler
	Events       *handler.EventHandler
}

// Server is the headless HTTP + WebSocket API for the share register.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health and status (no auth on health).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Equity register.
	mux.HandleFunc("GET /api/equity", handlers.Equity.GetInfo)
	mux.HandleFunc("GET /api/equity/holders", handlers.Equity.ListHolders)
	mux.HandleFunc("GET /api/equity/balance/{address}", handlers.Equity.GetBalance)
	mux.HandleFunc("GET /api/equity/allowance", handlers.Equity.GetAllowance)
	mux.HandleFunc("POST /api/equity/transfer", handlers.Equity.Transfer)
	mux.HandleFunc("POST /api/equity/approve", handlers.Equity.Approve)
	mux.HandleFunc("POST /api/equity/mint", handlers.Equity.Mint)
	mux.HandleFunc("PUT /api/equity/total-shares", handlers.Equity.SetTotalShares)
	mux.HandleFunc("POST /api/equity/announce", handlers.Equity.Announce)

	// Drag-along wrapper.
	mux.HandleFunc("GET /api/wrapper", handlers.Wrapper.GetInfo)
	mux.HandleFunc("GET /api/wrapper/holders", handlers.Wrapper.ListHolders)
	mux.HandleFunc("GET /api/wrapper/balance/{address}", handlers.Wrapper.GetBalance)
	mux.HandleFunc("POST /api/wrapper/wrap", handlers.Wrapper.Wrap)
	mux.HandleFunc("POST /api/wrapper/unwrap", handlers.Wrapper.Unwrap)
	mux.HandleFunc("POST /api/wrapper/burn", handlers.Wrapper.Burn)
	mux.HandleFunc("POST /api/wrapper/transfer", handlers.Wrapper.Transfer)
	mux.HandleFunc("POST /api/wrapper/migrate", handlers.Wrapper.Migrate)

	// Acquisition lifecycle.
	mux.HandleFunc("POST /api/acquisition/offer", handlers.Wrapper.InitiateOffer)
	mux.HandleFunc("GET /api/acquisition/offer", handlers.Wrapper.GetOffer)
	mux.HandleFunc("GET /api/acquisition/history", handlers.Wrapper.ListOfferHistory)
	mux.HandleFunc("POST /api/acquisition/vote", handlers.Wrapper.Vote)
	mux.HandleFunc("POST /api/acquisition/complete", handlers.Wrapper.Complete)
	mux.HandleFunc("POST /api/acquisition/cancel", handlers.Wrapper.Cancel)
	mux.HandleFunc("POST /api/acquisition/contest", handlers.Wrapper.Contest)

	// Lost-address claims. The same route set is mounted once per
	// claim-enabled token: the wrapper under /api/claims, the unwrapped
	// equity register under /api/equity/claims.
	registerClaimRoutes(mux, "/api/claims", handlers.Claims)
	if handlers.EquityClaims != nil {
		registerClaimRoutes(mux, "/api/equity/claims", handlers.EquityClaims)
	}

	// Transition journal, live and cold.
	mux.HandleFunc("GET /api/events", handlers.Events.List)
	mux.HandleFunc("GET /api/events/stream", handlers.Events.Stream)
	mux.HandleFunc("GET /api/events/archive", handlers.Events.ListArchives)
	mux.HandleFunc("GET /api/events/archive/{key...}", handlers.Events.GetArchive)

	// WebSocket feed.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey, "/api/health")(h)

	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateLimitWindow
		if window <= 0 {
			window = time.Second
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// registerClaimRoutes mounts the claim lifecycle under the given prefix.
func registerClaimRoutes(mux *http.ServeMux, prefix string, h *handler.ClaimHandler) {
	mux.HandleFunc("GET "+prefix, h.List)
	mux.HandleFunc("GET "+prefix+"/config", h.GetConfig)
	mux.HandleFunc("GET "+prefix+"/by-claimant/{claimant}", h.ListByClaimant)
	mux.HandleFunc("GET "+prefix+"/{target}", h.Get)
	mux.HandleFunc("POST "+prefix+"/prepare", h.Prepare)
	mux.HandleFunc("POST "+prefix+"/declare", h.Declare)
	mux.HandleFunc("POST "+prefix+"/clear", h.Clear)
	mux.HandleFunc("POST "+prefix+"/{target}/resolve", h.Resolve)
	mux.HandleFunc("DELETE "+prefix+"/{target}", h.Delete)
	mux.HandleFunc("PUT "+prefix+"/collateral-rate", h.SetCollateralRate)
	mux.HandleFunc("PUT "+prefix+"/period", h.SetPeriod)
	mux.HandleFunc("PUT "+prefix+"/claimable", h.SetClaimable)
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
