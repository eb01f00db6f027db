package server

import (
	"context"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Addr         string        // bind address, e.g. ":8080"
	DevMode      bool          // expose unexpected error messages
	APIKey       string        // optional X-API-Key for /quote and /swap
	RateLimitRPS float64       // per-client rate on /quote and /swap
	SwapBudget   time.Duration // longest a /swap may run; sizes the write timeout
}

const writeTimeoutMargin = 15 * time.Second

// ServerDeps contains dependencies required to create a new Server
type ServerDeps struct {
	Handlers *Handlers
	Config   ServerConfig
}

// Server owns the echo instance and its shutdown signal.
type Server struct {
	e      *echo.Echo
	addr   string
	closed chan struct{}
}

// NewServer builds the router. The write timeout outlasts the swap budget.
func NewServer(deps ServerDeps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = writeTimeout(deps.Config.SwapBudget)
	e.Server.IdleTimeout = 60 * time.Second

	RegisterRoutes(e, deps.Handlers, deps.Config)

	return &Server{e: e, addr: deps.Config.Addr, closed: make(chan struct{})}, nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() *echo.Echo { return s.e }

// Start blocks serving on the configured address.
func (s *Server) Start() error {
	return s.e.Start(s.addr)
}

// Shutdown drains in-flight swaps for at most 10 seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.closed)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

// WaitClosed returns once Shutdown has finished or ctx is done.
func (s *Server) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}

func writeTimeout(budget time.Duration) time.Duration {
	if budget <= 0 {
		budget = 2*constants.QuoteTimeout + constants.BuildTimeout + constants.ConfirmTimeout + constants.DiagnoseTimeout
	}
	return budget + writeTimeoutMargin
}
