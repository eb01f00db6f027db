package server

import (
	"context"
	"net/http"

	"github.com/aman-zulfiqar/goblin-executor/internal/ledger"
	"github.com/aman-zulfiqar/goblin-executor/internal/scenario"
	"github.com/aman-zulfiqar/goblin-executor/internal/swapengine"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Trader is the swap engine surface the handlers drive.
type Trader interface {
	RequestQuote(ctx context.Context, req swapengine.QuoteRequest) (*swapengine.QuoteResult, error)
	ExecuteSwap(ctx context.Context, req swapengine.SwapRequest) (*swapengine.SwapResult, error)
}

// StatusReporter exposes ledger readiness without side effects.
type StatusReporter interface {
	Status() ledger.Status
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Engine  Trader         // Quote and swap orchestration
	Ledger  StatusReporter // Ledger configuration status for /health
	DevMode bool           // Include causes of unexpected errors in responses
	Logger  *logrus.Logger // Structured logger
}

// fail renders err as the standard error body.
func (h *Handlers) fail(c echo.Context, err error) error {
	e := swapengine.AsError(err)
	resp := ErrorResponse{
		Error:   string(e.Code),
		Message: e.Message,
		Code:    e.Status,
		Details: e.Details,
		Logs:    e.Logs,
	}
	if e.Code == swapengine.CodeUnexpected {
		h.Logger.WithError(err).WithField("path", c.Path()).Error("unexpected error")
		if !h.DevMode {
			resp.Message = "internal error"
		}
	}
	return c.JSON(e.Status, resp)
}

// Health reports ledger readiness. It answers 503 until both the RPC
// endpoint and the signing key are configured.
func (h *Handlers) Health(c echo.Context) error {
	st := h.Ledger.Status()
	resp := HealthResponse{
		OK:     st.Ready(),
		HasRPC: st.HasRPC,
		HasKey: st.HasKey,
		PubKey: st.PublicKey,
	}
	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}

// Quote clamps the requested amount and binds a fresh route to the payer.
func (h *Handlers) Quote(c echo.Context) error {
	var body QuoteRequest
	if err := decodeBody(c.Request().Body, &body); err != nil {
		return h.fail(c, invalidRequest(err))
	}
	req, verr := body.toEngine()
	if verr != nil {
		return h.fail(c, verr)
	}

	res, err := h.Engine.RequestQuote(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Swap executes the payer's last quote.
func (h *Handlers) Swap(c echo.Context) error {
	var body SwapRequest
	if err := decodeBody(c.Request().Body, &body); err != nil {
		return h.fail(c, invalidRequest(err))
	}
	req, verr := body.toEngine()
	if verr != nil {
		return h.fail(c, verr)
	}

	res, err := h.Engine.ExecuteSwap(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Simulate projects illustrative allocation curves.
func (h *Handlers) Simulate(c echo.Context) error {
	var req scenario.Request
	if err := decodeBody(c.Request().Body, &req); err != nil {
		return h.fail(c, invalidRequest(err))
	}
	return c.JSON(http.StatusOK, scenario.Project(req))
}
