package swapengine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/aman-zulfiqar/goblin-executor/internal/metrics"
	"github.com/aman-zulfiqar/goblin-executor/internal/quotes"
	"github.com/aman-zulfiqar/goblin-executor/internal/routes"
	"github.com/sirupsen/logrus"
)

// RouteHint describes the desired pair. Input and Output take a symbol or a
// mint address.
type RouteHint struct {
	Input            string
	Output           string
	SlippageBps      *uint16
	InputDecimals    *int
	ComputeUnitPrice *uint64
}

type QuoteRequest struct {
	Payer  string
	Amount uint64 // requested, base units
	Hint   RouteHint
}

type QuoteResult struct {
	RouteID     string          `json:"routeId"`
	Amount      uint64          `json:"inAmountLamports"`
	Timestamp   int64           `json:"ts"`
	ExpiresInMs int64           `json:"expiresInMs"`
	Quote       json.RawMessage `json:"quote"`
}

// RequestQuote clamps the requested amount, fetches an aggregator route for
// it and binds the route to the payer, replacing any earlier quote.
func (e *Engine) RequestQuote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	res, qerr := e.requestQuote(ctx, req)
	if qerr != nil {
		metrics.QuoteRequests.WithLabelValues(string(qerr.Code)).Inc()
		return nil, qerr
	}
	metrics.QuoteRequests.WithLabelValues("OK").Inc()
	return res, nil
}

func (e *Engine) requestQuote(ctx context.Context, req QuoteRequest) (*QuoteResult, *Error) {
	e.quotes.Sweep()

	payer, perr := parsePayer(req.Payer)
	if perr != nil {
		return nil, perr
	}
	if req.Amount == 0 {
		return nil, newError(CodeInvalidAmount, http.StatusBadRequest, "inAmountLamports must be a positive integer")
	}
	if strings.TrimSpace(req.Hint.Input) == "" || strings.TrimSpace(req.Hint.Output) == "" {
		return nil, newError(CodeRouteHintRequired, http.StatusBadRequest, "routeHint needs an input and an output asset")
	}

	slippage := e.cfg.DefaultSlippageBps
	if req.Hint.SlippageBps != nil {
		slippage = *req.Hint.SlippageBps
	}
	if slippage == 0 || slippage > constants.MaxSlippageBps {
		return nil, newError(CodeInvalidRequest, http.StatusBadRequest, "slippageBps out of range").
			with("max", constants.MaxSlippageBps)
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QuoteTimeout)
	defer cancel()

	in, rerr := e.resolve(ctx, req.Hint.Input)
	if rerr != nil {
		return nil, rerr
	}
	out, rerr := e.resolve(ctx, req.Hint.Output)
	if rerr != nil {
		return nil, rerr
	}

	chain, cerr := e.connect()
	if cerr != nil {
		return nil, cerr
	}
	balance, snap, berr := e.balanceAndBuffer(ctx, chain, payer)
	if berr != nil {
		return nil, berr
	}

	inputs := ClampInputs{
		Requested:   req.Amount,
		Balance:     balance,
		BufferTotal: snap.Total,
		HardCap:     e.cfg.HardCapLamports,
	}
	amount, ok := Clamp(inputs)
	if !ok {
		return nil, newError(CodeInsufficientSOL, http.StatusBadRequest, "balance does not cover the reserve buffer").
			with("clamp", inputs).with("buffer", snap)
	}

	log := e.logger.WithFields(logrus.Fields{
		"payer":     req.Payer,
		"requested": req.Amount,
		"amount":    amount,
		"input":     in.Mint,
		"output":    out.Mint,
	})

	quote, err := e.aggregator.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   in.Mint,
		OutputMint:  out.Mint,
		Amount:      strconv.FormatUint(amount, 10),
		SlippageBps: &slippage,
	})
	if err != nil {
		log.WithError(err).Warn("aggregator quote failed")
		return nil, upstream(CodeRouteNotFound, http.StatusBadGateway, "aggregator quote failed", err)
	}

	decimals := in.Decimals
	if req.Hint.InputDecimals != nil {
		decimals = *req.Hint.InputDecimals
	}
	if decimals < 0 {
		decimals = constants.SOLDecimals
	}
	cuPrice := e.cfg.ComputeUnitPrice
	if req.Hint.ComputeUnitPrice != nil {
		cuPrice = req.Hint.ComputeUnitPrice
	}

	rec := quotes.Record{
		RouteID:   e.newRouteID(),
		Payer:     req.Payer,
		Amount:    amount,
		CreatedAt: e.now(),
		Quote:     quote.Raw,
		Hint: quotes.RouteHint{
			InputMint:        in.Mint,
			OutputMint:       out.Mint,
			SlippageBps:      slippage,
			InputDecimals:    decimals,
			ComputeUnitPrice: cuPrice,
		},
		Buffer: snap,
	}
	e.quotes.Put(rec)

	log.WithField("route_id", rec.RouteID).Info("quote issued")
	return &QuoteResult{
		RouteID:     rec.RouteID,
		Amount:      amount,
		Timestamp:   rec.CreatedAt.UnixMilli(),
		ExpiresInMs: e.quotes.TTL().Milliseconds(),
		Quote:       quote.Raw,
	}, nil
}

func (e *Engine) resolve(ctx context.Context, symbolOrMint string) (routes.Token, *Error) {
	tok, err := e.resolver.Resolve(ctx, symbolOrMint)
	if err == nil {
		return tok, nil
	}
	if errors.Is(err, routes.ErrNotFound) {
		return routes.Token{}, newError(CodeRouteNotFound, http.StatusBadRequest, "no mint found for "+Truncate(symbolOrMint)).
			with("symbol", Truncate(symbolOrMint))
	}
	return routes.Token{}, upstream(CodeUpstreamUnavailable, http.StatusServiceUnavailable, "route resolution failed", err)
}
