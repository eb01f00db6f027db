package swapengine

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/aman-zulfiqar/goblin-executor/internal/ledger"
	"github.com/aman-zulfiqar/goblin-executor/internal/metrics"
	"github.com/aman-zulfiqar/goblin-executor/internal/quotes"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type SwapRequest struct {
	Payer   string
	Amount  uint64
	RouteID string
}

type SwapResult struct {
	Signature string `json:"signature"`
	RouteID   string `json:"routeId"`
}

// ExecuteSwap signs and submits the route bound to the payer by the last
// RequestQuote. The quote is consumed whatever the outcome.
func (e *Engine) ExecuteSwap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	start := time.Now()
	res, serr := e.executeSwap(ctx, req)
	metrics.SwapDuration.Observe(time.Since(start).Seconds())
	if serr != nil {
		metrics.SwapRequests.WithLabelValues(string(serr.Code)).Inc()
		return nil, serr
	}
	metrics.SwapRequests.WithLabelValues("OK").Inc()
	return res, nil
}

func (e *Engine) executeSwap(ctx context.Context, req SwapRequest) (*SwapResult, *Error) {
	// Once started, a swap runs to a terminal state; only the step timeouts bound it.
	ctx = context.WithoutCancel(ctx)

	payer, perr := parsePayer(req.Payer)
	if perr != nil {
		return nil, perr
	}
	if req.Amount == 0 {
		return nil, newError(CodeInvalidAmount, http.StatusBadRequest, "inAmountLamports must be a positive integer")
	}
	if strings.TrimSpace(req.RouteID) == "" {
		return nil, newError(CodeInvalidRequest, http.StatusBadRequest, "routeId is required")
	}

	// A CONFIG_MISSING failure leaves the quote in place.
	chain, cerr := e.connect()
	if cerr != nil {
		return nil, cerr
	}
	key, kerr := e.signer()
	if kerr != nil {
		return nil, kerr
	}

	log := e.logger.WithFields(logrus.Fields{
		"payer":    req.Payer,
		"route_id": req.RouteID,
		"amount":   req.Amount,
	})
	st := newTracker(log)
	fail := func(err *Error) (*SwapResult, *Error) {
		st.to(StateFailed)
		log.WithField("code", err.Code).Warn(err.Message)
		return nil, err
	}

	st.to(StateValidating)
	rec, err := e.quotes.Take(req.Payer, req.RouteID, req.Amount)
	if err != nil {
		return fail(newError(CodeRequoteRequired, http.StatusConflict, "quote missing, mismatched or expired; request a new quote"))
	}

	readCtx, cancel := context.WithTimeout(ctx, e.cfg.QuoteTimeout)
	balance, snap, berr := e.balanceAndBuffer(readCtx, chain, payer)
	cancel()
	if berr != nil {
		return fail(berr)
	}
	if rec.Amount+snap.Total > balance {
		return fail(newError(CodeInsufficientSOL, http.StatusBadRequest, "balance dropped below amount plus reserve buffer").
			with("clamp", ClampInputs{Requested: rec.Amount, Balance: balance, BufferTotal: snap.Total, HardCap: e.cfg.HardCapLamports}).
			with("buffer", snap))
	}

	st.to(StateBuilding)
	tx, berr := e.build(ctx, rec)
	if berr != nil {
		return fail(berr)
	}

	if err := ledger.SignTx(tx, key); err != nil {
		return fail(upstream(CodeSwapFailed, http.StatusBadGateway, "signing failed", err))
	}
	st.to(StateSigned)

	sig, err := e.submit(ctx, chain, tx, st)
	if err != nil {
		logs, simErr := e.diagnose(ctx, chain, tx, log)
		serr := upstream(CodeSwapFailed, http.StatusBadGateway, "swap failed", err)
		serr.Logs = logs
		if sig != "" {
			serr.with("signature", sig)
		}
		if simErr != "" {
			serr.with("simulationError", Truncate(simErr))
		}
		return fail(serr)
	}

	st.to(StateConfirmed)
	log.WithField("signature", sig).Info("swap confirmed")
	return &SwapResult{Signature: sig, RouteID: rec.RouteID}, nil
}

// build asks the aggregator for the prebuilt transaction and decodes it.
func (e *Engine) build(ctx context.Context, rec quotes.Record) (*solana.Transaction, *Error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.BuildTimeout)
	defer cancel()

	resp, err := e.aggregator.SwapTransaction(ctx, jupiter.SwapRequest{
		QuoteResponse:                 rec.Quote,
		UserPublicKey:                 rec.Payer,
		WrapAndUnwrapSol:              true,
		DynamicComputeUnitLimit:       true,
		ComputeUnitPriceMicroLamports: rec.Hint.ComputeUnitPrice,
	})
	if err != nil {
		return nil, upstream(CodeSwapFailed, http.StatusBadGateway, "swap build failed", err)
	}
	if strings.TrimSpace(resp.SwapTransaction) == "" {
		return nil, newError(CodeSwapFailed, http.StatusBadGateway, "aggregator response missing swapTransaction")
	}

	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, upstream(CodeSwapFailed, http.StatusBadGateway, "swap transaction is not base64", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, upstream(CodeSwapFailed, http.StatusBadGateway, "swap transaction decode failed", err)
	}
	return tx, nil
}

// submit sends tx once and waits for confirmation. The signature is
// returned even when confirmation fails.
func (e *Engine) submit(ctx context.Context, chain Chain, tx *solana.Transaction, st *tracker) (string, error) {
	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.QuoteTimeout)
	sig, err := chain.SendTransaction(sendCtx, tx)
	cancel()
	if err != nil {
		return "", err
	}
	st.to(StateSubmitted)

	confirmCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()
	if err := chain.ConfirmTransaction(confirmCtx, sig, e.cfg.ConfirmTimeout); err != nil {
		return sig, err
	}
	return sig, nil
}

// diagnose replays tx to capture execution logs after a failed submission.
// It never returns an error; failures are logged and yield no logs.
func (e *Engine) diagnose(ctx context.Context, chain Chain, tx *solana.Transaction, log *logrus.Entry) ([]string, string) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.DiagnoseTimeout)
	defer cancel()

	res, err := chain.SimulateTransaction(ctx, tx)
	if err != nil {
		metrics.DiagnosticSimulations.WithLabelValues("error").Inc()
		log.WithError(err).Warn("diagnostic simulation failed")
		return nil, ""
	}
	if res == nil {
		metrics.DiagnosticSimulations.WithLabelValues("empty").Inc()
		return nil, ""
	}
	metrics.DiagnosticSimulations.WithLabelValues("ok").Inc()
	if len(res.Logs) == 0 {
		return nil, res.Error
	}
	return res.Logs, res.Error
}

// IsCode reports whether err is an engine error carrying code.
func IsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
