// Package swapengine turns a funding intent into a signed, confirmed swap.
//
// A swap is always two calls: RequestQuote clamps the amount against the
// live balance and stores the aggregator route for the payer, ExecuteSwap
// consumes exactly that route. A failed swap is never retried; the caller
// must quote again.
package swapengine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/buffer"
	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/aman-zulfiqar/goblin-executor/internal/ledger"
	"github.com/aman-zulfiqar/goblin-executor/internal/quotes"
	"github.com/aman-zulfiqar/goblin-executor/internal/routes"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Chain is the subset of the ledger connection the engine drives.
type Chain interface {
	GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error)
	ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) error
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*ledger.SimulationResult, error)
}

// Ledger hands out the shared connection and the signing key.
type Ledger interface {
	Connect() (Chain, error)
	Signer() (solana.PrivateKey, error)
}

type Aggregator interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
	SwapTransaction(ctx context.Context, req jupiter.SwapRequest) (*jupiter.SwapResponse, error)
}

type Resolver interface {
	Resolve(ctx context.Context, symbolOrMint string) (routes.Token, error)
}

// FromLedger adapts a ledger.Client to the engine's Ledger.
func FromLedger(c *ledger.Client) Ledger { return ledgerSource{c: c} }

type ledgerSource struct{ c *ledger.Client }

func (l ledgerSource) Connect() (Chain, error) {
	conn, err := l.c.Connect()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (l ledgerSource) Signer() (solana.PrivateKey, error) { return l.c.Signer() }

type Config struct {
	HardCapLamports    uint64
	Buffer             buffer.Calculator
	DefaultSlippageBps uint16
	ComputeUnitPrice   *uint64 // micro-lamports, used when the hint has none

	QuoteTimeout    time.Duration
	BuildTimeout    time.Duration
	ConfirmTimeout  time.Duration
	DiagnoseTimeout time.Duration
}

type Deps struct {
	Ledger     Ledger
	Aggregator Aggregator
	Resolver   Resolver
	Quotes     *quotes.Store
	Logger     *logrus.Logger
	NewRouteID func() string
	Now        func() time.Time
}

type Engine struct {
	cfg Config

	ledger     Ledger
	aggregator Aggregator
	resolver   Resolver
	quotes     *quotes.Store
	logger     *logrus.Logger
	newRouteID func() string
	now        func() time.Time
}

func New(cfg Config, deps Deps) *Engine {
	if cfg.DefaultSlippageBps == 0 {
		cfg.DefaultSlippageBps = constants.DefaultSlippageBps
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = constants.QuoteTimeout
	}
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = constants.BuildTimeout
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = constants.ConfirmTimeout
	}
	if cfg.DiagnoseTimeout <= 0 {
		cfg.DiagnoseTimeout = constants.DiagnoseTimeout
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.NewRouteID == nil {
		deps.NewRouteID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Quotes == nil {
		deps.Quotes = quotes.NewStore(constants.QuoteTTL, deps.Now)
	}

	return &Engine{
		cfg:        cfg,
		ledger:     deps.Ledger,
		aggregator: deps.Aggregator,
		resolver:   deps.Resolver,
		quotes:     deps.Quotes,
		logger:     deps.Logger,
		newRouteID: deps.NewRouteID,
		now:        deps.Now,
	}
}

// connect maps ledger configuration problems to CONFIG_MISSING.
func (e *Engine) connect() (Chain, *Error) {
	chain, err := e.ledger.Connect()
	if err != nil {
		return nil, configError(err)
	}
	return chain, nil
}

func (e *Engine) signer() (solana.PrivateKey, *Error) {
	key, err := e.ledger.Signer()
	if err != nil {
		return nil, configError(err)
	}
	return key, nil
}

func configError(err error) *Error {
	if errors.Is(err, ledger.ErrConfigMissing) {
		return &Error{Code: CodeConfigMissing, Status: http.StatusServiceUnavailable, Message: err.Error(), cause: err}
	}
	return upstream(CodeUpstreamUnavailable, http.StatusServiceUnavailable, "ledger connection", err)
}

// balanceAndBuffer reads the two ledger values every clamp depends on.
// SwapBudget is the longest ExecuteSwap can run: balance reads, build,
// send, confirmation and a diagnostic simulation.
func (e *Engine) SwapBudget() time.Duration {
	return 2*e.cfg.QuoteTimeout + e.cfg.BuildTimeout + e.cfg.ConfirmTimeout + e.cfg.DiagnoseTimeout
}

func (e *Engine) balanceAndBuffer(ctx context.Context, chain Chain, payer solana.PublicKey) (uint64, buffer.Snapshot, *Error) {
	bal, err := chain.GetBalance(ctx, payer)
	if err != nil {
		return 0, buffer.Snapshot{}, upstream(CodeUpstreamUnavailable, http.StatusServiceUnavailable, "balance read failed", err)
	}
	snap, err := e.cfg.Buffer.Compute(ctx, chain)
	if err != nil {
		return 0, buffer.Snapshot{}, upstream(CodeUpstreamUnavailable, http.StatusServiceUnavailable, "buffer computation failed", err)
	}
	return bal, snap, nil
}

func parsePayer(payer string) (solana.PublicKey, *Error) {
	pk, err := solana.PublicKeyFromBase58(payer)
	if err != nil || pk.IsZero() {
		return solana.PublicKey{}, newError(CodeInvalidPayer, http.StatusBadRequest, "payer must be a base58 public key")
	}
	return pk, nil
}
