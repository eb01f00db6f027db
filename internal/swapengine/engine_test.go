package swapengine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/buffer"
	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/aman-zulfiqar/goblin-executor/internal/ledger"
	"github.com/aman-zulfiqar/goblin-executor/internal/quotes"
	"github.com/aman-zulfiqar/goblin-executor/internal/routes"
	"github.com/aman-zulfiqar/goblin-executor/internal/testutil"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	eng   *Engine
	rpc   *testutil.FakeRPC
	jup   *testutil.FakeJupiter
	store *quotes.Store
	clock *clock
	payer string
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := quietLogger()

	rpcFake := testutil.NewFakeRPC()
	rpcSrv := rpcFake.Start()
	t.Cleanup(rpcSrv.Close)

	jupFake := testutil.NewFakeJupiter()
	jupFake.Tokens = []map[string]any{
		{"address": "WifMint111", "symbol": "WIF", "decimals": 6},
	}
	jupSrv := jupFake.Start()
	t.Cleanup(jupSrv.Close)

	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	lc := ledger.New(ledger.Config{
		RPCURL:       rpcSrv.URL,
		PrivateKey:   key.String(),
		RetryBackoff: time.Millisecond,
		Logger:       logger,
	})
	jc := jupiter.NewClient(jupSrv.URL, "").WithTokensURL(jupSrv.URL + "/tokens")

	c := &clock{t: time.Unix(1_700_000_000, 0)}
	store := quotes.NewStore(60*time.Second, c.now)

	eng := New(Config{
		HardCapLamports: 250_000_000,
		Buffer:          buffer.NewCalculator(constants.TokenAccountSize, 500_000, 100_000),
		ConfirmTimeout:  time.Second,
	}, Deps{
		Ledger:     FromLedger(lc),
		Aggregator: jc,
		Resolver:   routes.NewResolver(routes.Config{Source: jc, Logger: logger}),
		Quotes:     store,
		Logger:     logger,
		Now:        c.now,
	})

	return &harness{
		eng:   eng,
		rpc:   rpcFake,
		jup:   jupFake,
		store: store,
		clock: c,
		payer: key.PublicKey().String(),
	}
}

func (h *harness) quote(t *testing.T, amount uint64) *QuoteResult {
	t.Helper()
	res, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer:  h.payer,
		Amount: amount,
		Hint:   RouteHint{Input: "SOL", Output: "USDC"},
	})
	require.NoError(t, err)
	return res
}

func (h *harness) swap(routeID string, amount uint64) (*SwapResult, error) {
	return h.eng.ExecuteSwap(context.Background(), SwapRequest{Payer: h.payer, Amount: amount, RouteID: routeID})
}

func requireCode(t *testing.T, err error, code Code, status int) *Error {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "not an engine error: %v", err)
	assert.Equal(t, code, e.Code)
	assert.Equal(t, status, e.Status)
	return e
}

func TestRequestQuote_HardCapGoverns(t *testing.T) {
	h := newHarness(t)

	res := h.quote(t, 2_000_000_000)

	assert.Equal(t, uint64(250_000_000), res.Amount)
	assert.NotEmpty(t, res.RouteID)
	assert.Equal(t, int64(60_000), res.ExpiresInMs)
	assert.Equal(t, h.clock.now().UnixMilli(), res.Timestamp)

	var q map[string]any
	require.NoError(t, json.Unmarshal(res.Quote, &q))
	assert.Equal(t, "250000000", q["inAmount"])

	params := h.jup.LastQuoteParams()
	assert.Equal(t, constants.MintWSOL, params["inputMint"])
	assert.Equal(t, constants.MintUSDC, params["outputMint"])
	assert.Equal(t, "250000000", params["amount"])
	assert.Equal(t, "50", params["slippageBps"])

	rec, ok := h.store.Get(h.payer)
	require.True(t, ok)
	assert.Equal(t, uint64(2_700_000), rec.Buffer.Total)
	assert.Equal(t, 9, rec.Hint.InputDecimals)
}

func TestRequestQuote_BalanceGoverns(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetBalance(102_700_000)

	res := h.quote(t, 200_000_000)
	assert.Equal(t, uint64(100_000_000), res.Amount)
}

func TestRequestQuote_InsufficientSOL(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetBalance(2_700_000)

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 1, Hint: RouteHint{Input: "SOL", Output: "USDC"},
	})
	e := requireCode(t, err, CodeInsufficientSOL, http.StatusBadRequest)
	assert.Equal(t, ClampInputs{Requested: 1, Balance: 2_700_000, BufferTotal: 2_700_000, HardCap: 250_000_000}, e.Details["clamp"])
	assert.Equal(t, 0, h.jup.Calls("/quote"))
}

func TestRequestQuote_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	hint := RouteHint{Input: "SOL", Output: "USDC"}

	_, err := h.eng.RequestQuote(ctx, QuoteRequest{Payer: "not-a-key", Amount: 1, Hint: hint})
	requireCode(t, err, CodeInvalidPayer, http.StatusBadRequest)

	_, err = h.eng.RequestQuote(ctx, QuoteRequest{Payer: h.payer, Amount: 0, Hint: hint})
	requireCode(t, err, CodeInvalidAmount, http.StatusBadRequest)

	_, err = h.eng.RequestQuote(ctx, QuoteRequest{Payer: h.payer, Amount: 1, Hint: RouteHint{Input: "SOL"}})
	requireCode(t, err, CodeRouteHintRequired, http.StatusBadRequest)

	bad := uint16(9_000)
	_, err = h.eng.RequestQuote(ctx, QuoteRequest{Payer: h.payer, Amount: 1, Hint: RouteHint{Input: "SOL", Output: "USDC", SlippageBps: &bad}})
	requireCode(t, err, CodeInvalidRequest, http.StatusBadRequest)

	assert.Equal(t, 0, h.rpc.Calls("getBalance"))
	assert.Equal(t, 0, h.jup.Calls("/quote"))
}

func TestRequestQuote_UnknownSymbol(t *testing.T) {
	h := newHarness(t)

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 1, Hint: RouteHint{Input: "SOL", Output: "FOO"},
	})
	e := requireCode(t, err, CodeRouteNotFound, http.StatusBadRequest)
	assert.Equal(t, "FOO", e.Details["symbol"])
	assert.Equal(t, 0, h.jup.Calls("/quote"))
}

func TestRequestQuote_CatalogSymbol(t *testing.T) {
	h := newHarness(t)
	res, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 1_000, Hint: RouteHint{Input: "SOL", Output: "wif"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), res.Amount)
	assert.Equal(t, "WifMint111", h.jup.LastQuoteParams()["outputMint"])
}

func TestRequestQuote_CatalogOutageIsUpstreamFailure(t *testing.T) {
	h := newHarness(t)
	h.jup.TokensDown = true

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 100_000_000, Hint: RouteHint{Input: "SOL", Output: "wif"},
	})
	requireCode(t, err, CodeUpstreamUnavailable, http.StatusServiceUnavailable)
	assert.Equal(t, 0, h.jup.Calls("/quote"))
	assert.Equal(t, 0, h.store.Len())
}

func TestRequestQuote_AggregatorFailure(t *testing.T) {
	h := newHarness(t)
	h.jup.QuoteStatus = http.StatusInternalServerError

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 1, Hint: RouteHint{Input: "SOL", Output: "USDC"},
	})
	e := requireCode(t, err, CodeRouteNotFound, http.StatusBadGateway)
	assert.LessOrEqual(t, len(e.Message), constants.MaxDiagnosticLength)
	assert.Equal(t, 0, h.store.Len())
}

func TestRequestQuote_ConfigMissing(t *testing.T) {
	h := newHarness(t)
	h.eng.ledger = FromLedger(ledger.New(ledger.Config{Logger: quietLogger()}))

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 1, Hint: RouteHint{Input: "SOL", Output: "USDC"},
	})
	requireCode(t, err, CodeConfigMissing, http.StatusServiceUnavailable)
}

func TestRequestQuote_FailedRequestStillSweepsExpired(t *testing.T) {
	h := newHarness(t)
	h.quote(t, 100_000_000)
	require.Equal(t, 1, h.store.Len())

	h.clock.advance(61 * time.Second)

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: "not-a-key", Amount: 1, Hint: RouteHint{Input: "SOL", Output: "USDC"},
	})
	requireCode(t, err, CodeInvalidPayer, http.StatusBadRequest)
	assert.Equal(t, 0, h.store.Len())
}

func TestRequestQuote_FailedRequestKeepsLiveQuotes(t *testing.T) {
	h := newHarness(t)
	h.quote(t, 100_000_000)

	h.clock.advance(30 * time.Second)

	_, err := h.eng.RequestQuote(context.Background(), QuoteRequest{
		Payer: h.payer, Amount: 0, Hint: RouteHint{Input: "SOL", Output: "USDC"},
	})
	requireCode(t, err, CodeInvalidAmount, http.StatusBadRequest)
	assert.Equal(t, 1, h.store.Len())
}

func TestExecuteSwap_CallerCancelAfterSendStillConfirms(t *testing.T) {
	h := newHarness(t)
	h.eng.cfg.ConfirmTimeout = 5 * time.Second
	q := h.quote(t, 100_000_000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.rpc.Unconfirmed = true
	h.rpc.OnSend = func(*testutil.FakeRPC) {
		cancel()
		go func() {
			time.Sleep(100 * time.Millisecond)
			h.rpc.SetUnconfirmed(false)
		}()
	}

	res, err := h.eng.ExecuteSwap(ctx, SwapRequest{Payer: h.payer, Amount: q.Amount, RouteID: q.RouteID})
	require.NoError(t, err)
	assert.Equal(t, h.rpc.Signature, res.Signature)
	assert.Len(t, h.rpc.Sent(), 1)
	assert.Equal(t, 0, h.rpc.Calls("simulateTransaction"))
}

func TestExecuteSwap_Success(t *testing.T) {
	h := newHarness(t)
	q := h.quote(t, 2_000_000_000)

	res, err := h.swap(q.RouteID, q.Amount)
	require.NoError(t, err)
	assert.Equal(t, h.rpc.Signature, res.Signature)
	assert.Equal(t, q.RouteID, res.RouteID)
	assert.Equal(t, 0, h.store.Len())

	// the aggregator got the quote payload back verbatim
	sent := h.jup.LastSwapRequest()
	assert.JSONEq(t, string(q.Quote), string(sent["quoteResponse"]))
	assert.Equal(t, `"`+h.payer+`"`, string(sent["userPublicKey"]))

	// the submitted transaction carries a real signature from the wallet
	require.Len(t, h.rpc.Sent(), 1)
	sentTx, err := solana.TransactionFromBase64(h.rpc.Sent()[0])
	require.NoError(t, err)
	require.NoError(t, sentTx.VerifySignatures())
	assert.Equal(t, h.payer, sentTx.Message.AccountKeys[0].String())
	assert.Equal(t, 0, h.rpc.Calls("simulateTransaction"))

	// the quote is consumed
	_, err = h.swap(q.RouteID, q.Amount)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)
}

func TestExecuteSwap_RouteMismatch(t *testing.T) {
	h := newHarness(t)
	h.rpc.SetBalance(10_000_000_000)
	q := h.quote(t, 200_000_000)

	_, err := h.swap(q.RouteID+"-other", q.Amount)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)

	// the mismatch removed the record, so the original route is gone too
	_, err = h.swap(q.RouteID, q.Amount)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)
	assert.Equal(t, 0, h.jup.Calls("/swap"))
}

func TestExecuteSwap_AmountMismatch(t *testing.T) {
	h := newHarness(t)
	q := h.quote(t, 200_000_000)

	_, err := h.swap(q.RouteID, q.Amount-1)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)
}

func TestExecuteSwap_ExpiredQuote(t *testing.T) {
	h := newHarness(t)
	q := h.quote(t, 200_000_000)

	h.clock.advance(61 * time.Second)
	_, err := h.swap(q.RouteID, q.Amount)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)
	assert.Equal(t, 0, h.jup.Calls("/swap"))
}

func TestExecuteSwap_SecondQuoteInvalidatesFirst(t *testing.T) {
	h := newHarness(t)
	first := h.quote(t, 100_000_000)
	second := h.quote(t, 100_000_000)
	require.NotEqual(t, first.RouteID, second.RouteID)

	_, err := h.swap(first.RouteID, first.Amount)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)
}

func TestExecuteSwap_BalanceDroppedAfterQuote(t *testing.T) {
	h := newHarness(t)
	q := h.quote(t, 250_000_000)

	h.rpc.SetBalance(250_000_000)
	_, err := h.swap(q.RouteID, q.Amount)
	e := requireCode(t, err, CodeInsufficientSOL, http.StatusBadRequest)
	assert.Contains(t, e.Details, "clamp")
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, 0, h.jup.Calls("/swap"))
}

func TestExecuteSwap_MissingTransactionPayload(t *testing.T) {
	h := newHarness(t)
	h.jup.OmitSwapTx = true
	q := h.quote(t, 200_000_000)

	_, err := h.swap(q.RouteID, q.Amount)
	e := requireCode(t, err, CodeSwapFailed, http.StatusBadGateway)
	assert.Nil(t, e.Logs)
	assert.Equal(t, 0, h.store.Len())
	assert.Empty(t, h.rpc.Sent())
}

func TestExecuteSwap_BuildFailure(t *testing.T) {
	h := newHarness(t)
	h.jup.SwapStatus = http.StatusBadRequest
	q := h.quote(t, 200_000_000)

	_, err := h.swap(q.RouteID, q.Amount)
	requireCode(t, err, CodeSwapFailed, http.StatusBadGateway)
	assert.Equal(t, 0, h.store.Len())
}

func TestExecuteSwap_SubmitFailureIsDiagnosedNotRetried(t *testing.T) {
	h := newHarness(t)
	h.rpc.SendError = &testutil.RPCErr{Code: -32002, Message: "Transaction simulation failed: " + strings.Repeat("x", 400)}
	h.rpc.SimErr = map[string]any{"InstructionError": []any{0, "InsufficientFunds"}}
	h.rpc.SimLogs = []string{"Program log: Error: insufficient funds"}
	q := h.quote(t, 200_000_000)

	_, err := h.swap(q.RouteID, q.Amount)
	e := requireCode(t, err, CodeSwapFailed, http.StatusBadGateway)
	assert.Equal(t, []string{"Program log: Error: insufficient funds"}, e.Logs)
	assert.Contains(t, e.Message, "Transaction simulation failed")
	assert.LessOrEqual(t, len(e.Message), constants.MaxDiagnosticLength)
	assert.Contains(t, e.Details, "simulationError")

	assert.Equal(t, 1, h.rpc.Calls("sendTransaction"))
	assert.Equal(t, 1, h.rpc.Calls("simulateTransaction"))
	assert.Equal(t, 0, h.store.Len())

	// no implicit retry: the same route is refused
	_, err = h.swap(q.RouteID, q.Amount)
	requireCode(t, err, CodeRequoteRequired, http.StatusConflict)
	assert.Equal(t, 1, h.rpc.Calls("sendTransaction"))
}

func TestExecuteSwap_SimulationFailureKeepsPrimaryError(t *testing.T) {
	h := newHarness(t)
	h.rpc.StatusErr = map[string]any{"InstructionError": []any{1, map[string]any{"Custom": 6001}}}
	h.rpc.SimUnavailable = true
	q := h.quote(t, 200_000_000)

	_, err := h.swap(q.RouteID, q.Amount)
	e := requireCode(t, err, CodeSwapFailed, http.StatusBadGateway)
	assert.Contains(t, e.Message, "transaction failed")
	assert.Nil(t, e.Logs)
	assert.Equal(t, h.rpc.Signature, e.Details["signature"])
}

func TestExecuteSwap_ConfigMissingKeepsQuote(t *testing.T) {
	h := newHarness(t)
	q := h.quote(t, 200_000_000)

	h.eng.ledger = FromLedger(ledger.New(ledger.Config{RPCURL: "http://127.0.0.1:1", Logger: quietLogger()}))
	_, err := h.swap(q.RouteID, q.Amount)
	requireCode(t, err, CodeConfigMissing, http.StatusServiceUnavailable)
	assert.Equal(t, 1, h.store.Len())
}

func TestExecuteSwap_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.eng.ExecuteSwap(ctx, SwapRequest{Payer: "x", Amount: 1, RouteID: "r"})
	requireCode(t, err, CodeInvalidPayer, http.StatusBadRequest)

	_, err = h.eng.ExecuteSwap(ctx, SwapRequest{Payer: h.payer, Amount: 0, RouteID: "r"})
	requireCode(t, err, CodeInvalidAmount, http.StatusBadRequest)

	_, err = h.eng.ExecuteSwap(ctx, SwapRequest{Payer: h.payer, Amount: 1})
	requireCode(t, err, CodeInvalidRequest, http.StatusBadRequest)
}

func TestExecuteSwap_ConcurrentSwapsSignOnce(t *testing.T) {
	h := newHarness(t)
	q := h.quote(t, 200_000_000)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.swap(q.RouteID, q.Amount)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.True(t, IsCode(err, CodeRequoteRequired))
		}
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, h.rpc.Sent(), 1)
}

func TestSwapBudget_CoversEveryStep(t *testing.T) {
	eng := New(Config{}, Deps{})
	assert.Equal(t, 120*time.Second, eng.SwapBudget())

	eng = New(Config{QuoteTimeout: time.Second, BuildTimeout: 2 * time.Second, ConfirmTimeout: 3 * time.Second, DiagnoseTimeout: 4 * time.Second}, Deps{})
	assert.Equal(t, 11*time.Second, eng.SwapBudget())
}
