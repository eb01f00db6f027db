package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// FakeJupiter serves /quote, /swap and /tokens with canned data.
type FakeJupiter struct {
	mu sync.Mutex

	QuoteStatus int // non-200 makes /quote fail
	SwapStatus  int
	OmitSwapTx  bool
	Tokens      []map[string]any
	TokensDown  bool // /tokens answers 503

	calls     map[string]int
	lastQuote map[string]string
	lastSwap  map[string]json.RawMessage
}

func NewFakeJupiter() *FakeJupiter {
	return &FakeJupiter{
		QuoteStatus: http.StatusOK,
		SwapStatus:  http.StatusOK,
		calls:       map[string]int{},
	}
}

func (f *FakeJupiter) Start() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", f.quote)
	mux.HandleFunc("/swap", f.swap)
	mux.HandleFunc("/tokens", f.tokens)
	return httptest.NewServer(mux)
}

func (f *FakeJupiter) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// LastQuoteParams returns the query of the most recent /quote call.
func (f *FakeJupiter) LastQuoteParams() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuote
}

// LastSwapRequest returns the JSON fields of the most recent /swap body.
func (f *FakeJupiter) LastSwapRequest() map[string]json.RawMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSwap
}

func (f *FakeJupiter) quote(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls["/quote"]++
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}
	f.lastQuote = q
	status := f.QuoteStatus
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"no route found"}`))
		return
	}

	amount, _ := strconv.ParseUint(q["amount"], 10, 64)
	writeJSON(w, map[string]any{
		"inputMint":            q["inputMint"],
		"outputMint":           q["outputMint"],
		"inAmount":             q["amount"],
		"outAmount":            strconv.FormatUint(amount/1000*150, 10),
		"otherAmountThreshold": strconv.FormatUint(amount/1000*149, 10),
		"swapMode":             "ExactIn",
		"slippageBps":          50,
		"priceImpactPct":       "0.0001",
		"routePlan": []any{map[string]any{
			"swapInfo": map[string]any{
				"ammKey":     "HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ",
				"label":      "Whirlpool",
				"inputMint":  q["inputMint"],
				"outputMint": q["outputMint"],
				"inAmount":   q["amount"],
				"outAmount":  "1",
			},
			"percent": 100,
		}},
		"contextSlot": 1,
	})
}

func (f *FakeJupiter) swap(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.calls["/swap"]++
	f.lastSwap = body
	status, omit := f.SwapStatus, f.OmitSwapTx
	f.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"swap build failed"}`))
		return
	}
	if omit {
		writeJSON(w, map[string]any{"lastValidBlockHeight": 10})
		return
	}

	var user string
	_ = json.Unmarshal(body["userPublicKey"], &user)
	payer, err := solana.PublicKeyFromBase58(user)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	tx, err := UnsignedTransfer(payer)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"swapTransaction":           tx,
		"lastValidBlockHeight":      10,
		"prioritizationFeeLamports": 5000,
	})
}

func (f *FakeJupiter) tokens(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.calls["/tokens"]++
	tokens, down := f.Tokens, f.TokensDown
	f.mu.Unlock()
	if down {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, tokens)
}

// UnsignedTransfer builds a base64 transaction paid by payer, the way the
// aggregator hands back swap transactions.
func UnsignedTransfer(payer solana.PublicKey) (string, error) {
	to := solana.MustPublicKeyFromBase58("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1, payer, to).Build()},
		solana.Hash{},
		solana.TransactionPayer(payer),
	)
	if err != nil {
		return "", err
	}
	// Zeroed placeholders, as the aggregator returns them.
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
