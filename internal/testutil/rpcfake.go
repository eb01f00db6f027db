// Package testutil provides in-process fakes of the ledger JSON-RPC endpoint
// and the Jupiter HTTP API for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

// FakeRPC answers the subset of Solana JSON-RPC the executor uses.
type FakeRPC struct {
	mu sync.Mutex

	Balance        uint64
	RentExempt     uint64
	Signature      string // returned by sendTransaction
	SendError      *RPCErr
	StatusErr      any // non-nil marks the transaction failed on chain
	Unconfirmed    bool
	SimLogs        []string
	SimErr         any
	SimUnavailable bool // simulateTransaction answers HTTP 500

	// OnSend runs under the fake's lock when sendTransaction arrives.
	OnSend func(f *FakeRPC)

	calls map[string]int
	sent  []string
}

type RPCErr struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcRequest struct {
	ID     any               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func NewFakeRPC() *FakeRPC {
	return &FakeRPC{
		Balance:    1_000_000_000,
		RentExempt: 2_100_000,
		Signature:  "5wHu1qwD7q5ifaN5nwdcDqNFo53GJqa7nLp2BeeEpcHCusb4GzARz4GjgzsEHMkBMgCJMGa6GSQ1VG96Exv8kt2W",
		calls:      map[string]int{},
	}
}

// Start serves f on a new httptest server.
func (f *FakeRPC) Start() *httptest.Server {
	return httptest.NewServer(f)
}

func (f *FakeRPC) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Sent returns the base64 transactions passed to sendTransaction.
func (f *FakeRPC) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *FakeRPC) SetBalance(v uint64) {
	f.mu.Lock()
	f.Balance = v
	f.mu.Unlock()
}

func (f *FakeRPC) SetUnconfirmed(v bool) {
	f.mu.Lock()
	f.Unconfirmed = v
	f.mu.Unlock()
}

func (f *FakeRPC) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Method]++

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	ctx := map[string]any{"slot": 1}

	switch req.Method {
	case "getBalance":
		resp["result"] = map[string]any{"context": ctx, "value": f.Balance}
	case "getMinimumBalanceForRentExemption":
		resp["result"] = f.RentExempt
	case "sendTransaction":
		if len(req.Params) > 0 {
			var tx string
			_ = json.Unmarshal(req.Params[0], &tx)
			f.sent = append(f.sent, tx)
		}
		if f.OnSend != nil {
			f.OnSend(f)
		}
		if f.SendError != nil {
			resp["error"] = f.SendError
		} else {
			resp["result"] = f.Signature
		}
	case "getSignatureStatuses":
		if f.Unconfirmed {
			resp["result"] = map[string]any{"context": ctx, "value": []any{nil}}
			break
		}
		resp["result"] = map[string]any{"context": ctx, "value": []any{map[string]any{
			"slot":               2,
			"confirmations":      nil,
			"err":                f.StatusErr,
			"confirmationStatus": "confirmed",
		}}}
	case "simulateTransaction":
		if f.SimUnavailable {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp["result"] = map[string]any{"context": ctx, "value": map[string]any{
			"err":           f.SimErr,
			"logs":          f.SimLogs,
			"unitsConsumed": 1400,
		}}
	default:
		resp["error"] = RPCErr{Code: -32601, Message: "Method not found"}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
