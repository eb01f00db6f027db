package server

import (
	"encoding/json"

	"github.com/aman-zulfiqar/goblin-executor/internal/swapengine"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string         `json:"error"`             // Machine-readable code, e.g. REQUOTE_REQUIRED
	Message string         `json:"message,omitempty"` // Human-readable, truncated diagnostic
	Code    int            `json:"code"`              // HTTP status code
	Details map[string]any `json:"details,omitempty"` // Structured context, e.g. clamp inputs
	Logs    []string       `json:"logs,omitempty"`    // Simulation logs when a swap failed on chain
}

// HealthResponse reports whether the executor can trade
type HealthResponse struct {
	OK     bool   `json:"ok"`
	HasRPC bool   `json:"hasRPC"`
	HasKey bool   `json:"hasKey"`
	PubKey string `json:"pubkey,omitempty"`
}

// QuoteRequest is the POST /quote body
type QuoteRequest struct {
	Payer            string          `json:"payer"`
	InAmountLamports json.RawMessage `json:"inAmountLamports"` // integer or digit string
	RouteHint        *RouteHint      `json:"routeHint"`
}

// RouteHint names each side of the pair by mint or by symbol
type RouteHint struct {
	InputMint                     string  `json:"inputMint"`
	InputSymbol                   string  `json:"inputSymbol"`
	OutputMint                    string  `json:"outputMint"`
	OutputSymbol                  string  `json:"outputSymbol"`
	SlippageBps                   *uint16 `json:"slippageBps"`
	InputDecimals                 *int    `json:"inputDecimals"`
	ComputeUnitPriceMicroLamports *uint64 `json:"computeUnitPriceMicroLamports"`
}

// QuoteResponse is the POST /quote result
type QuoteResponse = swapengine.QuoteResult

// SwapRequest is the POST /swap body
type SwapRequest struct {
	Payer            string          `json:"payer"`
	InAmountLamports json.RawMessage `json:"inAmountLamports"`
	RouteID          string          `json:"routeId"`
}

// SwapResponse is the POST /swap result
type SwapResponse = swapengine.SwapResult
