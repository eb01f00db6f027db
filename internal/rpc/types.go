package rpc

import "fmt"

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Context is the slot context attached to most read responses
type Context struct {
	Slot uint64 `json:"slot"`
}

// BalanceResponse is the response from getBalance
type BalanceResponse struct {
	Result struct {
		Context Context `json:"context"`
		Value   uint64  `json:"value"` // lamports
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// Uint64Response wraps methods returning a bare integer (getMinimumBalanceForRentExemption)
type Uint64Response struct {
	Result uint64    `json:"result"`
	Error  *RPCError `json:"error"`
}

// StringResponse wraps methods returning a bare string (sendTransaction)
type StringResponse struct {
	Result string    `json:"result"`
	Error  *RPCError `json:"error"`
}

// SignatureStatus is a single entry of getSignatureStatuses
type SignatureStatus struct {
	Slot               uint64 `json:"slot"`
	Confirmations      *int   `json:"confirmations"`
	Err                any    `json:"err"`
	ConfirmationStatus string `json:"confirmationStatus"`
}

// SignatureStatusesResponse is the response from getSignatureStatuses
type SignatureStatusesResponse struct {
	Result struct {
		Context Context            `json:"context"`
		Value   []*SignatureStatus `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}

// SimulateResponse is the response from simulateTransaction
type SimulateResponse struct {
	Result struct {
		Context Context `json:"context"`
		Value   struct {
			Err           any      `json:"err"`
			Logs          []string `json:"logs"`
			UnitsConsumed *uint64  `json:"unitsConsumed,omitempty"`
		} `json:"value"`
	} `json:"result"`
	Error *RPCError `json:"error"`
}
