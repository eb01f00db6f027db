package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/goblin-executor/internal/swapengine"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is empty")

// decodeBody reads exactly one JSON value from r into v.
func decodeBody(r io.Reader, v any) error {
	dec := json.NewDecoder(io.LimitReader(r, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func invalidRequest(err error) *swapengine.Error {
	return &swapengine.Error{
		Code:    swapengine.CodeInvalidRequest,
		Status:  http.StatusBadRequest,
		Message: swapengine.Truncate("invalid JSON body: " + err.Error()),
	}
}

func invalidAmount(msg string) *swapengine.Error {
	return &swapengine.Error{
		Code:    swapengine.CodeInvalidAmount,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

// parseLamports accepts a JSON integer or a string of decimal digits. Zero,
// negatives, fractions and exponents are rejected.
func parseLamports(raw json.RawMessage) (uint64, *swapengine.Error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, invalidAmount("inAmountLamports is required")
	}

	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, invalidAmount("inAmountLamports must be a positive integer")
		}
		s = strings.TrimSpace(s)
	}
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, invalidAmount("inAmountLamports must be a positive integer")
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, invalidAmount(fmt.Sprintf("inAmountLamports out of range: %s", swapengine.Truncate(s)))
	}
	if n == 0 {
		return 0, invalidAmount("inAmountLamports must be a positive integer")
	}
	return n, nil
}

func (b QuoteRequest) toEngine() (swapengine.QuoteRequest, *swapengine.Error) {
	amount, aerr := parseLamports(b.InAmountLamports)
	if aerr != nil {
		return swapengine.QuoteRequest{}, aerr
	}
	req := swapengine.QuoteRequest{Payer: strings.TrimSpace(b.Payer), Amount: amount}
	if b.RouteHint != nil {
		h := b.RouteHint
		req.Hint = swapengine.RouteHint{
			Input:            firstNonEmpty(h.InputMint, h.InputSymbol),
			Output:           firstNonEmpty(h.OutputMint, h.OutputSymbol),
			SlippageBps:      h.SlippageBps,
			InputDecimals:    h.InputDecimals,
			ComputeUnitPrice: h.ComputeUnitPriceMicroLamports,
		}
	}
	return req, nil
}

func (b SwapRequest) toEngine() (swapengine.SwapRequest, *swapengine.Error) {
	amount, aerr := parseLamports(b.InAmountLamports)
	if aerr != nil {
		return swapengine.SwapRequest{}, aerr
	}
	return swapengine.SwapRequest{
		Payer:   strings.TrimSpace(b.Payer),
		Amount:  amount,
		RouteID: strings.TrimSpace(b.RouteID),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
