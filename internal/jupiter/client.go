package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://lite-api.jup.ag/swap/v1"
	DefaultTokensURL = "https://lite-api.jup.ag/tokens/v1/tagged/verified"

	maxErrorBody = 300
)

type Client struct {
	BaseURL   string
	TokensURL string
	APIKey    string
	HTTP      *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   baseURL,
		TokensURL: DefaultTokensURL,
		APIKey:    strings.TrimSpace(apiKey),
		HTTP: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// WithTokensURL overrides the token catalog endpoint. Blank keeps the default.
func (c *Client) WithTokensURL(u string) *Client {
	if u = strings.TrimSpace(u); u != "" {
		c.TokensURL = u
	}
	return c
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	if b == "" {
		return fmt.Sprintf("jupiter http %d", e.StatusCode)
	}
	return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if strings.TrimSpace(req.InputMint) == "" {
		return nil, fmt.Errorf("inputMint is required")
	}
	if strings.TrimSpace(req.OutputMint) == "" {
		return nil, fmt.Errorf("outputMint is required")
	}
	if strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("amount is required")
	}

	q := url.Values{
		"inputMint":  {req.InputMint},
		"outputMint": {req.OutputMint},
		"amount":     {req.Amount},
	}
	if req.SlippageBps != nil {
		q.Set("slippageBps", strconv.FormatUint(uint64(*req.SlippageBps), 10))
	}

	body, err := c.do(ctx, http.MethodGet, c.BaseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	out.Raw = json.RawMessage(body)
	return &out, nil
}

// SwapTransaction asks the aggregator to build an unsigned transaction for a
// previously obtained quote. A response without a transaction payload is
// returned as-is; callers decide how to treat it.
func (c *Client) SwapTransaction(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if len(req.QuoteResponse) == 0 {
		return nil, fmt.Errorf("quoteResponse is required")
	}
	if strings.TrimSpace(req.UserPublicKey) == "" {
		return nil, fmt.Errorf("userPublicKey is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode swap request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.BaseURL+"/swap", payload)
	if err != nil {
		return nil, err
	}

	var out SwapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter swap response: %w", err)
	}
	return &out, nil
}

// Tokens fetches the verified token catalog.
func (c *Client) Tokens(ctx context.Context) ([]Token, error) {
	body, err := c.do(ctx, http.MethodGet, c.TokensURL, nil)
	if err != nil {
		return nil, err
	}

	var raw []Token
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter token list: %w", err)
	}

	out := raw[:0]
	for _, t := range raw {
		if t.Address == "" {
			t.Address = t.ID
		}
		if t.Address == "" || t.Symbol == "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte) ([]byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("content-type", "application/json")
	}
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	return body, nil
}
