package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	projectrpc "github.com/aman-zulfiqar/goblin-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
)

// Conn is the shared handle to the ledger RPC endpoint. It carries no
// per-request state.
type Conn struct {
	rpc        *projectrpc.Client
	commitment string
}

// SimulationResult contains simulation output
type SimulationResult struct {
	Success       bool
	Error         string
	Logs          []string
	UnitsConsumed uint64
}

// GetBalance returns the lamport balance of owner.
func (c *Conn) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	params := []any{
		owner.String(),
		map[string]any{"commitment": c.commitment},
	}

	var resp projectrpc.BalanceResponse
	if err := c.rpc.Call(ctx, "getBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("getBalance RPC failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getBalance: %w", resp.Error)
	}
	return resp.Result.Value, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account holding dataSize bytes.
func (c *Conn) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	params := []any{
		dataSize,
		map[string]any{"commitment": c.commitment},
	}

	var resp projectrpc.Uint64Response
	if err := c.rpc.Call(ctx, "getMinimumBalanceForRentExemption", params, &resp); err != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption RPC failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption: %w", resp.Error)
	}
	return resp.Result, nil
}

// SendTransaction submits a signed transaction exactly once.
func (c *Conn) SendTransaction(ctx context.Context, tx *solana.Transaction) (string, error) {
	encodedTx, err := encodeTx(tx)
	if err != nil {
		return "", err
	}

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": c.commitment,
			"maxRetries":          0,
		},
	}

	var resp projectrpc.StringResponse
	if err := c.rpc.CallOnce(ctx, "sendTransaction", params, &resp); err != nil {
		return "", fmt.Errorf("sendTransaction RPC failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("sendTransaction: %w", resp.Error)
	}
	return resp.Result, nil
}

// ConfirmTransaction polls for transaction confirmation
func (c *Conn) ConfirmTransaction(ctx context.Context, signature string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		confirmed, err := c.checkSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("transaction confirmation timeout after %v", timeout)
}

func (c *Conn) checkSignatureStatus(ctx context.Context, signature string) (bool, error) {
	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}

	var resp projectrpc.SignatureStatusesResponse
	if err := c.rpc.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return false, fmt.Errorf("getSignatureStatuses RPC failed: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getSignatureStatuses: %w", resp.Error)
	}

	if len(resp.Result.Value) == 0 || resp.Result.Value[0] == nil || resp.Result.Value[0].ConfirmationStatus == "" {
		return false, nil // Not yet processed
	}

	status := resp.Result.Value[0]
	if status.Err != nil {
		return false, fmt.Errorf("transaction failed: %v", status.Err)
	}

	switch c.commitment {
	case "processed":
		return true, nil
	case "finalized":
		return status.ConfirmationStatus == "finalized", nil
	default:
		return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
	}
}

// SimulateTransaction replays tx against current bank state. A returned
// result is always populated with whatever logs the node produced; err is
// set only when the simulation itself could not run.
func (c *Conn) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*SimulationResult, error) {
	encodedTx, err := encodeTx(tx)
	if err != nil {
		return nil, err
	}

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":               "base64",
			"commitment":             "processed",
			"sigVerify":              false,
			"replaceRecentBlockhash": true,
		},
	}

	var resp projectrpc.SimulateResponse
	if err := c.rpc.Call(ctx, "simulateTransaction", params, &resp); err != nil {
		return nil, fmt.Errorf("simulateTransaction RPC failed: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("simulateTransaction: %w", resp.Error)
	}

	result := &SimulationResult{
		Success: resp.Result.Value.Err == nil,
		Logs:    resp.Result.Value.Logs,
	}
	if resp.Result.Value.UnitsConsumed != nil {
		result.UnitsConsumed = *resp.Result.Value.UnitsConsumed
	}
	if !result.Success {
		result.Error = fmt.Sprintf("%v", resp.Result.Value.Err)
	}
	return result, nil
}

// SignTx clears any placeholder signatures and signs tx with key. Every
// required signer must be key.
func SignTx(tx *solana.Transaction, key solana.PrivateKey) error {
	pub := key.PublicKey()
	tx.Signatures = nil
	_, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

func encodeTx(tx *solana.Transaction) (string, error) {
	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(txBytes), nil
}
