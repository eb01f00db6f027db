// Package buffer computes how many lamports must stay in the wallet after a
// swap: enough to open a destination token account, pay the transaction fee
// and attach a priority tip.
package buffer

import (
	"context"
	"fmt"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
)

// RentSource is the ledger read the calculator depends on.
type RentSource interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error)
}

type Snapshot struct {
	RentExemptMinimum uint64 `json:"rentExemptMinimum"`
	BaseFee           uint64 `json:"baseFee"`
	PriorityTip       uint64 `json:"priorityTip"`
	Total             uint64 `json:"total"`
}

type Calculator struct {
	AccountSize uint64
	BaseFee     uint64
	PriorityTip uint64
}

func NewCalculator(accountSize, baseFee, priorityTip uint64) Calculator {
	if accountSize == 0 {
		accountSize = constants.TokenAccountSize
	}
	return Calculator{AccountSize: accountSize, BaseFee: baseFee, PriorityTip: priorityTip}
}

// Compute queries the current rent-exempt minimum. Results are never cached.
func (c Calculator) Compute(ctx context.Context, src RentSource) (Snapshot, error) {
	rent, err := src.GetMinimumBalanceForRentExemption(ctx, c.AccountSize)
	if err != nil {
		return Snapshot{}, fmt.Errorf("rent-exempt minimum: %w", err)
	}
	return Snapshot{
		RentExemptMinimum: rent,
		BaseFee:           c.BaseFee,
		PriorityTip:       c.PriorityTip,
		Total:             rent + c.BaseFee + c.PriorityTip,
	}, nil
}
