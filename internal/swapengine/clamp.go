package swapengine

// ClampInputs are the values a clamp decision was made from. They are
// reported back when the clamp leaves nothing to trade.
type ClampInputs struct {
	Requested   uint64 `json:"requested"`
	Balance     uint64 `json:"balance"`
	BufferTotal uint64 `json:"bufferTotal"`
	HardCap     uint64 `json:"hardCap"`
}

// Clamp returns min(requested, balance-bufferTotal, hardCap) and whether the
// result is positive. A balance at or below the buffer clamps to zero.
func Clamp(in ClampInputs) (uint64, bool) {
	if in.Balance <= in.BufferTotal {
		return 0, false
	}
	out := in.Requested
	if spendable := in.Balance - in.BufferTotal; spendable < out {
		out = spendable
	}
	if in.HardCap < out {
		out = in.HardCap
	}
	return out, out > 0
}
