// Package scenario projects illustrative value curves for allocation
// options. Everything here is pure and deterministic.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultHorizonDays = 30
	MaxHorizonDays     = 365
	DefaultBaseline    = "Hold SOL"

	liquidityEntryFee = 0.003
)

// Kind is a growth class.
type Kind string

const (
	KindStaking   Kind = "staking"
	KindLending   Kind = "lending"
	KindLiquidity Kind = "liquidity"
	KindStable    Kind = "stable"
	KindHold      Kind = "hold"
)

var apy = map[Kind]float64{
	KindStaking:   0.07,
	KindLending:   0.05,
	KindLiquidity: 0.12,
}

// Checked in order; the first class with a matching keyword wins.
var keywords = []struct {
	kind  Kind
	words []string
}{
	{KindLiquidity, []string{"lp", "pool", "liquidity", "amm"}},
	{KindLending, []string{"lend", "kamino", "marginfi", "solend"}},
	{KindStaking, []string{"stake", "staking", "jito", "msol", "marinade", "bsol", "blaze", "lst"}},
	{KindStable, []string{"usdc", "usdt", "stable"}},
	{KindHold, []string{"hold"}},
}

// Option is one allocation to project. It decodes from a bare string or
// from {"name": ..., "kind": ...}.
type Option struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind,omitempty"`
}

func (o *Option) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &o.Name)
	}
	type plain Option
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("option must be a string or {name, kind}: %w", err)
	}
	*o = Option(p)
	return nil
}

type Request struct {
	Options     []Option `json:"options"`
	Baseline    Option   `json:"baseline"`
	HorizonDays int      `json:"horizon_days"`
}

type Series struct {
	Name string    `json:"name"`
	T    []int     `json:"t"`
	V    []float64 `json:"v"`
}

type Result struct {
	Title   string   `json:"title"`
	Caption string   `json:"caption"`
	Series  []Series `json:"series"`
}

// Classify returns the growth class for an option. An explicit known kind
// wins over the name.
func Classify(o Option) Kind {
	switch k := Kind(strings.ToLower(string(o.Kind))); k {
	case KindStaking, KindLending, KindLiquidity, KindStable, KindHold:
		return k
	}
	name := strings.ToLower(o.Name)
	for _, group := range keywords {
		for _, w := range group.words {
			if strings.Contains(name, w) {
				return group.kind
			}
		}
	}
	return KindHold
}

// Project returns one series per option followed by the baseline series.
func Project(req Request) Result {
	horizon := req.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	if horizon > MaxHorizonDays {
		horizon = MaxHorizonDays
	}

	baseline := req.Baseline
	if strings.TrimSpace(baseline.Name) == "" {
		baseline.Name = DefaultBaseline
	}
	if baseline.Kind == "" {
		baseline.Kind = KindHold
	}

	out := Result{
		Title:   fmt.Sprintf("%d-day projection vs %s", horizon, baseline.Name),
		Caption: "Illustrative only. Fixed yield assumptions compounded daily; stable and hold stay flat.",
		Series:  make([]Series, 0, len(req.Options)+1),
	}
	for _, o := range req.Options {
		if strings.TrimSpace(o.Name) == "" {
			continue
		}
		out.Series = append(out.Series, curve(o.Name, Classify(o), horizon))
	}
	out.Series = append(out.Series, curve(baseline.Name, Classify(baseline), horizon))
	return out
}

func curve(name string, kind Kind, horizon int) Series {
	s := Series{Name: name, T: make([]int, horizon+1), V: make([]float64, horizon+1)}
	daily := apy[kind] / 365
	for t := 0; t <= horizon; t++ {
		v := math.Pow(1+daily, float64(t))
		if kind == KindLiquidity && t > 0 {
			v *= 1 - liquidityEntryFee
		}
		s.T[t] = t
		s.V[t] = round6(v)
	}
	return s
}

func round6(v float64) float64 {
	return decimal.NewFromFloat(v).Round(6).InexactFloat64()
}
