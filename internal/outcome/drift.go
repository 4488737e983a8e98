package outcome

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/fairness"
)

var (
	one  = decimal.NewFromInt(1)
	cent = decimal.New(1, -2)
)

// Curve shapes the DRIFT game. Only the draw behind Target is fairness
// derived; HouseEdge, MaxTarget and GrowthRate are product tuning.
type Curve struct {
	HouseEdge  float64 `yaml:"house_edge"`
	MaxTarget  float64 `yaml:"max_target"`
	GrowthRate float64 `yaml:"growth_rate"` // per second
}

func DefaultCurve() Curve {
	return Curve{
		HouseEdge:  0.01,
		MaxTarget:  1000,
		GrowthRate: 0.1,
	}
}

// Target draws the crash multiplier for a round: (1-edge)/(1-u) floored to
// cents and clamped to [1.00, MaxTarget]. Most rounds end below 2x.
func (c Curve) Target(src fairness.Source, roundID string, roundNonce uint64) decimal.Decimal {
	u := fairness.Float64(src.Derive(fairness.RoundLabel(roundID), roundNonce, 0))

	raw := (1 - c.HouseEdge) / (1 - u)
	if c.MaxTarget > 1 && raw > c.MaxTarget {
		raw = c.MaxTarget
	}

	target := decimal.NewFromFloat(raw).Truncate(2)
	if target.LessThan(one) {
		return one
	}

	return target
}

// At is the displayed multiplier after elapsed running time.
func (c Curve) At(elapsed time.Duration) decimal.Decimal {
	if elapsed <= 0 {
		return one
	}

	m := math.Exp(c.GrowthRate * elapsed.Seconds())

	return decimal.NewFromFloat(m).Truncate(2)
}

// Next advances prev to the curve value at elapsed, moving at least one cent.
func (c Curve) Next(prev decimal.Decimal, elapsed time.Duration) decimal.Decimal {
	next := c.At(elapsed)
	if floor := prev.Add(cent); next.LessThan(floor) {
		return floor
	}

	return next
}
