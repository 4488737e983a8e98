package outcome

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bx-rounds/internal/fairness"
)

var (
	ErrUnknownRisk = errors.New("unknown risk tier")
	ErrUnknownRows = errors.New("unsupported row count")
)

type Risk string

const (
	RiskEasy   Risk = "easy"
	RiskMedium Risk = "medium"
	RiskHard   Risk = "hard"
)

func ParseRisk(s string) (Risk, error) {
	switch r := Risk(s); r {
	case RiskEasy, RiskMedium, RiskHard:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRisk, s)
	}
}

// DefaultRows is the only board size the payout table covers.
const DefaultRows = 8

// payoutTable is indexed by risk, then rows, then bin. Edge bins carry the
// smallest multipliers; the centre bin carries the largest.
var payoutTable = map[Risk]map[int][]decimal.Decimal{
	RiskEasy:   {8: mults("0.4", "0.5", "0.7", "0.9", "1.8", "0.9", "0.7", "0.5", "0.4")},
	RiskMedium: {8: mults("0.2", "0.4", "0.6", "0.8", "2.5", "0.8", "0.6", "0.4", "0.2")},
	RiskHard:   {8: mults("0", "0.3", "0.5", "0.8", "5.6", "0.8", "0.5", "0.3", "0")},
}

func mults(vs ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vs))
	for i, v := range vs {
		out[i] = decimal.RequireFromString(v)
	}

	return out
}

// Multipliers returns a copy of the table row for risk and rows.
func Multipliers(risk Risk, rows int) ([]decimal.Decimal, error) {
	byRows, ok := payoutTable[risk]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRisk, risk)
	}

	row, ok := byRows[rows]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRows, rows)
	}

	out := make([]decimal.Decimal, len(row))
	copy(out, row)

	return out, nil
}

type PathOutcome struct {
	Path       []int           `json:"path"`
	Bin        int             `json:"bin"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// ResolvePath drops one ball: row i takes the low bit of the first byte of
// Derive(clientSeed, nonce, i) as its left(0)/right(1) step.
func ResolvePath(src fairness.Source, clientSeed string, nonce uint64, risk Risk, rows int) (PathOutcome, error) {
	table, err := Multipliers(risk, rows)
	if err != nil {
		return PathOutcome{}, err
	}

	path := make([]int, rows)
	bin := 0

	for i := range rows {
		step := int(src.Derive(clientSeed, nonce, i)[0] & 1)
		path[i] = step
		bin += step
	}

	return PathOutcome{
		Path:       path,
		Bin:        bin,
		Multiplier: table[bin],
	}, nil
}
