/*
Package exercise implements the aggregation engine and the daily goal
tracker on top of the generic ledger.

PURPOSE:
  Every session tracks one kind of exercise. The kind decides what a valid
  amount looks like; everything else (clamping, totals, goals) is shared.

KINDS:
  counted: whole repetitions (push-ups). Amounts must be integers.
  timed:   durations in quarter units (plank minutes). Amounts must be
           exact multiples of 0.25.

SEE ALSO:
  - recorder.go: RecordDelta, the dual-ledger write
  - goals.go: Targets, today's progress, goal history
  - roster.go: Players and leaderboard
*/
package exercise

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/repboard/generic"
)

// Kind is the exercise a session tracks.
type Kind string

const (
	KindCounted Kind = "counted"
	KindTimed   Kind = "timed"
)

var (
	hundred     = decimal.NewFromInt(100)
	quarterStep = decimal.NewFromInt(25)
)

// ParseKind accepts the canonical names plus the legacy "pushups" and
// "plank" aliases. Empty defaults to counted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "counted", "pushups":
		return KindCounted, nil
	case "timed", "plank":
		return KindTimed, nil
	}
	return "", &generic.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown exercise kind %q", s)}
}

// Unit names what one amount unit means, for display.
func (k Kind) Unit() string {
	if k == KindTimed {
		return "minutes"
	}
	return "reps"
}

// ValidateAmount rejects amounts the kind cannot represent. Zero is rejected
// for every kind since it would only append no-op rows.
func (k Kind) ValidateAmount(amount decimal.Decimal) error {
	if amount.IsZero() {
		return &generic.ValidationError{Field: "amount", Message: "amount must be non-zero"}
	}
	switch k {
	case KindCounted:
		if !amount.IsInteger() {
			return &generic.ValidationError{Field: "amount", Message: "amount must be a whole number"}
		}
	case KindTimed:
		// amount*100 mod 25 == 0, exact in decimal
		if !amount.Mul(hundred).Mod(quarterStep).IsZero() {
			return &generic.ValidationError{Field: "amount", Message: "amount must be a multiple of 0.25"}
		}
	default:
		return &generic.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown exercise kind %q", string(k))}
	}
	return nil
}
