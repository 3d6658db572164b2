package service

import (
	"strings"

	"github.com/loanops/commsync/internal/model"
	"github.com/shopspring/decimal"
)

// epsilon is the tolerance for comparing the stored monetary value against
// the computed target. Values within one cent are considered equal, which
// keeps reconciliation idempotent across the API's float round-trips.
var epsilon = decimal.NewFromFloat(0.01)

// CommissionFor computes the target opportunity value: loan * rate, rounded
// half-up to the cent. The rounding policy is load-bearing: it is what makes
// a second reconcile of an unchanged record a no-op.
func CommissionFor(loan, rate decimal.Decimal) decimal.Decimal {
	return loan.Mul(rate).Round(2)
}

// NeedsUpdate reports whether the stored value differs from the target by
// more than epsilon. A nil stored value always needs an update.
func NeedsUpdate(current *float64, target decimal.Decimal) bool {
	if current == nil {
		return !target.IsZero()
	}
	diff := target.Sub(decimal.NewFromFloat(*current)).Abs()
	return diff.GreaterThan(epsilon)
}

// Preview computes what a reconcile of opp would write, for dry-run tooling.
func Preview(opp *model.Opportunity, fieldKey string, rate decimal.Decimal) (loan, target decimal.Decimal, ok bool) {
	loan, ok = loanAmountFrom(opp, fieldKey)
	if !ok || loan.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, decimal.Zero, false
	}
	return loan, CommissionFor(loan, rate), true
}

// loanAmountFrom extracts the loan amount from the opportunity's custom
// fields, matched by field ID or key. Currency-formatted strings like
// "$150,000.50" are accepted. Returns false when the field is absent or
// unparseable.
func loanAmountFrom(opp *model.Opportunity, fieldKey string) (decimal.Decimal, bool) {
	for _, field := range opp.CustomFields {
		if field.ID != fieldKey && field.Key != fieldKey {
			continue
		}
		return ParseAmount(field.Value)
	}
	return decimal.Zero, false
}

// ParseAmount converts a raw custom-field or webhook value into a decimal.
func ParseAmount(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(v))
		if cleaned == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
