// Package pricing computes order totals in integer minor units. Rates and
// percentages go through shopspring/decimal so no float ever touches money.
package pricing

import (
	"hotelpro-backend/apperror"
	"hotelpro-backend/models"

	"github.com/shopspring/decimal"
)

// BasisPointsPerUnit is 100%.
const BasisPointsPerUnit = 10000

var (
	basisPoints = decimal.NewFromInt(BasisPointsPerUnit)
	maxMinor    = decimal.NewFromInt(1<<63 - 1)
)

type Line struct {
	Quantity  int64
	UnitPrice int64
}

// DiscountRule is a requested discount. Value is basis points for percentage
// rules and minor units for fixed ones.
type DiscountRule struct {
	Code  string              `json:"code"`
	Type  models.DiscountType `json:"type" validate:"required,oneof=percentage fixed"`
	Value int64               `json:"value" validate:"gte=0"`
}

type Totals struct {
	Subtotal      int64
	DiscountTotal int64
	Tax           int64
	Total         int64
	Applied       []models.Discount
}

// LineTotal returns quantity*unitPrice, failing when it does not fit in int64.
func LineTotal(l Line) (int64, error) {
	d := decimal.NewFromInt(l.Quantity).Mul(decimal.NewFromInt(l.UnitPrice))
	if d.GreaterThan(maxMinor) {
		return 0, apperror.Validation("line total overflows")
	}
	return d.IntPart(), nil
}

// Compute applies discounts in order, each capped at what is left of the
// subtotal, then taxes the discounted amount at taxBasisPoints.
func Compute(lines []Line, rules []DiscountRule, taxBasisPoints int64) (Totals, error) {
	var t Totals
	subtotal := decimal.Zero
	for _, l := range lines {
		lt, err := LineTotal(l)
		if err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(decimal.NewFromInt(lt))
	}
	if subtotal.GreaterThan(maxMinor) {
		return Totals{}, apperror.Validation("order subtotal overflows")
	}
	t.Subtotal = subtotal.IntPart()

	remaining := t.Subtotal
	for _, r := range rules {
		var amount int64
		switch r.Type {
		case models.DiscountPercentage:
			if r.Value < 0 || r.Value > BasisPointsPerUnit {
				return Totals{}, apperror.Validation("percentage discount %q must be between 0 and %d basis points", r.Code, BasisPointsPerUnit)
			}
			amount = ApplyBasisPoints(t.Subtotal, r.Value)
		case models.DiscountFixed:
			if r.Value < 0 {
				return Totals{}, apperror.Validation("fixed discount %q must not be negative", r.Code)
			}
			amount = r.Value
		default:
			return Totals{}, apperror.Validation("unknown discount type %q", r.Type)
		}
		if amount > remaining {
			amount = remaining
		}
		remaining -= amount
		t.DiscountTotal += amount
		t.Applied = append(t.Applied, models.Discount{
			Code:   r.Code,
			Type:   r.Type,
			Value:  r.Value,
			Amount: amount,
		})
	}

	t.Tax = ApplyBasisPoints(t.Subtotal-t.DiscountTotal, taxBasisPoints)
	t.Total = t.Subtotal - t.DiscountTotal + t.Tax
	return t, nil
}

// ApplyBasisPoints returns amount*bp/10000 rounded half away from zero.
func ApplyBasisPoints(amount, bp int64) int64 {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(bp)).
		Div(basisPoints).
		Round(0).
		IntPart()
}

// ParseRateBasisPoints converts a percent string such as "8.25" into basis
// points (825). More than two decimal places is rejected.
func ParseRateBasisPoints(percent string) (int64, error) {
	d, err := decimal.NewFromString(percent)
	if err != nil {
		return 0, apperror.Validation("invalid rate %q", percent)
	}
	bp := d.Mul(decimal.NewFromInt(100))
	if !bp.Equal(bp.Truncate(0)) {
		return 0, apperror.Validation("rate %q has more than two decimal places", percent)
	}
	return bp.IntPart(), nil
}

// FormatMinor renders minor units as a two-decimal amount, e.g. 1250 -> "12.50".
func FormatMinor(amount int64) string {
	return decimal.New(amount, -2).StringFixed(2)
}
