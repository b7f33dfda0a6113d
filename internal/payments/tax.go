package payments

import (
	"github.com/shopspring/decimal"
)

// TaxCents computes the tax owed on a base amount at a rate expressed in
// basis points, rounded once, half away from zero. This is the only tax
// formula in the codebase.
func TaxCents(amountCents, rateBPS int) int {
	tax := decimal.NewFromInt(int64(amountCents)).
		Mul(decimal.NewFromInt(int64(rateBPS))).
		Div(decimal.NewFromInt(10000))
	return int(tax.Round(0).IntPart())
}
