package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

// RefundQuote reports whether a payment is refundable and for how much.
type RefundQuote struct {
	Eligible    bool   `json:"eligible"`
	AmountCents int    `json:"amount_cents"`
	Reason      string `json:"reason,omitempty"`
}

// CalculateRefund prorates a refund linearly over the refund window. Elapsed
// time counts in whole days since the payment was created, truncated, so a
// payment keeps each day's rate until the next full day passes.
func CalculateRefund(payment *models.Payment, now time.Time, windowDays int) RefundQuote {
	if payment.Status != enums.PaymentStatusPaid {
		return RefundQuote{Reason: "payment is not in a refundable status"}
	}

	elapsedDays := int(now.Sub(payment.CreatedAt).Hours() / 24)
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	if elapsedDays > windowDays {
		return RefundQuote{Reason: "refund window has elapsed"}
	}

	// An eligible refund always pays at least one day's share, so the last
	// day of the window bottoms out at round(total/window) rather than zero.
	remainingDays := windowDays - elapsedDays
	if remainingDays < 1 {
		remainingDays = 1
	}

	amount := decimal.NewFromInt(int64(payment.TotalCents)).
		Mul(decimal.NewFromInt(int64(remainingDays))).
		Div(decimal.NewFromInt(int64(windowDays)))
	return RefundQuote{
		Eligible:    true,
		AmountCents: int(amount.Round(0).IntPart()),
	}
}
