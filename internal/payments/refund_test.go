package payments

import (
	"testing"
	"time"

	"github.com/harlowe-labs/scenthq-backend/pkg/db/models"
	"github.com/harlowe-labs/scenthq-backend/pkg/enums"
)

func TestTaxCents(t *testing.T) {
	cases := []struct {
		name    string
		amount  int
		rateBPS int
		want    int
	}{
		{name: "default rate", amount: 10000, rateBPS: 800, want: 800},
		{name: "rounds half up", amount: 1234, rateBPS: 800, want: 99},
		{name: "zero rate", amount: 10000, rateBPS: 0, want: 0},
		{name: "top tier price", amount: 59900, rateBPS: 800, want: 4792},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TaxCents(tc.amount, tc.rateBPS); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func paidDaysAgo(totalCents, days int) *models.Payment {
	return &models.Payment{
		Status:     enums.PaymentStatusPaid,
		TotalCents: totalCents,
		CreatedAt:  time.Now().Add(-time.Duration(days) * 24 * time.Hour),
	}
}

func TestCalculateRefund(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name       string
		payment    *models.Payment
		wantAmount int
		eligible   bool
	}{
		{name: "same day refunds full total", payment: paidDaysAgo(3000, 0), eligible: true, wantAmount: 3000},
		{name: "ten days prorates", payment: paidDaysAgo(3000, 10), eligible: true, wantAmount: 2000},
		{name: "last window day pays one day's share", payment: paidDaysAgo(3000, 30), eligible: true, wantAmount: 100},
		{name: "day before window closes", payment: paidDaysAgo(3000, 29), eligible: true, wantAmount: 100},
		{name: "past the window", payment: paidDaysAgo(3000, 31), eligible: false},
		{name: "future timestamp clamps to full total", payment: paidDaysAgo(3000, -2), eligible: true, wantAmount: 3000},
		{
			name: "pending payment",
			payment: &models.Payment{
				Status:     enums.PaymentStatusPending,
				TotalCents: 3000,
				CreatedAt:  now,
			},
			eligible: false,
		},
		{
			name: "already refunded",
			payment: &models.Payment{
				Status:     enums.PaymentStatusRefunded,
				TotalCents: 3000,
				CreatedAt:  now,
			},
			eligible: false,
		},
		{name: "rounds once", payment: paidDaysAgo(1000, 7), eligible: true, wantAmount: 767},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote := CalculateRefund(tc.payment, now, 30)
			if quote.Eligible != tc.eligible {
				t.Fatalf("expected eligible=%v, got %v (%s)", tc.eligible, quote.Eligible, quote.Reason)
			}
			if !tc.eligible {
				if quote.AmountCents != 0 {
					t.Fatalf("ineligible quote must be zero, got %d", quote.AmountCents)
				}
				if quote.Reason == "" {
					t.Fatal("ineligible quote must carry a reason")
				}
				return
			}
			if quote.AmountCents != tc.wantAmount {
				t.Fatalf("expected %d cents, got %d", tc.wantAmount, quote.AmountCents)
			}
		})
	}
}

func TestCalculateRefundMonotonic(t *testing.T) {
	now := time.Now()
	prev := int(^uint(0) >> 1)
	for days := 0; days <= 30; days++ {
		quote := CalculateRefund(paidDaysAgo(3000, days), now, 30)
		if !quote.Eligible {
			t.Fatalf("day %d should be eligible", days)
		}
		if quote.AmountCents > prev {
			t.Fatalf("refund grew from %d to %d at day %d", prev, quote.AmountCents, days)
		}
		prev = quote.AmountCents
	}
}
