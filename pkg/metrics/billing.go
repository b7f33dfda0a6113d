package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BillingMetrics records counters for the billing engine.
type BillingMetrics struct {
	paymentsProcessed *prometheus.CounterVec
	refundsProcessed  prometheus.Counter
	refundCents       prometheus.Counter
	commissionCents   prometheus.Counter
}

// NewBillingMetrics registers the billing metrics on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	paymentsProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Payments that reached a terminal or paid status, by status.",
	}, []string{"status"})
	refundsProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refunds_processed_total",
		Help: "Refunds processed.",
	})
	refundCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "refund_amount_cents_total",
		Help: "Total refunded amount in cents.",
	})
	commissionCents := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "commission_paid_cents_total",
		Help: "Total commission paid to partners in cents.",
	})
	reg.MustRegister(paymentsProcessed, refundsProcessed, refundCents, commissionCents)
	return &BillingMetrics{
		paymentsProcessed: paymentsProcessed,
		refundsProcessed:  refundsProcessed,
		refundCents:       refundCents,
		commissionCents:   commissionCents,
	}
}

// IncPaymentProcessed increments the processed counter for the given status.
func (b *BillingMetrics) IncPaymentProcessed(status string) {
	if b == nil || b.paymentsProcessed == nil {
		return
	}
	b.paymentsProcessed.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveRefund records a processed refund and its amount.
func (b *BillingMetrics) ObserveRefund(amountCents int) {
	if b == nil || b.refundsProcessed == nil {
		return
	}
	b.refundsProcessed.Inc()
	b.refundCents.Add(float64(amountCents))
}

// AddCommissionPaid records commission cents paid out to a partner.
func (b *BillingMetrics) AddCommissionPaid(amountCents int) {
	if b == nil || b.commissionCents == nil {
		return
	}
	b.commissionCents.Add(float64(amountCents))
}
