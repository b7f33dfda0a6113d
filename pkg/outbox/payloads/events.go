// Package payloads holds the typed event bodies carried inside outbox
// envelopes. Field names are the wire contract consumed by downstream
// subscribers; changing one is a breaking schema change.
package payloads

// PaymentPaidEvent announces a settled payment.
type PaymentPaidEvent struct {
	OrgID      string `json:"orgId"`
	Tier       string `json:"tier"`
	TotalCents int    `json:"totalCents"`
}

// PaymentFailedEvent announces a payment forced into the failed state.
type PaymentFailedEvent struct {
	OrgID  string `json:"orgId"`
	Reason string `json:"reason"`
}

// PaymentRefundedEvent announces a prorated refund applied to a paid payment.
type PaymentRefundedEvent struct {
	OrgID       string `json:"orgId"`
	AmountCents int    `json:"amountCents"`
	Reason      string `json:"reason,omitempty"`
}

// SubscriptionCreatedEvent announces a first-time entitlement settling.
type SubscriptionCreatedEvent struct {
	OrgID string `json:"orgId"`
	Tier  string `json:"tier"`
}

// SubscriptionUpgradedEvent announces an entitlement moving to a higher tier.
type SubscriptionUpgradedEvent struct {
	OrgID string `json:"orgId"`
	Tier  string `json:"tier"`
}

// CommissionPaidEvent announces a partner commission payout.
type CommissionPaidEvent struct {
	PartnerID   string `json:"partnerId"`
	PaymentID   string `json:"paymentId"`
	AmountCents int    `json:"amountCents"`
	Reference   string `json:"reference"`
}
