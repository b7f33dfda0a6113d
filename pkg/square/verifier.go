package square

import (
	"context"
	"strings"

	pkgerrors "github.com/harlowe-labs/scenthq-backend/pkg/errors"
)

const completedPaymentStatus = "COMPLETED"

// PaymentVerifier confirms a confirmation token against Square before a
// payment is marked paid. The token is the Square payment id.
type PaymentVerifier struct {
	client *Client
}

func NewPaymentVerifier(client *Client) *PaymentVerifier {
	return &PaymentVerifier{client: client}
}

func (v *PaymentVerifier) VerifyIntent(ctx context.Context, confirmationToken string) error {
	token := strings.TrimSpace(confirmationToken)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirmation token required")
	}
	if v == nil || v.client == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "square client not configured")
	}

	payment, err := v.client.GetPayment(ctx, token)
	if err != nil {
		return err
	}
	if payment == nil || stringValue(payment.GetStatus()) != completedPaymentStatus {
		return pkgerrors.New(pkgerrors.CodeValidation, "square payment not completed")
	}
	return nil
}
