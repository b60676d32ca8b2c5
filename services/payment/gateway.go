package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// Gateway is the payment-gateway boundary the resolution engine refunds
// through. Confirmation callbacks and checkout flows live outside the core.
type Gateway interface {
	Refund(ctx context.Context, gatewayRef string, amount int64) (string, error)
}

// StripeGateway implements Gateway against the Stripe refunds API. The global
// stripe key is set once in main.
type StripeGateway struct {
	Logger *zap.Logger
}

// NewStripeGateway constructs a StripeGateway.
func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{Logger: logger}
}

func (g *StripeGateway) Refund(ctx context.Context, gatewayRef string, amount int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(gatewayRef),
		Amount:        stripe.Int64(amount),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		g.Logger.Error("stripe refund failed",
			zap.String("payment_intent", gatewayRef),
			zap.Int64("amount", amount),
			zap.Error(err))
		return "", fmt.Errorf("stripe refund: %w", err)
	}
	g.Logger.Info("stripe refund issued",
		zap.String("payment_intent", gatewayRef),
		zap.String("refund_id", r.ID))
	return r.ID, nil
}
