package payment

import (
	"encoding/json"
	"fmt"

	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	metaUserID = "user_id"
	metaPlan   = "plan"
)

var newCheckoutSession = session.New

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Prices maps plan ids to recurring Stripe price ids.
	Prices      map[string]string
	FrontendURL string
}

type StripeGateway struct {
	cfg StripeConfig
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &StripeGateway{cfg: cfg}
}

func (g *StripeGateway) Configured() bool {
	return g != nil && g.cfg.SecretKey != ""
}

// CheckoutURL creates a subscription-mode Checkout Session for plan and
// returns its hosted URL. The user id and plan ride along in the session and
// subscription metadata so webhooks can find the user again.
func (g *StripeGateway) CheckoutURL(userID uuid.UUID, email string, plan subscription.PlanID) (string, error) {
	price := g.cfg.Prices[string(plan)]
	if price == "" {
		return "", fmt.Errorf("no stripe price for plan %q", plan)
	}

	metadata := map[string]string{
		metaUserID: userID.String(),
		metaPlan:   string(plan),
	}
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(price),
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(userID.String()),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
		SuccessURL: stripe.String(g.cfg.FrontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(g.cfg.FrontendURL + "/pricing"),
	}
	if email != "" {
		params.CustomerEmail = stripe.String(email)
	}
	params.Metadata = metadata

	sess, err := newCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
}

// completedCheckout is what an activation needs out of a
// checkout.session.completed event.
type completedCheckout struct {
	UserID         uuid.UUID
	Plan           subscription.PlanID
	SessionID      string
	SubscriptionID string
	Email          string
}

func parseCompletedCheckout(raw json.RawMessage) (*completedCheckout, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	ref := sess.ClientReferenceID
	if ref == "" {
		ref = sess.Metadata[metaUserID]
	}
	userID, err := uuid.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has no valid user id", sess.ID)
	}

	out := &completedCheckout{
		UserID:    userID,
		Plan:      subscription.PlanID(sess.Metadata[metaPlan]),
		SessionID: sess.ID,
		Email:     sess.CustomerEmail,
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		out.Email = sess.CustomerDetails.Email
	}
	return out, nil
}

func parseDeletedSubscription(raw json.RawMessage) (string, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode subscription: %w", err)
	}
	if sub.ID == "" {
		return "", fmt.Errorf("subscription event has no id")
	}
	return sub.ID, nil
}
