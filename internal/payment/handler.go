package payment

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/gin-gonic/gin"
)

const maxWebhookBytes = int64(65536)

type Handler struct {
	payments *Service
	razorpay *RazorpayClient
	stripe   *StripeGateway
}

func NewHandler(payments *Service, razorpay *RazorpayClient, stripe *StripeGateway) *Handler {
	return &Handler{
		payments: payments,
		razorpay: razorpay,
		stripe:   stripe,
	}
}

type PlanRequest struct {
	PlanID subscription.PlanID `json:"plan_id" binding:"required"`
}

type OrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type VerifyRequest struct {
	PaymentID string              `json:"razorpay_payment_id" binding:"required"`
	OrderID   string              `json:"razorpay_order_id" binding:"required"`
	Signature string              `json:"razorpay_signature" binding:"required"`
	PlanID    subscription.PlanID `json:"plan_id" binding:"required"`
}

type ActivationResponse struct {
	Message      string                     `json:"message"`
	Subscription *subscription.Subscription `json:"subscription"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

func paidPlan(c *gin.Context, id subscription.PlanID) (subscription.Plan, bool) {
	plan, err := subscription.FindPlan(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid plan selected", Field: "plan_id"})
		return subscription.Plan{}, false
	}
	return plan, true
}

// CreateRazorpayOrder godoc
// @Summary      Create a Razorpay order
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PlanRequest  true  "Plan"
// @Success      200      {object}  OrderResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /payments/razorpay/order [post]
func (h *Handler) CreateRazorpayOrder(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	if !h.razorpay.Configured() {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "Razorpay is not configured"})
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid plan selected", Field: "plan_id"})
		return
	}
	plan, ok := paidPlan(c, req.PlanID)
	if !ok {
		return
	}

	receipt := fmt.Sprintf("portiq_%d", time.Now().UnixNano())
	order, err := h.razorpay.CreateOrder(c.Request.Context(), plan.PricePaise, plan.Currency, receipt, map[string]string{
		metaUserID: userID.String(),
		metaPlan:   string(plan.ID),
	})
	if err != nil {
		logger.Error("razorpay order failed", "user_id", userID.String(), "error", err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Failed to create order"})
		return
	}

	c.JSON(http.StatusOK, OrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    h.razorpay.KeyID(),
	})
}

// VerifyRazorpayPayment godoc
// @Summary      Verify a Razorpay payment and activate the plan
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      VerifyRequest  true  "Checkout callback"
// @Success      200      {object}  ActivationResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /payments/razorpay/verify [post]
func (h *Handler) VerifyRazorpayPayment(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Payment verification failed"})
		return
	}
	plan, ok := paidPlan(c, req.PlanID)
	if !ok {
		return
	}

	if err := h.razorpay.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		logger.Warn("razorpay signature mismatch", "user_id", userID.String(), "order_id", req.OrderID)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Payment verification failed"})
		return
	}

	ctx := c.Request.Context()
	order, err := h.razorpay.FetchOrder(ctx, req.OrderID)
	if err != nil {
		logger.Error("razorpay order lookup failed", "user_id", userID.String(), "order_id", req.OrderID, "error", err)
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "Could not confirm payment, please try again"})
		return
	}
	if err := order.Matches(userID.String(), string(plan.ID), plan.PricePaise, plan.Currency); err != nil {
		logger.Warn("razorpay order does not match request",
			"user_id", userID.String(),
			"order_id", req.OrderID,
			"plan", string(plan.ID),
			"error", err,
		)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Payment verification failed"})
		return
	}

	sub, err := h.payments.Activate(ctx, userID, auth.GetEmail(c), plan.ID,
		subscription.PaymentRefs{PaymentRef: req.PaymentID}, GatewayRazorpay)
	if errors.Is(err, subscription.ErrPaymentAlreadyApplied) {
		logger.Warn("razorpay payment replayed", "user_id", userID.String(), "payment_id", req.PaymentID)
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "This payment has already been applied"})
		return
	}
	if err != nil {
		logger.CaptureError(err, "activation after verified payment failed", map[string]interface{}{
			"user_id":    userID.String(),
			"payment_id": req.PaymentID,
		})
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to activate subscription"})
		return
	}

	c.JSON(http.StatusOK, ActivationResponse{Message: "subscription activated", Subscription: sub})
}

// CreateStripeCheckout godoc
// @Summary      Start a Stripe Checkout session
// @Tags         payments
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PlanRequest  true  "Plan"
// @Success      200      {object}  CheckoutResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      503      {object}  api.ErrorResponse
// @Router       /payments/stripe/checkout [post]
func (h *Handler) CreateStripeCheckout(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	if !h.stripe.Configured() {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "billing not configured"})
		return
	}

	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid plan selected", Field: "plan_id"})
		return
	}
	if _, ok := paidPlan(c, req.PlanID); !ok {
		return
	}

	url, err := h.stripe.CheckoutURL(userID, auth.GetEmail(c), req.PlanID)
	if err != nil {
		logger.Error("stripe checkout failed", "user_id", userID.String(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to create checkout session"})
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{URL: url})
}

// StripeWebhook godoc
// @Summary      Stripe webhook receiver
// @Tags         payments
// @Accept       json
// @Produce      json
// @Success      200  {object}  api.MessageResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /webhooks/stripe [post]
func (h *Handler) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payload"})
		return
	}

	event, err := h.stripe.ConstructEvent(body, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logger.Warn("stripe webhook signature failed", "error", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "signature verification failed"})
		return
	}
	if event.Data == nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	switch event.Type {
	case "checkout.session.completed":
		done, err := parseCompletedCheckout(event.Data.Raw)
		if err != nil {
			logger.Error("stripe checkout event rejected", "event_id", event.ID, "error", err)
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid session payload"})
			return
		}

		_, err = h.payments.Activate(ctx, done.UserID, done.Email, done.Plan, subscription.PaymentRefs{
			PaymentRef:   done.SessionID,
			RecurringRef: done.SubscriptionID,
		}, GatewayStripe)
		if errors.Is(err, subscription.ErrUnknownPlan) || errors.Is(err, subscription.ErrFreePlan) {
			logger.Error("stripe checkout carried unusable plan", "event_id", event.ID, "plan", string(done.Plan))
			c.JSON(http.StatusOK, api.MessageResponse{Message: "ignored"})
			return
		}
		if errors.Is(err, subscription.ErrPaymentAlreadyApplied) {
			logger.Info("stripe checkout already applied", "event_id", event.ID, "session_id", done.SessionID)
			c.JSON(http.StatusOK, api.MessageResponse{Message: "already processed"})
			return
		}
		if err != nil {
			logger.CaptureError(err, "stripe activation failed", map[string]interface{}{
				"event_id": event.ID,
				"user_id":  done.UserID.String(),
			})
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update subscription"})
			return
		}

	case "customer.subscription.deleted":
		ref, err := parseDeletedSubscription(event.Data.Raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid subscription payload"})
			return
		}
		if err := h.payments.CancelRecurring(ctx, ref, GatewayStripe); err != nil {
			logger.Error("stripe cancellation failed", "event_id", event.ID, "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update subscription"})
			return
		}
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}
