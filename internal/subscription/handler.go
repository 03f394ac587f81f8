package subscription

import (
	"context"
	"net/http"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/logger"

	"github.com/gin-gonic/gin"
)

type Notifier interface {
	SendSubscriptionCancelled(ctx context.Context, to, name string) error
}

type Handler struct {
	svc      Service
	notifier Notifier
}

func NewHandler(svc Service, notifier Notifier) *Handler {
	return &Handler{
		svc:      svc,
		notifier: notifier,
	}
}

type MySubscriptionResponse struct {
	Plan         PlanID        `json:"plan"`
	Subscription *Subscription `json:"subscription"`
}

// ListPlans godoc
// @Summary      List paid plans
// @Tags         subscription
// @Produce      json
// @Success      200  {array}  Plan
// @Router       /plans [get]
func (h *Handler) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, Plans())
}

// GetMine godoc
// @Summary      Current subscription
// @Description  Returns the caller's active subscription, or plan "free" when there is none.
// @Tags         subscription
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  MySubscriptionResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /subscription [get]
func (h *Handler) GetMine(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	sub, err := h.svc.GetActiveSubscription(c.Request.Context(), userID)
	if err != nil {
		logger.Error("failed to load subscription", "user_id", userID.String(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load subscription"})
		return
	}

	resp := MySubscriptionResponse{Plan: PlanFree, Subscription: sub}
	if sub.IsPaid() {
		resp.Plan = sub.PlanID
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel subscription
// @Description  Marks the active subscription cancelled. Succeeds when there is none.
// @Tags         subscription
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  api.MessageResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /subscription/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	ctx := c.Request.Context()
	cancelled, err := h.svc.CancelActiveSubscription(ctx, userID)
	if err != nil {
		logger.Error("failed to cancel subscription", "user_id", userID.String(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to cancel subscription"})
		return
	}

	if !cancelled {
		c.JSON(http.StatusOK, api.MessageResponse{Message: "no active subscription"})
		return
	}

	if email := auth.GetEmail(c); h.notifier != nil && email != "" {
		if err := h.notifier.SendSubscriptionCancelled(ctx, email, ""); err != nil {
			logger.Warn("failed to queue cancellation email", "user_id", userID.String(), "error", err)
		}
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "subscription cancelled"})
}
