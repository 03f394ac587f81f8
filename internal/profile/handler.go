package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/entitlement"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SubscriptionReader interface {
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*subscription.Subscription, error)
}

type UsageReporter interface {
	Snapshot(ctx context.Context, userID uuid.UUID) entitlement.Snapshot
}

type Handler struct {
	svc   Service
	subs  SubscriptionReader
	usage UsageReporter
}

func NewHandler(svc Service, subs SubscriptionReader, usage UsageReporter) *Handler {
	return &Handler{
		svc:   svc,
		subs:  subs,
		usage: usage,
	}
}

type MeResponse struct {
	Profile      *Profile                   `json:"profile"`
	Subscription *subscription.Subscription `json:"subscription"`
	Usage        entitlement.Snapshot       `json:"usage"`
}

// GetMe godoc
// @Summary      Current user
// @Description  Profile, active subscription and usage for the caller.
// @Tags         profile
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  MeResponse
// @Failure      401  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /me [get]
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	p, err := h.svc.Ensure(ctx, userID, auth.GetEmail(c))
	if err != nil {
		logger.Error("failed to load profile", "user_id", userID.String(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load profile"})
		return
	}

	sub, err := h.subs.GetActiveSubscription(ctx, userID)
	if err != nil {
		logger.Warn("subscription unavailable for profile", "user_id", userID.String(), "error", err)
		sub = nil
	}

	c.JSON(http.StatusOK, MeResponse{
		Profile:      p,
		Subscription: sub,
		Usage:        h.usage.Snapshot(ctx, userID),
	})
}

// UpdateMe godoc
// @Summary      Update profile
// @Tags         profile
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      UpdateRequest  true  "Profile fields"
// @Success      200      {object}  Profile
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /me [put]
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Please enter your name", Field: "full_name"})
		return
	}

	p, err := h.svc.UpdateName(c.Request.Context(), userID, auth.GetEmail(c), req.FullName)
	if errors.Is(err, ErrEmptyName) {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Please enter your name", Field: "full_name"})
		return
	}
	if err != nil {
		logger.Error("failed to update profile", "user_id", userID.String(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, p)
}
