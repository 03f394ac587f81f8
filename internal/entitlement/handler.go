package entitlement

import (
	"net/http"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/usage"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type FeatureRemainingResponse struct {
	Feature   usage.Feature `json:"feature"`
	Limit     int           `json:"limit"`
	Remaining Remaining     `json:"remaining" swaggertype:"string"`
	CanUse    bool          `json:"can_use"`
}

// GetUsage godoc
// @Summary      Usage snapshot
// @Description  Plan plus used, limit and remaining for each metered feature.
// @Tags         usage
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  Snapshot
// @Failure      401  {object}  api.ErrorResponse
// @Router       /usage [get]
func (h *Handler) GetUsage(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, h.engine.Snapshot(c.Request.Context(), userID))
}

// GetFeatureUsage godoc
// @Summary      Remaining uses for one feature
// @Tags         usage
// @Security     BearerAuth
// @Produce      json
// @Param        feature  path      string  true  "portfolio_monitor, stock_analyzer or alphaedge_evaluator"
// @Success      200      {object}  FeatureRemainingResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      401      {object}  api.ErrorResponse
// @Router       /usage/{feature} [get]
func (h *Handler) GetFeatureUsage(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	feature, err := usage.ParseFeature(c.Param("feature"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	remaining := h.engine.RemainingUses(c.Request.Context(), userID, feature)
	c.JSON(http.StatusOK, FeatureRemainingResponse{
		Feature:   feature,
		Limit:     feature.FreeLimit(),
		Remaining: remaining,
		CanUse:    remaining.Allows(),
	})
}
