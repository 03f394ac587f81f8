package analysis

import (
	"errors"
	"net/http"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/auth"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/usage"

	"github.com/gin-gonic/gin"
)

var retryMessages = map[usage.Feature]string{
	usage.FeaturePortfolioMonitor:   "Failed to analyze portfolio. Please try again.",
	usage.FeatureStockAnalyzer:      "Failed to analyze stock. Please try again.",
	usage.FeatureAlphaEdgeEvaluator: "Failed to evaluate position. Please try again.",
}

type Handler struct {
	svc        Service
	upgradeURL string
}

func NewHandler(svc Service, upgradeURL string) *Handler {
	return &Handler{
		svc:        svc,
		upgradeURL: upgradeURL,
	}
}

// AnalyzeStock godoc
// @Summary      Analyze a stock
// @Tags         analysis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      StockRequest  true  "Stock symbol"
// @Success      200      {object}  Result
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.UpgradeRequiredResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /analysis/stock [post]
func (h *Handler) AnalyzeStock(c *gin.Context) {
	var req StockRequest
	if !h.bind(c, &req) {
		return
	}
	h.invoke(c, req)
}

// AnalyzePortfolio godoc
// @Summary      Analyze a portfolio
// @Tags         analysis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      PortfolioRequest  true  "Stock symbols"
// @Success      200      {object}  Result
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.UpgradeRequiredResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /analysis/portfolio [post]
func (h *Handler) AnalyzePortfolio(c *gin.Context) {
	var req PortfolioRequest
	if !h.bind(c, &req) {
		return
	}
	h.invoke(c, req)
}

// EvaluatePosition godoc
// @Summary      Evaluate a position
// @Tags         analysis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      EvaluatorRequest  true  "Position details"
// @Success      200      {object}  Result
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.UpgradeRequiredResponse
// @Failure      502      {object}  api.ErrorResponse
// @Router       /analysis/evaluator [post]
func (h *Handler) EvaluatePosition(c *gin.Context) {
	var req EvaluatorRequest
	if !h.bind(c, &req) {
		return
	}
	h.invoke(c, req)
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) invoke(c *gin.Context, req Request) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return
	}

	result, err := h.svc.Invoke(c.Request.Context(), userID, req)
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	var verr *ValidationError
	var exhausted *ExhaustedError
	var terr *TransportError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: verr.Message, Field: verr.Field})
	case errors.As(err, &exhausted):
		c.JSON(http.StatusPaymentRequired, api.UpgradeRequiredResponse{
			Error:      exhausted.Error(),
			Feature:    string(exhausted.Feature),
			UpgradeURL: h.upgradeURL,
		})
	case errors.As(err, &terr), errors.Is(err, ErrEmptyResult):
		c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: retryMessages[req.Feature()]})
	default:
		logger.Error("analysis failed", "feature", string(req.Feature()), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: retryMessages[req.Feature()]})
	}
}
