package analysis

import (
	"encoding/json"
	"net/http"

	"github.com/SanchitCoder/PortIQ/internal/api"
	"github.com/SanchitCoder/PortIQ/internal/logger"

	"github.com/gin-gonic/gin"
)

const chatFallback = "I apologize, but I encountered an error. Please try again."

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

// ChatHandler relays assistant messages to the chat webhook. Chat is not
// metered.
type ChatHandler struct {
	poster Poster
	url    string
}

func NewChatHandler(poster Poster, url string) *ChatHandler {
	return &ChatHandler{
		poster: poster,
		url:    url,
	}
}

// Chat godoc
// @Summary      Ask the assistant
// @Tags         analysis
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ChatRequest  true  "Message"
// @Success      200      {object}  ChatResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Please enter a message", Field: "message"})
		return
	}
	message := cleanText(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Please enter a message", Field: "message"})
		return
	}

	body, err := h.poster.Post(c.Request.Context(), h.url, gin.H{"message": message})
	if err != nil {
		logger.Warn("chat webhook failed", "error", err)
		c.JSON(http.StatusOK, ChatResponse{Response: chatFallback})
		return
	}

	var reply struct {
		Response any `json:"response"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		c.JSON(http.StatusOK, ChatResponse{Response: chatFallback})
		return
	}
	text, _ := reply.Response.(string)
	if text == "" {
		text = chatFallback
	}
	c.JSON(http.StatusOK, ChatResponse{Response: text})
}
