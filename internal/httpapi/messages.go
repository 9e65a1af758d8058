package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/messages"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func (h Handlers) SendMessage(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	msg, err := h.Messages.Send(c.Request.Context(), uid, req.From, req.To, req.Body)
	switch {
	case errors.Is(err, messages.ErrEmptyBody):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "message body required"})
	case errors.Is(err, messages.ErrNotYourNumber):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "number not assigned to you"})
	case errors.Is(err, messages.ErrPricingNotFound):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no pricing for this destination"})
	case errors.Is(err, messages.ErrInsufficientBalance):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
	default:
		c.JSON(http.StatusCreated, msg)
	}
}

func (h Handlers) MessageHistory(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	msgs, err := h.Messages.History(c.Request.Context(), uid, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if msgs == nil {
		msgs = []messages.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Conversation returns the two-way thread with a peer number and marks
// its inbound side read.
func (h Handlers) Conversation(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	peer := c.Param("peer")
	if peer == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "peer number required"})
		return
	}
	msgs, err := h.Messages.Conversation(c.Request.Context(), uid, peer, limitParam(c, 100))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if msgs == nil {
		msgs = []messages.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
