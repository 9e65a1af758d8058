package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/calls"

	"github.com/gin-gonic/gin"
)

type initiateCallRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// InitiateCall registers an outbound call attempt. The provider leg is
// driven by the client SDK; this endpoint validates ownership and hands
// back the tracking id the client passes to the outbound TwiML hook.
func (h Handlers) InitiateCall(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req initiateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.From == "" || req.To == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from, to required"})
		return
	}

	call, err := h.Calls.Initiate(c.Request.Context(), uid, req.From, req.To)
	switch {
	case errors.Is(err, calls.ErrNotYourNumber):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "number not assigned to you"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call initiation failed"})
	default:
		c.JSON(http.StatusCreated, call)
	}
}

func (h Handlers) EndCall(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	callID := c.Param("id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call id required"})
		return
	}

	err := h.Calls.End(c.Request.Context(), uid, callID)
	switch {
	case errors.Is(err, calls.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "hangup failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ending"})
	}
}

func (h Handlers) EndAllCalls(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Calls.EndAll(c.Request.Context(), uid); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "hangup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ending"})
}

func (h Handlers) ActiveCalls(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	active, err := h.Calls.Active(c.Request.Context(), uid)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if active == nil {
		active = []calls.ActiveCall{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": active})
}

func (h Handlers) CallHistory(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	records, err := h.Calls.History(c.Request.Context(), uid, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if records == nil {
		records = []calls.CallRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
