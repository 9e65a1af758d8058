package httpapi

import (
	"net/http"
	"time"

	"callbridge/internal/audit"
	"callbridge/internal/auth"
	"callbridge/internal/calls"
	"callbridge/internal/messages"
	"callbridge/internal/numbers"
	"callbridge/internal/plans"
	"callbridge/internal/pricing"
	"callbridge/internal/reporting"
	"callbridge/internal/voicemail"
	"callbridge/internal/wallet"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Wallet     *wallet.Service
	Numbers    *numbers.Service
	NumberPool numbers.Repository
	Plans      *plans.Service
	Calls      *calls.Orchestrator
	Messages   *messages.Service
	Voicemails *voicemail.Service
	Reports    *reporting.Service
	Pricing    pricing.Repository
	Audit      *audit.Service
}

// identity pulls the authenticated user out of the request context and
// aborts with 401 when the auth middleware did not run.
func identity(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil || uid == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	return uid, true
}

func limitParam(c *gin.Context, def int) int {
	n := def
	if v := c.Query("limit"); v != "" {
		if parsed, ok := atoiSafe(v); ok && parsed > 0 {
			n = parsed
		}
	}
	if n > 500 {
		n = 500
	}
	return n
}

func atoiSafe(s string) (int, bool) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			return 0, false
		}
	}
	return n, true
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// Me echoes the authenticated identity; useful for client smoke tests.
func (h Handlers) Me(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}
