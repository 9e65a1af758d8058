package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/wallet"

	"github.com/gin-gonic/gin"
)

func (h Handlers) WalletBalance(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	bal, err := h.Wallet.GetBalance(c.Request.Context(), uid)
	switch {
	case errors.Is(err, wallet.ErrNotFound):
		// No wallet row yet means a zero balance, not an error.
		c.JSON(http.StatusOK, wallet.Balance{UserID: uid, BalanceMinor: 0})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "balance lookup failed"})
	default:
		c.JSON(http.StatusOK, bal)
	}
}

type topUpRequest struct {
	AmountMinor int64  `json:"amount_minor"`
	Method      string `json:"method"`
	ExternalRef string `json:"external_ref"`
}

// RequestTopUp files a manual top-up for admin review. The wallet is
// only credited once an admin approves it.
func (h Handlers) RequestTopUp(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	txn, err := h.Wallet.RequestTopUp(c.Request.Context(), uid, req.AmountMinor, req.Method, req.ExternalRef)
	switch {
	case errors.Is(err, wallet.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "top-up request failed"})
	default:
		c.JSON(http.StatusCreated, txn)
	}
}

func (h Handlers) WalletTransactions(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	txns, err := h.Wallet.ListTransactions(c.Request.Context(), uid, limitParam(c, 50))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if txns == nil {
		txns = []wallet.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
