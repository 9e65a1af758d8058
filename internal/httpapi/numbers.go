package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/numbers"

	"github.com/gin-gonic/gin"
)

func (h Handlers) AvailableNumbers(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	pool, err := h.Numbers.Available(c.Request.Context(), c.Query("country"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if pool == nil {
		pool = []numbers.VirtualNumber{}
	}
	c.JSON(http.StatusOK, gin.H{"numbers": pool})
}

func (h Handlers) MyNumbers(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	mine, err := h.Numbers.Mine(c.Request.Context(), uid)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if mine == nil {
		mine = []numbers.VirtualNumber{}
	}
	c.JSON(http.StatusOK, gin.H{"numbers": mine})
}

// PurchaseNumber charges one rental period and assigns the number.
func (h Handlers) PurchaseNumber(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	numberID := c.Param("id")
	if numberID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number id required"})
		return
	}

	n, err := h.Numbers.Purchase(c.Request.Context(), uid, numberID)
	switch {
	case errors.Is(err, numbers.ErrNotAvailable):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "number not available"})
	case errors.Is(err, numbers.ErrPricingNotFound):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no pricing for this country"})
	case errors.Is(err, numbers.ErrInsufficientBalance):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "purchase failed"})
	default:
		c.JSON(http.StatusOK, n)
	}
}
