package httpapi

import (
	"errors"
	"net/http"

	"callbridge/internal/plans"

	"github.com/gin-gonic/gin"
)

type purchasePlanRequest struct {
	CountryCode string `json:"country_code"`
}

func (h Handlers) PurchasePlan(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req purchasePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CountryCode == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "country_code required"})
		return
	}

	plan, err := h.Plans.Purchase(c.Request.Context(), uid, req.CountryCode)
	switch {
	case errors.Is(err, plans.ErrAlreadyActive):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "active plan already exists for this country"})
	case errors.Is(err, plans.ErrNoPlanOffered), errors.Is(err, plans.ErrPricingNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no plan offered for this country"})
	case errors.Is(err, plans.ErrInsufficientBalance):
		c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{"error": "insufficient balance"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "plan purchase failed"})
	default:
		c.JSON(http.StatusCreated, plan)
	}
}

func (h Handlers) MyPlans(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	mine, err := h.Plans.Mine(c.Request.Context(), uid)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if mine == nil {
		mine = []plans.UserPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"plans": mine})
}

func (h Handlers) CancelPlan(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	planID := c.Param("id")
	if planID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "plan id required"})
		return
	}

	err := h.Plans.Cancel(c.Request.Context(), uid, planID)
	switch {
	case errors.Is(err, plans.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "plan not found"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "canceled"})
	}
}
