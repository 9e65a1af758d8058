package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"callbridge/internal/numbers"
	"callbridge/internal/phone"
	"callbridge/internal/pricing"
	"callbridge/internal/wallet"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Admin endpoints. All routes using these handlers must sit behind
// rbac.RequireAdmin; the handlers assume the role check already ran.

// --- Pricing ---

type upsertPricingRequest struct {
	CountryCode               string `json:"country_code"`
	Currency                  string `json:"currency"`
	NumberMonthlyMinor        int64  `json:"number_monthly_minor"`
	CallPerMinuteMinor        int64  `json:"call_per_minute_minor"`
	SMSMinor                  int64  `json:"sms_minor"`
	UnlimitedPlanMonthlyMinor int64  `json:"unlimited_plan_monthly_minor"`
}

func (h Handlers) AdminUpsertPricing(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req upsertPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CountryCode == "" || req.Currency == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "country_code, currency required"})
		return
	}
	if req.NumberMonthlyMinor < 0 || req.CallPerMinuteMinor < 0 || req.SMSMinor < 0 || req.UnlimitedPlanMonthlyMinor < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "amounts must not be negative"})
		return
	}

	now := time.Now().UTC()
	p := pricing.Pricing{
		ID:                        uuid.NewString(),
		CountryCode:               req.CountryCode,
		Currency:                  req.Currency,
		NumberMonthlyMinor:        req.NumberMonthlyMinor,
		CallPerMinuteMinor:        req.CallPerMinuteMinor,
		SMSMinor:                  req.SMSMinor,
		UnlimitedPlanMonthlyMinor: req.UnlimitedPlanMonthlyMinor,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
	if err := h.Pricing.Upsert(c.Request.Context(), p); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "pricing update failed"})
		return
	}

	meta := fmt.Sprintf("number=%d call_per_minute=%d sms=%d plan=%d",
		req.NumberMonthlyMinor, req.CallPerMinuteMinor, req.SMSMinor, req.UnlimitedPlanMonthlyMinor)
	_ = h.Audit.LogPricingChange(c.Request.Context(), uid, c.ClientIP(), req.CountryCode, meta)

	c.JSON(http.StatusOK, p)
}

func (h Handlers) AdminListPricing(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	rows, err := h.Pricing.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if rows == nil {
		rows = []pricing.Pricing{}
	}
	c.JSON(http.StatusOK, gin.H{"pricing": rows})
}

// --- Number pool ---

type addNumberRequest struct {
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number"`
}

func (h Handlers) AdminAddNumber(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	var req addNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.CountryCode == "" || req.PhoneNumber == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "country_code, phone_number required"})
		return
	}

	n := numbers.VirtualNumber{
		ID:          uuid.NewString(),
		CountryCode: req.CountryCode,
		PhoneNumber: phone.Normalize(req.PhoneNumber),
		Status:      numbers.StatusAvailable,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.NumberPool.Insert(c.Request.Context(), n); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number insert failed"})
		return
	}
	_ = h.Audit.LogNumberPool(c.Request.Context(), uid, c.ClientIP(), n.ID, "add")

	c.JSON(http.StatusCreated, n)
}

func (h Handlers) AdminDeleteNumber(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "number id required"})
		return
	}
	if err := h.NumberPool.Delete(c.Request.Context(), id); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "number delete failed"})
		return
	}
	_ = h.Audit.LogNumberPool(c.Request.Context(), uid, c.ClientIP(), id, "delete")

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h Handlers) AdminListNumbers(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	rows, err := h.NumberPool.List(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if rows == nil {
		rows = []numbers.VirtualNumber{}
	}
	c.JSON(http.StatusOK, gin.H{"numbers": rows})
}

// --- Top-ups ---

func (h Handlers) AdminPendingTopUps(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	txns, err := h.Wallet.ListPendingTopUps(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if txns == nil {
		txns = []wallet.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}

func (h Handlers) AdminApproveTopUp(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	txnID := c.Param("id")
	if txnID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "transaction id required"})
		return
	}

	txn, err := h.Wallet.ApproveTopUp(c.Request.Context(), txnID)
	switch {
	case errors.Is(err, wallet.ErrNotPending):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "transaction not pending"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "approval failed"})
	default:
		_ = h.Audit.LogTopUpDecision(c.Request.Context(), uid, c.ClientIP(), txn.ID, txn.UserID, "approved")
		c.JSON(http.StatusOK, txn)
	}
}

func (h Handlers) AdminRejectTopUp(c *gin.Context) {
	uid, ok := identity(c)
	if !ok {
		return
	}
	txnID := c.Param("id")
	if txnID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "transaction id required"})
		return
	}

	err := h.Wallet.RejectTopUp(c.Request.Context(), txnID)
	switch {
	case errors.Is(err, wallet.ErrNotPending):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "transaction not pending"})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rejection failed"})
	default:
		_ = h.Audit.LogTopUpDecision(c.Request.Context(), uid, c.ClientIP(), txnID, "", "rejected")
		c.JSON(http.StatusOK, gin.H{"status": "rejected"})
	}
}
