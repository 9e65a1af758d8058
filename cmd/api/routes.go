package main

import (
	"callbridge/internal/auth"
	"callbridge/internal/httpapi"
	"callbridge/internal/notify"
	"callbridge/internal/rbac"
	"callbridge/internal/telephony"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(
	r *gin.Engine,
	h httpapi.Handlers,
	hub *notify.Hub,
	authManager *auth.Manager,
	webhooks *telephony.WebhookHandlers,
	webhookAuth gin.HandlerFunc,
) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provider webhooks. Signature-checked when a webhook secret is
	// configured; fail-open (with a warning) otherwise.
	wh := r.Group("/webhooks")
	wh.Use(webhookAuth)
	webhooks.Register(wh)

	// Live event stream. The token rides the query string because
	// browser WebSocket clients cannot set headers.
	r.GET("/ws", hub.ServeWS(authManager))

	// protected API group
	v1 := r.Group("/v1")

	// AUTH routes (token issuance) stay public.
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
	}

	v1.Use(auth.RequireAccessToken(authManager))
	{
		v1.GET("/me", h.Me)

		// CALLS routes
		callsGroup := v1.Group("/calls")
		{
			callsGroup.POST("", h.InitiateCall)
			callsGroup.POST("/end-all", h.EndAllCalls)
			callsGroup.POST("/:id/end", h.EndCall)
			callsGroup.GET("/active", h.ActiveCalls)
			callsGroup.GET("/history", h.CallHistory)
		}

		// WALLET routes
		walletGroup := v1.Group("/wallet")
		{
			walletGroup.GET("/balance", h.WalletBalance)
			walletGroup.POST("/topups", h.RequestTopUp)
			walletGroup.GET("/transactions", h.WalletTransactions)
		}

		// NUMBERS routes
		numbersGroup := v1.Group("/numbers")
		{
			numbersGroup.GET("/available", h.AvailableNumbers)
			numbersGroup.GET("/mine", h.MyNumbers)
			numbersGroup.POST("/:id/purchase", h.PurchaseNumber)
		}

		// PLANS routes
		plansGroup := v1.Group("/plans")
		{
			plansGroup.POST("", h.PurchasePlan)
			plansGroup.GET("/mine", h.MyPlans)
			plansGroup.POST("/:id/cancel", h.CancelPlan)
		}

		// MESSAGES routes
		messagesGroup := v1.Group("/messages")
		{
			messagesGroup.POST("", h.SendMessage)
			messagesGroup.GET("", h.MessageHistory)
			messagesGroup.GET("/conversation/:peer", h.Conversation)
		}

		// VOICEMAIL routes
		voicemailGroup := v1.Group("/voicemails")
		{
			voicemailGroup.GET("", h.ListVoicemails)
			voicemailGroup.POST("/:id/read", h.MarkVoicemailRead)
			voicemailGroup.DELETE("/:id", h.DeleteVoicemail)
		}

		// REPORTS routes
		reportsGroup := v1.Group("/reports")
		{
			reportsGroup.GET("/usage", h.UsageReport)
			reportsGroup.GET("/spend", h.SpendReport)
		}

		// ADMIN routes
		admin := v1.Group("/admin")
		admin.Use(rbac.RequireAdmin())
		{
			admin.GET("/pricing", h.AdminListPricing)
			admin.PUT("/pricing", h.AdminUpsertPricing)

			admin.GET("/numbers", h.AdminListNumbers)
			admin.POST("/numbers", h.AdminAddNumber)
			admin.DELETE("/numbers/:id", h.AdminDeleteNumber)

			admin.GET("/topups/pending", h.AdminPendingTopUps)
			admin.POST("/topups/:id/approve", h.AdminApproveTopUp)
			admin.POST("/topups/:id/reject", h.AdminRejectTopUp)
		}
	}
}
