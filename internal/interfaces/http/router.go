// Package http wires the gin router. The API is deployment-internal and
// carries no auth layer; the bot frontend is the only intended caller.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nyxvpn/internal/interfaces/http/handlers"
	"nyxvpn/internal/interfaces/http/middleware"
	"nyxvpn/internal/shared/logger"
)

// NewRouter builds the HTTP surface: provisioning, status reads and ledger
// operations, plus a liveness probe.
func NewRouter(
	mode string,
	subscriptionHandler *handlers.SubscriptionHandler,
	accountHandler *handlers.AccountHandler,
	log logger.Interface,
) *gin.Engine {
	gin.SetMode(mode)

	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		subs := v1.Group("/subscriptions")
		{
			subs.POST("/trial", subscriptionHandler.ProvisionTrial)
			subs.POST("", subscriptionHandler.ProvisionPaid)
			subs.GET("/:id", subscriptionHandler.GetStatus)
		}

		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id/balance", accountHandler.GetBalance)
			accounts.POST("/:id/referrer", accountHandler.BindReferrer)
			accounts.POST("/:id/referral-transfer", accountHandler.TransferReferralBalance)
		}
	}

	return router
}
