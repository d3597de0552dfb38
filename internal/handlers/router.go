package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"signal-market/internal/auth"
	"signal-market/internal/ws"
)

// Router bundles the handlers and cross-cutting pieces the HTTP surface
// is assembled from.
type Router struct {
	Log            logrus.FieldLogger
	AllowedOrigins []string
	Hub            *ws.Hub

	Auth      *AuthHandler
	Users     *UserHandler
	Markets   *MarketHandler
	Positions *PositionHandler
	Vault     *VaultHandler
	Admin     *AdminHandler
}

// Engine builds the gin engine serving every route.
func (rt *Router) Engine() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(rt.Log))

	if len(rt.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     rt.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if rt.Hub != nil {
		router.GET("/ws", gin.WrapF(rt.Hub.HandleWS))
	}

	requireAuth := auth.AuthMiddleware(rt.Log)

	// Authentication routes
	authRoutes := router.Group("/auth")
	{
		authRoutes.GET("/message", rt.Auth.GetMessage)
		authRoutes.POST("/wallet", rt.Auth.WalletLogin)
		authRoutes.POST("/logout", rt.Auth.Logout)
		authRoutes.GET("/me", requireAuth, rt.Auth.GetMe)
	}

	// Public read API
	api := router.Group("/api")
	{
		api.GET("/owner", rt.Markets.GetOwner)
		api.GET("/stats", rt.Markets.GetStats)
		api.GET("/markets", rt.Markets.GetMarkets)
		api.GET("/markets/counter", rt.Markets.GetMarketCounter)
		api.GET("/markets/:id", rt.Markets.GetMarketByID)
		api.GET("/markets/:id/odds", rt.Markets.GetOdds)
		api.GET("/markets/:id/payout", rt.Markets.GetPayoutPreview)
		api.GET("/markets/:id/positions/:user", rt.Positions.GetUserPosition)
		api.GET("/markets/:id/can-claim/:user", rt.Positions.CanClaim)
		api.GET("/users/:user/positions", rt.Positions.GetUserPositions)
		api.GET("/users/:user/portfolio", rt.Positions.GetPortfolio)
	}

	// Authenticated API; the caller is the JWT wallet
	protected := router.Group("/api")
	protected.Use(requireAuth)
	{
		protected.POST("/markets", rt.Markets.CreateMarket)
		protected.POST("/markets/:id/resolve", rt.Markets.ResolveMarket)
		protected.POST("/markets/:id/bets", rt.Positions.PlaceBet)
		protected.POST("/markets/:id/claim", rt.Positions.ClaimPayout)

		protected.GET("/vault/balance", rt.Vault.GetBalance)
		protected.POST("/vault/faucet", rt.Vault.Faucet)

		protected.GET("/user/profile", rt.Users.GetProfile)
		protected.POST("/user/nickname", rt.Users.UpdateNickname)

		protected.POST("/admin/owner", rt.Admin.TransferOwnership)
		protected.GET("/admin/logs", rt.Admin.GetAuditLog)
	}

	return router
}
