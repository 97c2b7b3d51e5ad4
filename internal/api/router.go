package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opentally/stakeround/internal/api/handler"
	"github.com/opentally/stakeround/internal/api/middleware"
	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/engine"
	"github.com/opentally/stakeround/internal/ledger"
	"github.com/opentally/stakeround/internal/repository"
	"github.com/opentally/stakeround/internal/service"
	"github.com/opentally/stakeround/internal/ws"
)

// RouterDeps bundles every dependency needed to build the router.
// Populated once in main() and passed to SetupRouter.
type RouterDeps struct {
	AuthSvc   *service.AuthService
	Engine    *engine.Engine
	Token     *ledger.MemoryLedger
	UserRepo  *repository.UserRepository
	EventRepo *repository.EventRepository
	Hub       *ws.Hub
	Cfg       *config.Config
}

// SetupRouter creates and configures the main Gin engine with all routes,
// middleware, CORS, and rate limiting rules.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// ── CORS ─────────────────────────────────────────────────────────────────
	r.Use(corsMiddleware(deps.Cfg))

	// ── Health check ─────────────────────────────────────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── Handlers ─────────────────────────────────────────────────────────────
	userH := handler.NewUserHandler(deps.AuthSvc, deps.Token, deps.Engine)
	entryH := handler.NewEntryHandler(deps.Engine)
	roundH := handler.NewRoundHandler(deps.Engine, deps.EventRepo)
	walletH := handler.NewWalletHandler(deps.Token, deps.EventRepo, deps.Cfg)
	adminH := handler.NewAdminHandler(deps.Engine, deps.UserRepo, deps.Hub)

	// ── JWT middleware (shared) ───────────────────────────────────────────────
	jwtMW := middleware.JWTMiddleware(deps.AuthSvc)

	// ── Rate limiters ─────────────────────────────────────────────────────────
	authRL := middleware.RateLimitMiddleware(10)  // 10 req/s per IP for auth endpoints
	stakeRL := middleware.RateLimitMiddleware(30) // 30 req/s per IP for staking endpoints

	api := r.Group("/api")
	{
		// ── Auth (public, strict rate limit) ─────────────────────────────────
		auth := api.Group("/auth")
		auth.Use(authRL)
		{
			auth.POST("/register", userH.Register)
			auth.POST("/login", userH.Login)
			auth.POST("/refresh", userH.Refresh)
		}

		// ── Round & entries (public) ─────────────────────────────────────────
		api.GET("/round", roundH.Get)
		api.GET("/round/winner", roundH.Winner)
		api.GET("/round/rescue", roundH.Rescue)
		api.GET("/round/events", roundH.Events)

		entries := api.Group("/entries")
		{
			entries.GET("", entryH.List)
			entries.GET("/top", entryH.Top)
			entries.GET("/:id", entryH.GetByID)
			entries.GET("/:id/events", roundH.EntryEvents)
		}

		// ── Authenticated routes ──────────────────────────────────────────────
		authed := api.Group("")
		authed.Use(jwtMW)
		{
			// Profile
			authed.GET("/me", userH.Me)

			// Submission & staking
			staking := authed.Group("")
			staking.Use(stakeRL)
			{
				staking.POST("/entries", entryH.Submit)
				staking.POST("/entries/:id/stake", entryH.Stake)
			}
			authed.GET("/entries/:id/shares", entryH.MyShares)

			// Settlement
			authed.GET("/claim", entryH.ClaimPreview)
			authed.POST("/claim", entryH.Claim)
			authed.POST("/rescue/trigger", entryH.TriggerRescue)
			authed.POST("/rescue/withdraw", entryH.WithdrawRescued)

			// Wallet
			wallet := authed.Group("/wallet")
			{
				wallet.GET("/balance", walletH.GetBalance)
				wallet.POST("/approve", walletH.Approve)
				wallet.POST("/faucet", walletH.Faucet)
				wallet.GET("/events", walletH.MyEvents)
			}

			// Moderation & settlement control
			admin := authed.Group("/admin")
			admin.Use(middleware.AdminMiddleware())
			{
				admin.GET("/pending", adminH.Pending)
				admin.POST("/whitelist", adminH.Whitelist)
				admin.POST("/ban", adminH.Ban)
				admin.POST("/winner", adminH.PickWinner)
				admin.POST("/transfer", adminH.TransferAuthority)
				admin.GET("/users", adminH.ListUsers)
				admin.PATCH("/users/:id/active", adminH.SetUserActive)
			}
		}
	}

	// ── WebSocket ─────────────────────────────────────────────────────────────
	if deps.Hub != nil {
		r.GET("/ws", func(c *gin.Context) {
			deps.Hub.ServeWs(c.Writer, c.Request)
		})
	}

	return r
}

// ── CORS helper ───────────────────────────────────────────────────────────────

// corsMiddleware returns a gin middleware that sets appropriate CORS headers.
// In development all origins are allowed; in production only configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if !cfg.IsProd() {
			// Development: allow any origin
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			// Production: allow only the public frontends
			allowed := map[string]bool{
				"https://stakeround.io":     true,
				"https://www.stakeround.io": true,
			}
			if allowed[origin] {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
