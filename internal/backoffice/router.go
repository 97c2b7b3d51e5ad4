// Package backoffice hosts the read-mostly operations console. It runs as a
// separate process from the settlement API and works off the shared database:
// user administration and the settlement audit trail. Round mutations
// (whitelist, ban, winner, rescue) go through the API process, which owns the
// live engine state.
package backoffice

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opentally/stakeround/internal/backoffice/handler"
	"github.com/opentally/stakeround/internal/config"
	"github.com/opentally/stakeround/internal/repository"
	"github.com/opentally/stakeround/internal/service"
)

// BackofficeDeps bundles every dependency needed for the ops router.
type BackofficeDeps struct {
	AuthSvc   *service.AuthService
	UserRepo  *repository.UserRepository
	EventRepo *repository.EventRepository
	Cfg       *config.Config
}

// SetupBackofficeRouter creates the ops Gin engine served on BackofficePort.
func SetupBackofficeRouter(deps BackofficeDeps) *gin.Engine {
	if deps.Cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(ipWhitelistMiddleware(deps.Cfg.Server.BackofficeAllowedIPs))

	dashH := handler.NewDashboardHandler(deps.UserRepo, deps.EventRepo, deps.Cfg)
	userH := handler.NewUserAdminHandler(deps.UserRepo, deps.EventRepo, deps.Cfg)
	auditH := handler.NewAuditHandler(deps.EventRepo, deps.Cfg)

	jwtMW := adminJWTMiddleware(deps.AuthSvc)

	admin := r.Group("/admin")
	admin.Use(jwtMW)
	{
		admin.GET("/dashboard", dashH.Dashboard)

		// Users
		u := admin.Group("/users")
		{
			u.GET("", userH.List)
			u.GET("/:id", userH.Detail)
			u.POST("/:id/suspend", userH.Suspend)
			u.POST("/:id/activate", userH.Activate)
			u.POST("/:id/role", userH.SetRole)
		}

		// Audit trail
		audit := admin.Group("/audit")
		{
			audit.GET("/events", auditH.Events)
			audit.GET("/actors/:id/events", auditH.ActorEvents)
			audit.GET("/report", auditH.Report)
		}
	}

	return r
}

// ── IP whitelist middleware ───────────────────────────────────────────────────

// ipWhitelistMiddleware blocks requests from IPs not in the allowlist.
// allowedIPs is a comma-separated string; empty means allow all.
func ipWhitelistMiddleware(allowedIPs string) gin.HandlerFunc {
	if allowedIPs == "" {
		return func(c *gin.Context) { c.Next() } // dev mode: no restriction
	}

	allowed := make(map[string]bool)
	for _, ip := range strings.Split(allowedIPs, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			allowed[ip] = true
		}
	}

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowed[clientIP] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "access denied: your IP is not whitelisted",
			})
			return
		}
		c.Next()
	}
}

// ── Admin JWT middleware ──────────────────────────────────────────────────────

// adminJWTMiddleware validates a JWT and requires the admin role.
func adminJWTMiddleware(authSvc *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := authSvc.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.TokenType != "access" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if claims.Role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		c.Set("userID", claims.Subject)
		c.Set("role", claims.Role)
		c.Next()
	}
}
