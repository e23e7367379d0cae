// Package admin wires the back-office API under /v0/admin.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/config"
	"github.com/martabak-juara/loyalty-club/internal/dashboard"
	"github.com/martabak-juara/loyalty-club/internal/http/api/admin/handlers"
	"github.com/martabak-juara/loyalty-club/internal/inventory"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	"gorm.io/gorm"
)

// Deps carries the services behind the admin routes.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Members   *members.Store
	Ledger    *ledger.Service
	Inventory *inventory.Service
	Stats     *dashboard.Aggregator
	Notifier  *auth.Notifier
	Sessions  *auth.Tracker
}

// RegisterAdminRoutes registers the admin login, self-service and permissioned routes.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Sessions)
	r.GET("/healthz", healthHandler.Healthz)

	admin := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.JWT, deps.Notifier)
	admin.POST("/login", authHandler.Login)
	admin.POST("/login/prepare", authHandler.LoginPrepare)
	admin.POST("/login/totp", authHandler.LoginTOTP)

	self := admin.Group("")
	self.Use(adminAuthMiddleware(deps.DB, deps.JWT))
	self.POST("/logout", authHandler.Logout)

	mfaHandler := handlers.NewMFAHandler(deps.DB)
	self.GET("/mfa/status", mfaHandler.Status)
	self.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	self.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	self.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	authed := admin.Group("")
	authed.Use(adminAuthMiddleware(deps.DB, deps.JWT), requirePermission())

	dashboardHandler := handlers.NewDashboardHandler(deps.Stats, deps.Inventory)
	authed.GET("/dashboard/stats", dashboardHandler.Stats)

	memberHandler := handlers.NewMemberHandler(deps.Members, deps.Ledger, deps.Stats)
	authed.GET("/members", memberHandler.List)
	authed.GET("/members/:id", memberHandler.Get)
	authed.GET("/members/:id/entries", memberHandler.Entries)
	authed.GET("/members/:id/redemptions", memberHandler.Redemptions)
	authed.GET("/members/:id/route", memberHandler.Route)
	authed.POST("/members/:id/points", memberHandler.AddPoints)
	authed.GET("/members/by-code/:code", memberHandler.ByCode)
	authed.POST("/members/by-code/:code/points", memberHandler.AddPointsByCode)

	redemptionHandler := handlers.NewRedemptionHandler(deps.Ledger, deps.Stats)
	authed.GET("/redemptions", redemptionHandler.List)
	authed.GET("/redemptions/pending", redemptionHandler.Pending)
	authed.GET("/redemptions/:id", redemptionHandler.Get)
	authed.POST("/redemptions", redemptionHandler.Create)
	authed.POST("/redemptions/:id/approve", redemptionHandler.Approve)
	authed.POST("/redemptions/:id/reject", redemptionHandler.Reject)

	inventoryHandler := handlers.NewInventoryHandler(deps.Inventory, deps.Stats)
	authed.GET("/inventory", inventoryHandler.List)
	authed.GET("/inventory/usage", inventoryHandler.RecentUsage)
	authed.POST("/inventory", inventoryHandler.Create)
	authed.PUT("/inventory/:id", inventoryHandler.Update)
	authed.DELETE("/inventory/:id", inventoryHandler.Delete)
	authed.POST("/inventory/:id/usage", inventoryHandler.RecordUsage)
	authed.POST("/inventory/:id/restock", inventoryHandler.Restock)

	settingsHandler := handlers.NewSettingsHandler(deps.DB)
	authed.GET("/settings", settingsHandler.Get)
	authed.PUT("/settings", settingsHandler.Update)

	staffHandler := handlers.NewStaffHandler(deps.DB)
	authed.GET("/admins", staffHandler.List)
	authed.POST("/admins", staffHandler.Create)
	authed.GET("/admins/:id", staffHandler.Get)
	authed.PUT("/admins/:id", staffHandler.Update)
	authed.DELETE("/admins/:id", staffHandler.Delete)
	authed.POST("/admins/:id/disable", staffHandler.Disable)
	authed.POST("/admins/:id/enable", staffHandler.Enable)
	authed.PUT("/admins/:id/password", staffHandler.ChangePassword)

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).
			Select("id", "username", "active", "permissions", "is_super_admin").
			First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
			return
		}

		setAdmin(c, admin)
		auth.SetSession(c, auth.Session{Subject: admin.Username, Role: auth.RoleAdmin, AdminID: admin.ID})
		c.Next()
	}
}
