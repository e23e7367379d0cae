package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/assistant"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/config"
	"github.com/martabak-juara/loyalty-club/internal/http/api/front/handlers"
	"github.com/martabak-juara/loyalty-club/internal/ledger"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	"gorm.io/gorm"
)

// Deps carries the services behind the front routes.
type Deps struct {
	DB        *gorm.DB
	JWT       config.JWTConfig
	Members   *members.Store
	Ledger    *ledger.Service
	Auth      *auth.Provider
	Assistant *assistant.Service
}

// RegisterFrontRoutes registers public and authenticated member routes, the chat and
// the navigation resolver.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(deps.Members, deps.Auth, deps.Assistant)
	front.POST("/register", authHandler.Register)
	front.POST("/login", authHandler.Login)
	front.GET("/config", handlers.GetPublicConfig)

	authed := front.Group("")
	authed.Use(memberAuthMiddleware(deps.DB, deps.Auth))
	authed.POST("/logout", authHandler.Logout)

	profileHandler := handlers.NewProfileHandler(deps.Members, deps.Ledger, deps.Auth)
	authed.GET("/profile", profileHandler.Get)
	authed.PUT("/profile", profileHandler.Update)
	authed.PUT("/profile/address", profileHandler.UpdateAddress)
	authed.PUT("/profile/password", profileHandler.ChangePassword)
	authed.GET("/entries", profileHandler.Entries)
	authed.GET("/qr.png", profileHandler.QRCode)

	redemptionHandler := handlers.NewRedemptionHandler(deps.Ledger)
	authed.GET("/redemptions", redemptionHandler.List)
	authed.POST("/redemptions", redemptionHandler.Request)

	if deps.Assistant != nil {
		chatHandler := handlers.NewChatHandler(deps.Assistant)
		chat := r.Group("/v0/chat")
		chat.POST("/sessions", chatHandler.Start)
		chat.GET("/sessions/:id", chatHandler.History)
		chat.POST("/sessions/:id/messages", chatHandler.Send)
	}

	navigationHandler := handlers.NewNavigationHandler(sessionResolver(deps))
	r.GET("/v0/navigation/resolve", navigationHandler.Resolve)
}

// sessionResolver accepts member and admin tokens; anything else is anonymous.
func sessionResolver(deps Deps) handlers.SessionResolver {
	return func(token string) auth.Session {
		if deps.Auth != nil {
			if session, err := deps.Auth.ParseMember(token); err == nil {
				return session
			}
		}
		if claims, err := security.ParseAdminToken(deps.JWT.Secret, token); err == nil {
			return auth.Session{Subject: claims.Username, Role: auth.RoleAdmin, AdminID: claims.AdminID}
		}
		return auth.Anonymous
	}
}

// memberAuthMiddleware validates member JWTs and stores the session in context.
func memberAuthMiddleware(db *gorm.DB, provider *auth.Provider) gin.HandlerFunc {
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

		session, errJWT := provider.ParseMember(token)
		if errJWT != nil || !session.IsMember() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var account models.Account
		if errFind := db.WithContext(c.Request.Context()).Where("id = ?", session.Subject).First(&account).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			return
		}
		if account.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		auth.SetSession(c, session)
		c.Next()
	}
}
