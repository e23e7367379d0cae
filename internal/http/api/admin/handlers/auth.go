package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/config"
	"github.com/martabak-juara/loyalty-club/internal/http/api/admin/permissions"
	"github.com/martabak-juara/loyalty-club/internal/models"
	"github.com/martabak-juara/loyalty-club/internal/security"
	"gorm.io/gorm"
)

// AuthHandler handles admin authentication endpoints.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	notifier *auth.Notifier
}

// NewAuthHandler constructs an AuthHandler. notifier may be nil.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, notifier *auth.Notifier) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, notifier: notifier}
}

// loginRequest defines the request body for admin login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates an admin and issues a JWT if MFA is not required.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	admin, ok := h.checkPassword(c, body.Username, body.Password)
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) != "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "mfa required"})
		return
	}

	h.respondWithAdminToken(c, admin)
}

// LoginPrepare returns MFA status prior to admin login.
func (h *AuthHandler) LoginPrepare(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).
		Select("id", "username", "active", "totp_secret").
		Where("username = ?", username).
		First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return
	}

	totpEnabled := strings.TrimSpace(admin.TOTPSecret) != ""
	c.JSON(http.StatusOK, gin.H{
		"mfa_enabled":  totpEnabled,
		"totp_enabled": totpEnabled,
	})
}

// loginTotpRequest defines the request body for TOTP login.
type loginTotpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// LoginTOTP authenticates an admin with password and TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTotpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	admin, ok := h.checkPassword(c, body.Username, body.Password)
	if !ok {
		return
	}
	if strings.TrimSpace(admin.TOTPSecret) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "totp not enabled"})
		return
	}
	if !security.ValidateTOTP(admin.TOTPSecret, code) {
		h.notifier.Publish(auth.Event{Kind: auth.EventSignInFailed, Session: adminSession(admin), Reason: "invalid totp code"})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	h.respondWithAdminToken(c, admin)
}

// Logout announces the end of the admin session.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.notifier.Publish(auth.Event{Kind: auth.EventSignedOut, Session: auth.SessionFrom(c)})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// checkPassword loads an active admin and verifies the password, writing the error response on failure.
func (h *AuthHandler) checkPassword(c *gin.Context, username, password string) (models.Admin, bool) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return models.Admin{}, false
	}

	var admin models.Admin
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&admin).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return models.Admin{}, false
	}
	if !admin.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin account is disabled"})
		return models.Admin{}, false
	}
	if !security.CheckPassword(admin.Password, password) {
		h.notifier.Publish(auth.Event{Kind: auth.EventSignInFailed, Session: adminSession(admin), Reason: "wrong password"})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return models.Admin{}, false
	}
	return admin, true
}

// respondWithAdminToken generates a JWT and responds with admin info.
func (h *AuthHandler) respondWithAdminToken(c *gin.Context, admin models.Admin) {
	token, errToken := security.GenerateAdminToken(h.jwtCfg.Secret, admin.ID, admin.Username, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	h.notifier.Publish(auth.Event{Kind: auth.EventSignedIn, Session: adminSession(admin), At: time.Now().UTC()})

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":             admin.ID,
			"username":       admin.Username,
			"permissions":    permissions.ParsePermissions(admin.Permissions),
			"is_super_admin": admin.IsSuperAdmin,
		},
	})
}

func adminSession(admin models.Admin) auth.Session {
	return auth.Session{Subject: admin.Username, Role: auth.RoleAdmin, AdminID: admin.ID}
}
