package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/assistant"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/members"
	"github.com/martabak-juara/loyalty-club/internal/models"
	log "github.com/sirupsen/logrus"
)

// AuthHandler handles member registration and sign-in endpoints.
type AuthHandler struct {
	members   *members.Store
	auth      *auth.Provider
	assistant *assistant.Service
}

// NewAuthHandler constructs an AuthHandler. assistant may be nil.
func NewAuthHandler(store *members.Store, provider *auth.Provider, assistantSvc *assistant.Service) *AuthHandler {
	return &AuthHandler{members: store, auth: provider, assistant: assistantSvc}
}

// registerRequest defines the request body for member registration.
type registerRequest struct {
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	BirthDate string          `json:"birth_date"`
	Password  string          `json:"password"`
	Address   *models.Address `json:"address"`
}

// Register creates the account and member, signs the member in and greets them.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing name"})
		return
	}
	if strings.TrimSpace(body.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email"})
		return
	}
	if len(body.Password) < auth.MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": auth.ErrWeakPassword.Error()})
		return
	}

	member, errRegister := h.members.Register(c.Request.Context(), members.RegisterInput{
		Name:      body.Name,
		Email:     body.Email,
		Phone:     body.Phone,
		BirthDate: body.BirthDate,
		Password:  body.Password,
		Address:   body.Address,
	})
	if errRegister != nil {
		if !errors.Is(errRegister, members.ErrEmailTaken) && !errors.Is(errRegister, members.ErrInvalidInput) && !errors.Is(errRegister, members.ErrInvalidAddress) {
			log.WithError(errRegister).Error("front: register member failed")
		}
		writeDomainError(c, errRegister, "create member failed")
		return
	}

	token, _, errToken := h.auth.Registered(member.ID, member.Email)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	welcome := ""
	if h.assistant != nil {
		welcome = h.assistant.Welcome(c.Request.Context(), member.Name)
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":   token,
		"member":  memberJSON(member),
		"welcome": welcome,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a member and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return
	}

	token, session, errSignIn := h.auth.SignIn(c.Request.Context(), email, body.Password)
	if errSignIn != nil {
		switch {
		case errors.Is(errSignIn, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		case errors.Is(errSignIn, auth.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "account disabled"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		}
		return
	}

	member, errMember := h.members.Get(c.Request.Context(), session.Subject)
	if errMember != nil {
		writeDomainError(c, errMember, "query failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"member": memberJSON(member),
	})
}

// Logout ends the member session. Tokens are stateless, so the client discards its copy.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.auth.SignOut(auth.SessionFrom(c))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// memberJSON renders a member for the front API.
func memberJSON(member *models.Member) gin.H {
	out := gin.H{
		"id":         member.ID,
		"name":       member.Name,
		"email":      member.Email,
		"phone":      member.Phone,
		"birth_date": member.BirthDate,
		"code":       member.Code,
		"points":     member.Points,
		"created_at": member.CreatedAt,
	}
	if !member.Address.IsZero() {
		address := member.Address
		address.MapURL = members.MapURL(address)
		out["address"] = address
	}
	return out
}
