package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/auth"
	"github.com/martabak-juara/loyalty-club/internal/navigation"
)

// SessionResolver turns an optional bearer token into a session.
type SessionResolver func(token string) auth.Session

// NavigationHandler tells the client which page a caller may open.
type NavigationHandler struct {
	resolve SessionResolver
}

// NewNavigationHandler constructs a NavigationHandler.
func NewNavigationHandler(resolve SessionResolver) *NavigationHandler {
	return &NavigationHandler{resolve: resolve}
}

// Resolve maps ?page= to the page the caller ends up on.
func (h *NavigationHandler) Resolve(c *gin.Context) {
	session := auth.Anonymous
	if token := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")); token != "" && h.resolve != nil {
		session = h.resolve(token)
	}

	requested := navigation.Page(strings.TrimSpace(c.Query("page")))
	if requested == "" {
		requested = navigation.Landing(session.Role)
	}
	target, redirected := navigation.Resolve(session.Role, requested)
	c.JSON(http.StatusOK, gin.H{
		"role":       session.Role,
		"requested":  requested,
		"page":       target,
		"redirected": redirected,
		"known":      navigation.Known(requested),
		"permitted":  navigation.Permitted(session.Role),
	})
}
