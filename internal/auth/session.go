// Package auth carries the caller's session through requests and signs members in.
package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Role is the caller's access level.
type Role string

// Roles known to the router and the API.
const (
	RoleAnonymous Role = "anonymous"
	RoleMember    Role = "member"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a claim value to a Role, defaulting to anonymous.
func ParseRole(value string) Role {
	switch Role(value) {
	case RoleMember:
		return RoleMember
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleAnonymous
	}
}

// Session identifies the caller of one request.
type Session struct {
	Subject  string // Account id for members, username for admins.
	Role     Role
	Email    string
	AdminID  uint64
	TokenJTI string
}

// Anonymous is the session of an unauthenticated caller.
var Anonymous = Session{Role: RoleAnonymous}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// IsMember reports whether the session carries the member role.
func (s Session) IsMember() bool { return s.Role == RoleMember && s.Subject != "" }

type sessionKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session in ctx, or Anonymous.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok {
		return s
	}
	return Anonymous
}

// ginSessionKey is the gin context key set by the auth middlewares.
const ginSessionKey = "session"

// SetSession stores s on the gin context and on the request context.
func SetSession(c *gin.Context, s Session) {
	c.Set(ginSessionKey, s)
	c.Request = c.Request.WithContext(WithSession(c.Request.Context(), s))
}

// SessionFrom returns the session set by SetSession, or Anonymous.
func SessionFrom(c *gin.Context) Session {
	if value, ok := c.Get(ginSessionKey); ok {
		if s, okSession := value.(Session); okSession {
			return s
		}
	}
	return FromContext(c.Request.Context())
}
