package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/http/api/admin/permissions"
	"github.com/martabak-juara/loyalty-club/internal/models"
	log "github.com/sirupsen/logrus"
)

const grantsContextKey = "adminGrants"

// adminGrants is what the auth middleware resolved for the signed-in admin.
type adminGrants struct {
	super bool
	keys  []string
}

func (g adminGrants) allows(key string) bool {
	return g.super || permissions.HasPermission(g.keys, key)
}

// setAdmin stores the signed-in admin's id and grants on the request.
func setAdmin(c *gin.Context, admin models.Admin) {
	c.Set("adminID", admin.ID)
	c.Set(grantsContextKey, adminGrants{super: admin.IsSuperAdmin, keys: permissions.ParsePermissions(admin.Permissions)})
}

func grantsFrom(c *gin.Context) (adminGrants, bool) {
	value, ok := c.Get(grantsContextKey)
	if !ok {
		return adminGrants{}, false
	}
	grants, ok := value.(adminGrants)
	return grants, ok
}

// requirePermission admits a request only when its route is in the permission
// catalogue and the signed-in admin holds that permission. It must run after
// adminAuthMiddleware.
func requirePermission() gin.HandlerFunc {
	catalogue := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		route := c.FullPath()
		key := permissions.Key(c.Request.Method, route)
		if _, listed := catalogue[key]; route == "" || !listed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}

		grants, ok := grantsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !grants.allows(key) {
			log.WithFields(log.Fields{"admin_id": c.GetUint64("adminID"), "permission": key}).Warn("admin permission denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}
