// Package permissions catalogues the admin routes a non-super admin can be granted.
package permissions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one grantable admin route.
type Definition struct {
	Key    string
	Method string
	Path   string
	Label  string
	Module string
}

// Permission modules shown as groups in the back office.
const (
	ModuleDashboard   = "dashboard"
	ModuleMembers     = "members"
	ModuleRedemptions = "redemptions"
	ModuleInventory   = "inventory"
	ModuleSettings    = "settings"
	ModuleAdmins      = "admins"
)

var definitions = []Definition{
	def(http.MethodGet, "/v0/admin/dashboard/stats", "View dashboard", ModuleDashboard),

	def(http.MethodGet, "/v0/admin/members", "List members", ModuleMembers),
	def(http.MethodGet, "/v0/admin/members/:id", "View member", ModuleMembers),
	def(http.MethodGet, "/v0/admin/members/:id/entries", "View member points history", ModuleMembers),
	def(http.MethodGet, "/v0/admin/members/:id/redemptions", "View member redemptions", ModuleMembers),
	def(http.MethodGet, "/v0/admin/members/:id/route", "Plan delivery route", ModuleMembers),
	def(http.MethodPost, "/v0/admin/members/:id/points", "Add points", ModuleMembers),
	def(http.MethodGet, "/v0/admin/members/by-code/:code", "Look up member by code", ModuleMembers),
	def(http.MethodPost, "/v0/admin/members/by-code/:code/points", "Add points by code", ModuleMembers),

	def(http.MethodGet, "/v0/admin/redemptions", "List redemptions", ModuleRedemptions),
	def(http.MethodGet, "/v0/admin/redemptions/pending", "List pending redemptions", ModuleRedemptions),
	def(http.MethodGet, "/v0/admin/redemptions/:id", "View redemption", ModuleRedemptions),
	def(http.MethodPost, "/v0/admin/redemptions", "Create redemption", ModuleRedemptions),
	def(http.MethodPost, "/v0/admin/redemptions/:id/approve", "Approve redemption", ModuleRedemptions),
	def(http.MethodPost, "/v0/admin/redemptions/:id/reject", "Reject redemption", ModuleRedemptions),

	def(http.MethodGet, "/v0/admin/inventory", "List inventory", ModuleInventory),
	def(http.MethodGet, "/v0/admin/inventory/usage", "View recent usage", ModuleInventory),
	def(http.MethodPost, "/v0/admin/inventory", "Create item", ModuleInventory),
	def(http.MethodPut, "/v0/admin/inventory/:id", "Update item", ModuleInventory),
	def(http.MethodDelete, "/v0/admin/inventory/:id", "Delete item", ModuleInventory),
	def(http.MethodPost, "/v0/admin/inventory/:id/usage", "Record usage", ModuleInventory),
	def(http.MethodPost, "/v0/admin/inventory/:id/restock", "Restock item", ModuleInventory),

	def(http.MethodGet, "/v0/admin/settings", "View settings", ModuleSettings),
	def(http.MethodPut, "/v0/admin/settings", "Update settings", ModuleSettings),

	def(http.MethodGet, "/v0/admin/admins", "List admins", ModuleAdmins),
	def(http.MethodPost, "/v0/admin/admins", "Create admin", ModuleAdmins),
	def(http.MethodGet, "/v0/admin/admins/:id", "View admin", ModuleAdmins),
	def(http.MethodPut, "/v0/admin/admins/:id", "Update admin", ModuleAdmins),
	def(http.MethodDelete, "/v0/admin/admins/:id", "Delete admin", ModuleAdmins),
	def(http.MethodPost, "/v0/admin/admins/:id/disable", "Disable admin", ModuleAdmins),
	def(http.MethodPost, "/v0/admin/admins/:id/enable", "Enable admin", ModuleAdmins),
	def(http.MethodPut, "/v0/admin/admins/:id/password", "Reset admin password", ModuleAdmins),
	def(http.MethodGet, "/v0/admin/permissions", "List permissions", ModuleAdmins),
}

func def(method, path, label, module string) Definition {
	return Definition{Key: Key(method, path), Method: method, Path: path, Label: label, Module: module}
}

// Key builds the permission key for a method and gin route pattern.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns every grantable permission in catalogue order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes the definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[d.Key] = d
	}
	return out
}

// HasPermission reports whether key is among granted.
func HasPermission(granted []string, key string) bool {
	for _, g := range granted {
		if g == key {
			return true
		}
	}
	return false
}

// NormalizePermissions trims, de-duplicates and sorts permission keys.
func NormalizePermissions(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		parts := strings.SplitN(strings.TrimSpace(k), " ", 2)
		if len(parts) != 2 {
			continue
		}
		normalized := Key(parts[0], parts[1])
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects keys that are not in the catalogue.
func ValidatePermissions(keys []string) error {
	known := DefinitionMap()
	for _, k := range keys {
		if _, ok := known[k]; !ok {
			return fmt.Errorf("unknown permission %q", k)
		}
	}
	return nil
}

// MarshalPermissions encodes keys for the admins.permissions column.
func MarshalPermissions(keys []string) ([]byte, error) {
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(keys)
}

// ParsePermissions decodes the admins.permissions column. Malformed values grant nothing.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var keys []string
	if errUnmarshal := json.Unmarshal(raw, &keys); errUnmarshal != nil {
		return []string{}
	}
	return NormalizePermissions(keys)
}
