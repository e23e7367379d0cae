// Package navigation is the page router: which pages a role may see and where it lands otherwise.
package navigation

import (
	"sort"
	"sync"

	"github.com/martabak-juara/loyalty-club/internal/auth"
)

// Page identifies a screen of the client.
type Page string

// Pages served by the client.
const (
	PageHome              Page = "home"
	PageRegister          Page = "register"
	PageMemberLogin       Page = "member-login"
	PageAdminLogin        Page = "admin-login"
	PageAbout             Page = "about"
	PageMemberDashboard   Page = "member-dashboard"
	PageAdminDashboard    Page = "admin-dashboard"
	PageAllMembers        Page = "all-members"
	PageInventory         Page = "inventory"
	PageSettings          Page = "settings"
	PageRedemptionHistory Page = "redemption-history"
)

var (
	publicPages = []Page{PageHome, PageRegister, PageMemberLogin, PageAdminLogin, PageAbout}
	memberPages = []Page{PageMemberDashboard, PageAbout}
	adminPages  = []Page{PageAdminDashboard, PageAllMembers, PageInventory, PageSettings, PageRedemptionHistory}
)

// guard lists the pages a role may view and where it is sent otherwise.
type guard struct {
	pages   map[Page]struct{}
	landing Page
}

var guards = map[auth.Role]guard{
	auth.RoleAnonymous: newGuard(PageHome, publicPages),
	auth.RoleMember:    newGuard(PageMemberDashboard, memberPages),
	auth.RoleAdmin:     newGuard(PageAdminDashboard, adminPages),
}

func newGuard(landing Page, pages []Page) guard {
	set := make(map[Page]struct{}, len(pages))
	for _, p := range pages {
		set[p] = struct{}{}
	}
	return guard{pages: set, landing: landing}
}

func guardFor(role auth.Role) guard {
	if g, ok := guards[role]; ok {
		return g
	}
	return guards[auth.RoleAnonymous]
}

// Known reports whether p is a page of the client.
func Known(p Page) bool {
	for _, g := range guards {
		if _, ok := g.pages[p]; ok {
			return true
		}
	}
	return false
}

// Permitted returns the pages role may view, sorted.
func Permitted(role auth.Role) []Page {
	g := guardFor(role)
	out := make([]Page, 0, len(g.pages))
	for p := range g.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Landing returns the page role is redirected to.
func Landing(role auth.Role) Page {
	return guardFor(role).landing
}

// Resolve returns page when role may view it, otherwise the role's landing page.
func Resolve(role auth.Role, page Page) (target Page, redirected bool) {
	g := guardFor(role)
	if _, ok := g.pages[page]; ok {
		return page, false
	}
	return g.landing, true
}

// Navigator tracks one client's current page and back stack.
type Navigator struct {
	mu      sync.Mutex
	role    auth.Role
	history []Page
}

// NewNavigator starts at the landing page of role.
func NewNavigator(role auth.Role) *Navigator {
	return &Navigator{role: role, history: []Page{Landing(role)}}
}

// Current returns the page on top of the stack.
func (n *Navigator) Current() Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history[len(n.history)-1]
}

// History returns a copy of the back stack, oldest first.
func (n *Navigator) History() []Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Page, len(n.history))
	copy(out, n.history)
	return out
}

// Navigate moves to page, or to the landing page when the role may not see it.
func (n *Navigator) Navigate(page Page) Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	target, _ := Resolve(n.role, page)
	n.push(target)
	return target
}

// Back pops the stack and returns the new current page. The first page is never popped.
func (n *Navigator) Back() Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.history) > 1 {
		n.history = n.history[:len(n.history)-1]
	}
	current := n.history[len(n.history)-1]
	if target, redirected := Resolve(n.role, current); redirected {
		n.push(target)
	}
	return n.history[len(n.history)-1]
}

// SetRole applies an auth change and redirects when the current page is no longer allowed.
func (n *Navigator) SetRole(role auth.Role) Page {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.role = role
	if target, redirected := Resolve(role, n.history[len(n.history)-1]); redirected {
		n.push(target)
	}
	return n.history[len(n.history)-1]
}

// Reset clears the stack for a signed-out client.
func (n *Navigator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.role = auth.RoleAnonymous
	n.history = []Page{PageHome}
}

func (n *Navigator) push(p Page) {
	if n.history[len(n.history)-1] != p {
		n.history = append(n.history, p)
	}
}
