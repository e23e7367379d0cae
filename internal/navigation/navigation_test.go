package navigation

import (
	"testing"

	"github.com/martabak-juara/loyalty-club/internal/auth"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		role       auth.Role
		page       Page
		want       Page
		redirected bool
	}{
		{auth.RoleAnonymous, PageRegister, PageRegister, false},
		{auth.RoleAnonymous, PageMemberDashboard, PageHome, true},
		{auth.RoleAnonymous, PageInventory, PageHome, true},
		{auth.RoleMember, PageHome, PageMemberDashboard, true},
		{auth.RoleMember, PageAbout, PageAbout, false},
		{auth.RoleMember, PageSettings, PageMemberDashboard, true},
		{auth.RoleAdmin, PageInventory, PageInventory, false},
		{auth.RoleAdmin, PageMemberDashboard, PageAdminDashboard, true},
		{auth.RoleAdmin, Page("nowhere"), PageAdminDashboard, true},
		{auth.Role("bogus"), PageSettings, PageHome, true},
	}
	for _, tc := range cases {
		got, redirected := Resolve(tc.role, tc.page)
		if got != tc.want || redirected != tc.redirected {
			t.Fatalf("Resolve(%s, %s) = %s,%v; want %s,%v", tc.role, tc.page, got, redirected, tc.want, tc.redirected)
		}
	}
}

func TestPermittedIsSorted(t *testing.T) {
	pages := Permitted(auth.RoleAdmin)
	if len(pages) != 5 {
		t.Fatalf("expected 5 admin pages, got %d", len(pages))
	}
	for i := 1; i < len(pages); i++ {
		if pages[i-1] > pages[i] {
			t.Fatalf("pages not sorted: %v", pages)
		}
	}
	if !Known(PageRedemptionHistory) || Known(Page("nowhere")) {
		t.Fatalf("unexpected Known result")
	}
}

func TestNavigatorHistory(t *testing.T) {
	n := NewNavigator(auth.RoleAnonymous)
	n.Navigate(PageRegister)
	n.Navigate(PageRegister)
	if got := n.History(); len(got) != 2 {
		t.Fatalf("same page must not be pushed twice: %v", got)
	}

	if got := n.SetRole(auth.RoleMember); got != PageMemberDashboard {
		t.Fatalf("member on register should land on dashboard, got %s", got)
	}
	if got := n.Navigate(PageInventory); got != PageMemberDashboard {
		t.Fatalf("member cannot reach inventory, got %s", got)
	}
	n.Navigate(PageAbout)
	if got := n.Back(); got != PageMemberDashboard {
		t.Fatalf("back from about should return to dashboard, got %s", got)
	}
	if got := n.Back(); got != PageMemberDashboard {
		t.Fatalf("back onto a forbidden page must redirect, got %s", got)
	}

	n.Reset()
	if n.Current() != PageHome || len(n.History()) != 1 {
		t.Fatalf("reset should leave only home, got %v", n.History())
	}
	if got := n.Back(); got != PageHome {
		t.Fatalf("back on a single page stack stays put, got %s", got)
	}
}
