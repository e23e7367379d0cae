package permissions

import (
	"testing"

	"gorm.io/datatypes"
)

func TestDefinitionMapIncludesLedgerPermissions(t *testing.T) {
	t.Parallel()

	definitionMap := DefinitionMap()
	requiredKeys := []string{
		"POST /v0/admin/members/:id/points",
		"POST /v0/admin/members/by-code/:code/points",
		"POST /v0/admin/redemptions/:id/approve",
		"POST /v0/admin/redemptions/:id/reject",
		"POST /v0/admin/inventory/:id/usage",
		"PUT /v0/admin/settings",
	}

	for _, key := range requiredKeys {
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			if _, ok := definitionMap[key]; !ok {
				t.Fatalf("DefinitionMap() missing permission key %q", key)
			}
		})
	}
}

func TestDefinitionKeysAreUnique(t *testing.T) {
	t.Parallel()

	if got, want := len(DefinitionMap()), len(Definitions()); got != want {
		t.Fatalf("expected %d unique keys, got %d", want, got)
	}
}

func TestNormalizeAndValidatePermissions(t *testing.T) {
	t.Parallel()

	normalized := NormalizePermissions([]string{
		" post /v0/admin/redemptions/:id/approve ",
		"POST /v0/admin/redemptions/:id/approve",
		"GET /v0/admin/members",
		"garbage",
	})
	if len(normalized) != 2 {
		t.Fatalf("expected 2 keys, got %v", normalized)
	}
	if normalized[0] != "GET /v0/admin/members" || normalized[1] != "POST /v0/admin/redemptions/:id/approve" {
		t.Fatalf("unexpected normalized keys %v", normalized)
	}
	if errValidate := ValidatePermissions(normalized); errValidate != nil {
		t.Fatalf("validate: %v", errValidate)
	}
	if errValidate := ValidatePermissions([]string{"POST /v0/admin/unknown"}); errValidate == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestParsePermissionsRoundTripAndMalformed(t *testing.T) {
	t.Parallel()

	raw, errMarshal := MarshalPermissions([]string{"GET /v0/admin/inventory"})
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	parsed := ParsePermissions(datatypes.JSON(raw))
	if !HasPermission(parsed, "GET /v0/admin/inventory") {
		t.Fatalf("expected permission to survive, got %v", parsed)
	}
	if got := ParsePermissions(datatypes.JSON(`{"not":"a list"}`)); len(got) != 0 {
		t.Fatalf("expected malformed value to grant nothing, got %v", got)
	}
	if raw, _ := MarshalPermissions(nil); string(raw) != "[]" {
		t.Fatalf("expected empty list, got %s", raw)
	}
}
