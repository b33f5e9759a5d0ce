package account

import (
	"errors"
	"strings"
	"testing"

	"viberate/internal/domain"
)

func TestValidateAddress(t *testing.T) {
	valid := "0x" + strings.Repeat("aB", 20)
	if err := ValidateAddress(valid); err != nil {
		t.Fatalf("ValidateAddress(%s) error = %v", valid, err)
	}
	for _, bad := range []string{"", "0x123", strings.Repeat("a", 42), "0x" + strings.Repeat("g", 40), " " + valid} {
		if err := ValidateAddress(bad); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("ValidateAddress(%q) error = %v, want validation", bad, err)
		}
	}
}

func TestParseRoleAndRequire(t *testing.T) {
	role, err := ParseRole(" Researcher ")
	if err != nil || role != RoleResearcher {
		t.Fatalf("ParseRole() = %q, %v", role, err)
	}
	if _, err := ParseRole("admin"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ParseRole(admin) error = %v", err)
	}

	a := Account{ID: "a1", Role: RoleAnnotator}
	if err := a.Require(RoleAnnotator, "claim"); err != nil {
		t.Fatalf("Require(annotator) error = %v", err)
	}
	if err := a.Require(RoleResearcher, "approve"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Require(researcher) error = %v", err)
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ValidateUsername(blank) error = %v", err)
	}
	if err := ValidateUsername(strings.Repeat("u", MaxUsernameLength+1)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ValidateUsername(long) error = %v", err)
	}
	if err := ValidateUsername("ada"); err != nil {
		t.Fatalf("ValidateUsername(ada) error = %v", err)
	}
}
