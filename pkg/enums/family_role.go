package enums

import "fmt"

// FamilyRole represents a member's role within a family.
type FamilyRole string

const (
	FamilyRoleAdmin  FamilyRole = "admin"
	FamilyRoleMember FamilyRole = "member"
	FamilyRoleChild  FamilyRole = "child"
)

var validFamilyRoles = []FamilyRole{
	FamilyRoleAdmin,
	FamilyRoleMember,
	FamilyRoleChild,
}

// String implements fmt.Stringer.
func (f FamilyRole) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FamilyRole.
func (f FamilyRole) IsValid() bool {
	for _, candidate := range validFamilyRoles {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFamilyRole converts raw input into a FamilyRole.
func ParseFamilyRole(value string) (FamilyRole, error) {
	for _, candidate := range validFamilyRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid family role %q", value)
}
