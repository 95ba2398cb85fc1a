// Package access holds the closed set of principal roles and the pure
// predicates that decide what each role may do.
package access

import (
	"errors"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser    Role = "user"
	RolePremium Role = "premium"
	RoleAdmin   Role = "admin"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RolePremium, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

func (r Role) String() string { return string(r) }

// Toggled flips user and premium. Admins have no toggle.
func (r Role) Toggled() (Role, error) {
	switch r {
	case RoleUser:
		return RolePremium, nil
	case RolePremium:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("role %q cannot be toggled", r)
	}
}

type Guard func(Role) bool

func IsUser(r Role) bool    { return r == RoleUser }
func IsAdmin(r Role) bool   { return r == RoleAdmin }
func IsPremium(r Role) bool { return r == RolePremium }

// IsNotAdmin admits every known role except admin; admins may not shop.
func IsNotAdmin(r Role) bool { return r.Valid() && r != RoleAdmin }

func IsPremiumOrAdmin(r Role) bool { return r == RolePremium || r == RoleAdmin }

func Any(Role) bool { return true }
