package service

import (
	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/access"
)

// Principal is the authenticated caller as seen by the services.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   access.Role
}

func (p Principal) Can(a access.Action) bool { return access.Allowed(p.Role, a) }

func (p Principal) require(a access.Action) error {
	if !p.Can(a) {
		return ErrForbidden
	}
	return nil
}
