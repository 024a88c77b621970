package audit

import (
	"strings"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Actor identifies who performed an operation. It is supplied explicitly on
// every mutating call; the core never infers identity from ambient state, so
// the attribution in the audit trail is exactly what the caller asserted.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

// Actor roles as asserted by the upstream identity layer.
const (
	RoleAdmin    = "ADMIN"
	RoleResident = "RESIDENT"
	RoleSystem   = "SYSTEM"
)

// Valid reports whether the actor carries enough identity to be recorded.
func (a Actor) Valid() bool {
	return strings.TrimSpace(a.ID) != "" && strings.TrimSpace(a.Role) != ""
}

// RequireActor rejects mutating calls that arrive without attribution.
func RequireActor(a Actor) error {
	if !a.Valid() {
		return errors.NewValidationError("actor identity is required")
	}
	return nil
}

// SystemActor is the attribution used by background tooling such as seed
// and migration commands.
func SystemActor(id string) Actor {
	return Actor{ID: id, Role: RoleSystem}
}
