// Package identity turns validated claim sets into owner descriptors.
//
// Token signing and verification happen upstream; by the time claims reach
// this package they are authenticated and tamper-checked. The resolver only
// decides which identity kind the subject represents.
package identity

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"expenses/internal/core"
)

// Roles issued by the upstream authenticator.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
	RoleGuest = "Guest"
)

// Claims is the already-validated claim pair handed over by the transport
// layer: a role label and the subject identifier.
type Claims struct {
	Subject string
	Role    string
}

// Resolve maps claims to exactly one owner descriptor. A Guest subject must be
// an opaque session token (UUID); any other role's subject must be an integer
// account id. Anything else is an authentication failure, never a fallback.
// Resolve is pure and touches no storage.
func Resolve(c Claims) (core.Owner, error) {
	if c.Subject == "" {
		return core.Owner{}, fmt.Errorf("missing subject claim: %w", core.ErrUnauthorized)
	}

	if c.Role == RoleGuest {
		sessionID, err := uuid.Parse(c.Subject)
		if err != nil || sessionID == uuid.Nil {
			return core.Owner{}, fmt.Errorf("malformed guest session token: %w", core.ErrUnauthorized)
		}
		return core.GuestOwner(sessionID), nil
	}

	accountID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return core.Owner{}, fmt.Errorf("malformed account id subject: %w", core.ErrUnauthorized)
	}
	return core.AccountOwner(accountID), nil
}
