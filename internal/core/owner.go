package core

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// OwnerKind tags which identity an expense belongs to.
type OwnerKind string

const (
	OwnerAccount OwnerKind = "account"
	OwnerGuest   OwnerKind = "guest"
)

// Owner is the resolved identity that scopes every query and mutation.
// Exactly one of AccountID / GuestSessionID is meaningful, selected by Kind;
// use AccountOwner or GuestOwner so the two can never be set together.
type Owner struct {
	Kind           OwnerKind
	AccountID      int64
	GuestSessionID uuid.UUID
}

var ErrInvalidOwner = errors.New("owner must be exactly one of account or guest session")

// AccountOwner builds an owner descriptor for a registered account.
func AccountOwner(id int64) Owner {
	return Owner{Kind: OwnerAccount, AccountID: id}
}

// GuestOwner builds an owner descriptor for an anonymous trial session.
func GuestOwner(sessionID uuid.UUID) Owner {
	return Owner{Kind: OwnerGuest, GuestSessionID: sessionID}
}

func (o Owner) Validate() error {
	switch o.Kind {
	case OwnerAccount:
		if o.AccountID <= 0 || o.GuestSessionID != uuid.Nil {
			return ErrInvalidOwner
		}
	case OwnerGuest:
		if o.GuestSessionID == uuid.Nil || o.AccountID != 0 {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

// String renders the owner for logs, e.g. "account:42" or "guest:3f1c...".
func (o Owner) String() string {
	switch o.Kind {
	case OwnerAccount:
		return "account:" + strconv.FormatInt(o.AccountID, 10)
	case OwnerGuest:
		return "guest:" + o.GuestSessionID.String()
	}
	return "unknown"
}
