package domain

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidAccountID is returned when an account id cannot be parsed.
var ErrInvalidAccountID = errors.New("invalid account id")

// AccountID identifies the customer account that owns subscriptions and devices.
type AccountID struct {
	value uuid.UUID
}

// NewAccountID wraps an existing uuid.
func NewAccountID(id uuid.UUID) AccountID {
	return AccountID{value: id}
}

// ParseAccountID parses the textual form of an account id.
func ParseAccountID(s string) (AccountID, error) {
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return AccountID{}, ErrInvalidAccountID
	}
	return AccountID{value: id}, nil
}

func (a AccountID) UUID() uuid.UUID { return a.value }
func (a AccountID) String() string  { return a.value.String() }

// IsZero reports whether the id is unset.
func (a AccountID) IsZero() bool { return a.value == uuid.Nil }
