package domain

import (
	"time"

	"github.com/google/uuid"
)

// Entity is anything in the domain with a stable identity.
type Entity interface {
	ID() uuid.UUID
	CreatedAt() time.Time
	UpdatedAt() time.Time
}

// BaseEntity carries identity and audit timestamps.
type BaseEntity struct {
	id        uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

// NewBaseEntity creates an entity with a fresh id stamped at the given instant.
func NewBaseEntity(at time.Time) BaseEntity {
	return NewBaseEntityWithID(uuid.New(), at)
}

// NewBaseEntityWithID creates an entity with a caller-supplied id.
func NewBaseEntityWithID(id uuid.UUID, at time.Time) BaseEntity {
	at = at.UTC()
	return BaseEntity{id: id, createdAt: at, updatedAt: at}
}

// RehydrateBaseEntity rebuilds an entity from stored state.
func RehydrateBaseEntity(id uuid.UUID, createdAt, updatedAt time.Time) BaseEntity {
	return BaseEntity{id: id, createdAt: createdAt.UTC(), updatedAt: updatedAt.UTC()}
}

func (e BaseEntity) ID() uuid.UUID        { return e.id }
func (e BaseEntity) CreatedAt() time.Time { return e.createdAt }
func (e BaseEntity) UpdatedAt() time.Time { return e.updatedAt }

// Touch records a modification at the given instant.
func (e *BaseEntity) Touch(at time.Time) {
	e.updatedAt = at.UTC()
}

// SameIdentity reports whether other refers to the same entity.
func (e BaseEntity) SameIdentity(other Entity) bool {
	return other != nil && e.id == other.ID()
}
