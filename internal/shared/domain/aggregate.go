package domain

import (
	"time"

	"github.com/google/uuid"
)

// AggregateRoot is the consistency boundary that repositories load and save.
type AggregateRoot interface {
	Entity
	DomainEvents() []DomainEvent
	ClearDomainEvents()
	Version() int
}

// BaseAggregateRoot tracks pending events and the optimistic-lock version.
// Version is the value last read from (or written to) storage; repositories
// compare it against the stored row before writing.
type BaseAggregateRoot struct {
	BaseEntity
	pending []DomainEvent
	version int
}

// NewBaseAggregateRoot starts a brand new aggregate at version 0.
func NewBaseAggregateRoot(id uuid.UUID, at time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntityWithID(id, at)}
}

// RehydrateBaseAggregateRoot rebuilds an aggregate at a stored version.
func RehydrateBaseAggregateRoot(entity BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity, version: version}
}

// DomainEvents returns events recorded since the last save.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	out := make([]DomainEvent, len(a.pending))
	copy(out, a.pending)
	return out
}

// ClearDomainEvents drops pending events after they have been handed to the outbox.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// Record appends a domain event.
func (a *BaseAggregateRoot) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *BaseAggregateRoot) Version() int { return a.version }

// SetVersion is called by repositories once a write has been accepted.
func (a *BaseAggregateRoot) SetVersion(version int) {
	a.version = version
}
