package application

import (
	"context"

	"github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
)

// CorrelationIDFromContext returns the request correlation id as a uuid.
// Ids that are not uuids are hashed into one so they still group events.
func CorrelationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	raw := observability.CorrelationIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, false
	}
	if id, err := uuid.Parse(raw); err == nil && id != uuid.Nil {
		return id, true
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw)), true
}

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// NewEventMetadata builds command-scoped metadata. The correlation id is
// taken from ctx when present so events can be traced back to the request.
func NewEventMetadata(ctx context.Context, accountID uuid.UUID) domain.EventMetadata {
	correlationID, ok := CorrelationIDFromContext(ctx)
	if !ok {
		correlationID = uuid.New()
	}
	return domain.EventMetadata{
		CorrelationID: correlationID,
		CausationID:   uuid.New(),
		AccountID:     accountID,
	}
}

// ApplyEventMetadata stamps metadata onto every event that accepts it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}
