package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLRepository implements Repository for SQLite and PostgreSQL.
type SQLRepository struct {
	conn database.Connection
}

func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn}
}

func (r *SQLRepository) q(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const insertMessage = `
INSERT INTO outbox (event_id, aggregate_type, aggregate_id, routing_key, payload, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (r *SQLRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	for _, msg := range msgs {
		metadata, err := json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		err = exec.QueryRow(ctx, r.q(insertMessage),
			msg.EventID,
			msg.AggregateType,
			msg.AggregateID,
			msg.RoutingKey,
			string(msg.Payload),
			string(metadata),
			database.At(msg.CreatedAt),
		).Scan(&msg.ID)
		if err != nil {
			return fmt.Errorf("insert outbox message %s: %w", msg.EventID, err)
		}
	}
	return nil
}

const selectPending = `
SELECT id, event_id, aggregate_type, aggregate_id, routing_key, payload, metadata,
       created_at, next_retry_at, retry_count, last_error
FROM outbox
WHERE published_at IS NULL
  AND dead_at IS NULL
  AND (next_retry_at IS NULL OR next_retry_at <= ?)
ORDER BY id
LIMIT ?`

func (r *SQLRepository) FetchPending(ctx context.Context, now time.Time, limit int) ([]*Message, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)
	rows, err := exec.Query(ctx, r.q(selectPending), database.At(now), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var (
			msg                Message
			eventID, aggID     uuid.UUID
			payload, metadata  string
			createdAt, retryAt database.Timestamp
		)
		if err := rows.Scan(&msg.ID, &eventID, &msg.AggregateType, &aggID, &msg.RoutingKey,
			&payload, &metadata, &createdAt, &retryAt, &msg.RetryCount, &msg.LastError); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		msg.EventID = eventID
		msg.AggregateID = aggID
		msg.Payload = json.RawMessage(payload)
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata for %d: %w", msg.ID, err)
			}
		}
		msg.CreatedAt = createdAt.Time
		msg.NextRetryAt = retryAt.Ptr()
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (r *SQLRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		r.q(`UPDATE outbox SET published_at = ? WHERE id = ?`), database.At(at), id)
	return err
}

func (r *SQLRepository) MarkFailed(ctx context.Context, id int64, reason string, nextRetryAt time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		r.q(`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`),
		reason, database.At(nextRetryAt), id)
	return err
}

func (r *SQLRepository) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		r.q(`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, dead_at = ? WHERE id = ?`),
		reason, database.At(at), id)
	return err
}

func (r *SQLRepository) DeleteOld(ctx context.Context, before time.Time) (int64, error) {
	res, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		r.q(`DELETE FROM outbox WHERE published_at IS NOT NULL AND created_at < ?`), database.At(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
