package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database"
)

// SQLStore writes workflows to plan_change_workflows. The full workflow is
// kept as a JSON document; the other columns exist for lookups.
type SQLStore struct {
	conn  database.Connection
	clock sharedDomain.Clock
}

func NewSQLStore(conn database.Connection, clock sharedDomain.Clock) *SQLStore {
	return &SQLStore{conn: conn, clock: clock}
}

const (
	insertWorkflow = `
INSERT INTO plan_change_workflows (id, account_id, subscription_id, state, document, version, created_at, updated_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateWorkflow = `
UPDATE plan_change_workflows
SET state = ?, document = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?`
)

func (s *SQLStore) Save(ctx context.Context, w *domain.Workflow) error {
	next := *w
	next.Version++
	doc, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode workflow %s: %w", w.ID, err)
	}
	exec := database.ExecutorFromContext(ctx, s.conn)

	if w.Version == 0 {
		_, err = exec.Exec(ctx, database.Rebind(s.conn.Driver(), insertWorkflow),
			w.ID, w.AccountID, w.SubscriptionID, string(w.State), string(doc), next.Version,
			database.At(w.CreatedAt), database.At(w.UpdatedAt), database.At(w.ExpiresAt),
		)
		if database.IsUniqueViolation(err) {
			return domain.ErrWorkflowChanged.WithDetails("%s already exists", w.ID)
		}
		if err != nil {
			return fmt.Errorf("save workflow %s: %w", w.ID, err)
		}
		w.Version = next.Version
		return nil
	}

	res, err := exec.Exec(ctx, database.Rebind(s.conn.Driver(), updateWorkflow),
		string(w.State), string(doc), next.Version, database.At(w.UpdatedAt), w.ID, w.Version,
	)
	if err != nil {
		return fmt.Errorf("save workflow %s: %w", w.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save workflow %s: %w", w.ID, err)
	}
	if n == 0 {
		return domain.ErrWorkflowChanged.WithDetails("%s: version %d is no longer current", w.ID, w.Version)
	}
	w.Version = next.Version
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	var doc string
	err := exec.QueryRow(ctx, database.Rebind(s.conn.Driver(), `SELECT document FROM plan_change_workflows WHERE id = ?`), id).Scan(&doc)
	if database.IsNoRows(err) {
		return nil, domain.ErrWorkflowNotFound.WithDetails("%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", id, err)
	}

	var w domain.Workflow
	if err := json.Unmarshal([]byte(doc), &w); err != nil {
		return nil, fmt.Errorf("decode workflow %s: %w", id, err)
	}
	if w.IsExpired(s.clock.Now()) {
		return nil, domain.ErrWorkflowNotFound.WithDetails("%s", id)
	}
	return &w, nil
}
