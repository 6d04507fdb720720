package persistence

import (
	"context"
	"fmt"

	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// SQLRepository stores subscriptions in three tables: the aggregate row, its
// devices and its monthly selections. It runs on SQLite and PostgreSQL.
type SQLRepository struct {
	conn database.Connection
	uow  *database.UnitOfWork
}

func NewSQLRepository(conn database.Connection) *SQLRepository {
	return &SQLRepository{conn: conn, uow: database.NewUnitOfWork(conn)}
}

func (r *SQLRepository) q(query string) string {
	return database.Rebind(r.conn.Driver(), query)
}

const selectSubscription = `
SELECT id, account_id, plan_id, plan_name, duration_months, discount_percent, catalog_version,
       start_month, status, previous_id, superseded_by, version, created_at, updated_at
FROM subscriptions
WHERE id = ?`

func (r *SQLRepository) Load(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	var (
		p                    domain.RehydrateSubscriptionParams
		startMonth, status   string
		previous, superseded uuid.NullUUID
		createdAt, updatedAt database.Timestamp
	)
	err := exec.QueryRow(ctx, r.q(selectSubscription), id).Scan(
		&p.ID, &p.AccountID, &p.Plan.PlanID, &p.Plan.Name, &p.Plan.DurationMonths, &p.Plan.DiscountPercent,
		&p.Plan.CatalogVersion, &startMonth, &status, &previous, &superseded, &p.Version, &createdAt, &updatedAt,
	)
	if database.IsNoRows(err) {
		return nil, domain.ErrSubscriptionNotFound.WithDetails("%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load subscription %s: %w", id, err)
	}

	if p.StartMonth, err = domain.ParseMonthKey(startMonth); err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)
	if previous.Valid {
		p.PreviousID = &previous.UUID
	}
	if superseded.Valid {
		p.SupersededBy = &superseded.UUID
	}
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	if p.Devices, err = r.loadDevices(ctx, exec, id); err != nil {
		return nil, err
	}
	if p.Months, err = r.loadMonths(ctx, exec, p); err != nil {
		return nil, err
	}
	return domain.RehydrateSubscription(p)
}

func (r *SQLRepository) loadDevices(ctx context.Context, exec database.Executor, id uuid.UUID) ([]domain.Device, error) {
	rows, err := exec.Query(ctx, r.q(`SELECT device_id, name, type_id FROM subscription_devices WHERE subscription_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	defer rows.Close()

	var devices []domain.Device
	for rows.Next() {
		var d domain.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.TypeID); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// loadMonths lays selections out in month then device order. Missing rows
// become unchosen slots and are caught by validation if the month is absent.
func (r *SQLRepository) loadMonths(ctx context.Context, exec database.Executor, p domain.RehydrateSubscriptionParams) ([]domain.MonthlySelection, error) {
	rows, err := exec.Query(ctx, r.q(`SELECT month, device_id, oil_id FROM monthly_selections WHERE subscription_id = ?`), p.ID)
	if err != nil {
		return nil, fmt.Errorf("load selections: %w", err)
	}
	defer rows.Close()

	type slot struct {
		month  string
		device uuid.UUID
	}
	oils := make(map[slot]string)
	months := make(map[string]bool)
	for rows.Next() {
		var (
			s   slot
			oil string
		)
		if err := rows.Scan(&s.month, &s.device, &oil); err != nil {
			return nil, err
		}
		oils[s] = oil
		months[s.month] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []domain.MonthlySelection
	for i := 0; i < p.Plan.DurationMonths; i++ {
		key := p.StartMonth.AddMonths(i)
		if !months[key.String()] {
			continue
		}
		sel := domain.MonthlySelection{Month: key, Devices: make([]domain.DeviceSelection, len(p.Devices))}
		for j, d := range p.Devices {
			sel.Devices[j] = domain.DeviceSelection{DeviceID: d.ID, OilID: oils[slot{month: key.String(), device: d.ID}]}
		}
		out = append(out, sel)
	}
	return out, nil
}

func (r *SQLRepository) FindActiveByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error) {
	var id uuid.UUID
	err := database.ExecutorFromContext(ctx, r.conn).
		QueryRow(ctx, r.q(`SELECT id FROM subscriptions WHERE account_id = ? AND status = ?`), accountID, string(domain.SubscriptionStatusActive)).
		Scan(&id)
	if database.IsNoRows(err) {
		return nil, domain.ErrSubscriptionNotFound.WithDetails("no active subscription for account %s", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	return r.Load(ctx, id)
}

func (r *SQLRepository) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*domain.Subscription, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).
		Query(ctx, r.q(`SELECT id FROM subscriptions WHERE account_id = ? ORDER BY created_at, id`), accountID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	// close before loading: SQLite runs on a single connection
	if err := rows.Close(); err != nil {
		return nil, err
	}

	out := make([]*domain.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := r.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

const insertSubscription = `
INSERT INTO subscriptions (id, account_id, plan_id, plan_name, duration_months, discount_percent, catalog_version,
                           start_month, status, previous_id, superseded_by, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateSubscription = `
UPDATE subscriptions
SET plan_id = ?, plan_name = ?, duration_months = ?, discount_percent = ?, catalog_version = ?,
    start_month = ?, status = ?, previous_id = ?, superseded_by = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?`

// Save writes sub inside the transaction in ctx, or its own if there is none.
func (r *SQLRepository) Save(ctx context.Context, sub *domain.Subscription, expectedVersion int) error {
	next := expectedVersion + 1
	err := sharedApplication.WithUnitOfWork(ctx, r.uow, func(txCtx context.Context) error {
		exec := database.ExecutorFromContext(txCtx, r.conn)
		if expectedVersion == 0 {
			if err := r.insert(txCtx, exec, sub, next); err != nil {
				return err
			}
		} else if err := r.update(txCtx, exec, sub, expectedVersion, next); err != nil {
			return err
		}
		return r.replaceChildren(txCtx, exec, sub)
	})
	if err != nil {
		return err
	}
	sub.SetVersion(next)
	return nil
}

func (r *SQLRepository) exists(ctx context.Context, exec database.Executor, id uuid.UUID) (bool, error) {
	var one int
	err := exec.QueryRow(ctx, r.q(`SELECT 1 FROM subscriptions WHERE id = ?`), id).Scan(&one)
	if database.IsNoRows(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *SQLRepository) insert(ctx context.Context, exec database.Executor, sub *domain.Subscription, version int) error {
	found, err := r.exists(ctx, exec, sub.ID())
	if err != nil {
		return err
	}
	if found {
		return domain.ErrVersionConflict.WithDetails("subscription %s already stored", sub.ID())
	}

	plan := sub.Plan()
	_, err = exec.Exec(ctx, r.q(insertSubscription),
		sub.ID(), sub.AccountID(), plan.PlanID, plan.Name, plan.DurationMonths, plan.DiscountPercent, plan.CatalogVersion,
		sub.StartMonth().String(), string(sub.Status()), nullUUID(sub.PreviousID()), nullUUID(sub.SupersededBy()),
		version, database.At(sub.CreatedAt()), database.At(sub.UpdatedAt()),
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrActiveSubscriptionExists.WithDetails("account %s", sub.AccountID())
	}
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *SQLRepository) update(ctx context.Context, exec database.Executor, sub *domain.Subscription, expected, next int) error {
	plan := sub.Plan()
	res, err := exec.Exec(ctx, r.q(updateSubscription),
		plan.PlanID, plan.Name, plan.DurationMonths, plan.DiscountPercent, plan.CatalogVersion,
		sub.StartMonth().String(), string(sub.Status()), nullUUID(sub.PreviousID()), nullUUID(sub.SupersededBy()),
		next, database.At(sub.UpdatedAt()),
		sub.ID(), expected,
	)
	if database.IsUniqueViolation(err) {
		return domain.ErrActiveSubscriptionExists.WithDetails("account %s", sub.AccountID())
	}
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	found, err := r.exists(ctx, exec, sub.ID())
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrSubscriptionNotFound.WithDetails("%s", sub.ID())
	}
	return domain.ErrVersionConflict.WithDetails("expected version %d", expected)
}

func (r *SQLRepository) replaceChildren(ctx context.Context, exec database.Executor, sub *domain.Subscription) error {
	if _, err := exec.Exec(ctx, r.q(`DELETE FROM monthly_selections WHERE subscription_id = ?`), sub.ID()); err != nil {
		return fmt.Errorf("clear selections: %w", err)
	}
	if _, err := exec.Exec(ctx, r.q(`DELETE FROM subscription_devices WHERE subscription_id = ?`), sub.ID()); err != nil {
		return fmt.Errorf("clear devices: %w", err)
	}

	insertDevice := r.q(`INSERT INTO subscription_devices (subscription_id, position, device_id, name, type_id) VALUES (?, ?, ?, ?, ?)`)
	for i, d := range sub.Devices() {
		if _, err := exec.Exec(ctx, insertDevice, sub.ID(), i, d.ID, d.Name, d.TypeID); err != nil {
			return fmt.Errorf("insert device %s: %w", d.ID, err)
		}
	}

	insertSelection := r.q(`INSERT INTO monthly_selections (subscription_id, month, device_id, oil_id) VALUES (?, ?, ?, ?)`)
	for _, m := range sub.Months() {
		for _, sel := range m.Devices {
			if _, err := exec.Exec(ctx, insertSelection, sub.ID(), m.Month.String(), sel.DeviceID, sel.OilID); err != nil {
				return fmt.Errorf("insert selection %s/%s: %w", m.Month, sel.DeviceID, err)
			}
		}
	}
	return nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
