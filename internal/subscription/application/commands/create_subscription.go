package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
)

// DeviceInput describes a device to attach at signup. A nil ID gets a fresh one.
type DeviceInput struct {
	ID     uuid.UUID
	Name   string
	TypeID string
}

// CreateSubscriptionCommand signs an account up for a plan.
type CreateSubscriptionCommand struct {
	AccountID uuid.UUID
	PlanID    string
	Devices   []DeviceInput
	// StartMonth defaults to the next month that is still editable.
	StartMonth *domain.MonthKey
}

// CreateSubscriptionResult identifies the new subscription.
type CreateSubscriptionResult struct {
	SubscriptionID uuid.UUID
	StartMonth     domain.MonthKey
	EndMonth       domain.MonthKey
	Version        int
}

// CreateSubscriptionHandler handles CreateSubscriptionCommand.
type CreateSubscriptionHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	locker     sharedApplication.Locker
	catalog    catalogDomain.Provider
	clock      sharedDomain.Clock
	policy     domain.EditPolicy
	metrics    observability.Metrics
	logger     *slog.Logger
}

// NewCreateSubscriptionHandler creates a new CreateSubscriptionHandler.
func NewCreateSubscriptionHandler(
	repo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	locker sharedApplication.Locker,
	catalog catalogDomain.Provider,
	clock sharedDomain.Clock,
	policy domain.EditPolicy,
	metrics observability.Metrics,
	logger *slog.Logger,
) *CreateSubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &CreateSubscriptionHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		uow:        uow,
		locker:     locker,
		catalog:    catalog,
		clock:      clock,
		policy:     policy,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle executes the CreateSubscriptionCommand.
func (h *CreateSubscriptionHandler) Handle(ctx context.Context, cmd CreateSubscriptionCommand) (result *CreateSubscriptionResult, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "create_subscription", start, sharedApplication.Outcome(err))
	}()

	if cmd.AccountID == uuid.Nil {
		return nil, domain.ErrInvalidSubscription.WithDetails("account id is empty")
	}
	if len(cmd.Devices) == 0 {
		return nil, domain.ErrInvalidSubscription.WithDetails("at least one device is required")
	}

	terms, err := planTerms(ctx, h.catalog, cmd.PlanID)
	if err != nil {
		return nil, err
	}

	devices := make([]domain.Device, 0, len(cmd.Devices))
	for _, in := range cmd.Devices {
		if _, err := h.catalog.GetDeviceType(ctx, in.TypeID); err != nil {
			return nil, err
		}
		id := in.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		devices = append(devices, domain.Device{ID: id, Name: strings.TrimSpace(in.Name), TypeID: in.TypeID})
	}

	defaults, err := defaultOils(ctx, h.catalog)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithLock(ctx, h.locker, sharedApplication.AccountLockKey(cmd.AccountID.String()), func(ctx context.Context) error {
		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			existing, err := h.repo.FindActiveByAccountID(txCtx, cmd.AccountID)
			switch {
			case err == nil:
				return domain.ErrActiveSubscriptionExists.WithDetails("%s", existing.ID())
			case !errors.Is(err, domain.ErrSubscriptionNotFound):
				return err
			}

			now := h.clock.Now()
			startMonth := h.policy.NextEditableMonth(now)
			if cmd.StartMonth != nil {
				startMonth = *cmd.StartMonth
			}

			sub, err := domain.NewSubscription(domain.NewSubscriptionParams{
				AccountID:   cmd.AccountID,
				Plan:        terms,
				StartMonth:  startMonth,
				Devices:     devices,
				DefaultOils: defaults,
				Now:         now,
			})
			if err != nil {
				return err
			}

			if err := h.repo.Save(txCtx, sub, 0); err != nil {
				return err
			}
			if err := saveEvents(txCtx, h.outboxRepo, cmd.AccountID, sub); err != nil {
				return err
			}

			result = &CreateSubscriptionResult{
				SubscriptionID: sub.ID(),
				StartMonth:     sub.StartMonth(),
				EndMonth:       sub.EndMonth(),
				Version:        sub.Version(),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "subscription created",
		"subscription_id", result.SubscriptionID,
		"account_id", cmd.AccountID,
		"plan_id", terms.PlanID,
		"start_month", result.StartMonth.String(),
	)
	return result, nil
}

// planTerms snapshots a catalog plan onto the subscription.
func planTerms(ctx context.Context, catalog catalogDomain.Provider, planID string) (domain.PlanTerms, error) {
	plan, err := catalog.GetPlan(ctx, planID)
	if err != nil {
		return domain.PlanTerms{}, err
	}
	version, err := catalog.Version(ctx)
	if err != nil {
		return domain.PlanTerms{}, err
	}
	return domain.PlanTerms{
		PlanID:          plan.ID,
		Name:            plan.Name,
		DurationMonths:  plan.DurationMonths,
		DiscountPercent: plan.DiscountPercent,
		CatalogVersion:  version,
	}, nil
}

func defaultOils(ctx context.Context, catalog catalogDomain.Provider) ([]string, error) {
	oils, err := catalog.ListAromaOils(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(oils))
	for i, o := range oils {
		ids[i] = o.ID
	}
	return ids, nil
}

// saveEvents stamps and writes the aggregate's pending events to the outbox,
// then clears them.
func saveEvents(ctx context.Context, outboxRepo outbox.Repository, accountID uuid.UUID, sub *domain.Subscription) error {
	events := sub.DomainEvents()
	if len(events) == 0 {
		return nil
	}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.NewEventMetadata(ctx, accountID))

	msgs, err := outbox.NewMessages(events)
	if err != nil {
		return err
	}
	if err := outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return err
	}
	sub.ClearDomainEvents()
	return nil
}
