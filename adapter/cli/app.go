package cli

import (
	internalApp "github.com/felixgeelhaar/aromabox/internal/app"
	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	planchangeCommands "github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	planchangeQueries "github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	subscriptionCommands "github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	subscriptionQueries "github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Subscription Command Handlers
	CreateSubscriptionHandler *subscriptionCommands.CreateSubscriptionHandler
	SetDeviceOilHandler       *subscriptionCommands.SetDeviceOilHandler

	// Subscription Query Handlers
	GetSubscriptionSummaryHandler *subscriptionQueries.GetSubscriptionSummaryHandler
	GetMonthlySelectionHandler    *subscriptionQueries.GetMonthlySelectionHandler
	GetTimelineHandler            *subscriptionQueries.GetTimelineHandler

	// Plan Change Handlers
	ProposePlanHandler      *planchangeCommands.ProposePlanHandler
	ConfirmPlanHandler      *planchangeCommands.ConfirmPlanHandler
	SubmitPaymentHandler    *planchangeCommands.SubmitPaymentHandler
	CancelPlanChangeHandler *planchangeCommands.CancelPlanChangeHandler
	GetWorkflowHandler      *planchangeQueries.GetWorkflowHandler

	// Reference data
	Catalog catalogDomain.Provider
	Prices  *subscriptionDomain.PriceTable
	Policy  subscriptionDomain.EditPolicy
	Clock   sharedDomain.Clock

	Health *observability.Health

	// CurrentAccountID is used when --account is not given.
	CurrentAccountID uuid.UUID
}

// NewApp creates a new CLI application backed by the container.
func NewApp(c *internalApp.Container, currentAccount uuid.UUID) *App {
	return &App{
		CreateSubscriptionHandler:     c.CreateSubscriptionHandler,
		SetDeviceOilHandler:           c.SetDeviceOilHandler,
		GetSubscriptionSummaryHandler: c.GetSubscriptionSummaryHandler,
		GetMonthlySelectionHandler:    c.GetMonthlySelectionHandler,
		GetTimelineHandler:            c.GetTimelineHandler,
		ProposePlanHandler:            c.ProposePlanHandler,
		ConfirmPlanHandler:            c.ConfirmPlanHandler,
		SubmitPaymentHandler:          c.SubmitPaymentHandler,
		CancelPlanChangeHandler:       c.CancelPlanChangeHandler,
		GetWorkflowHandler:            c.GetWorkflowHandler,
		Catalog:                       c.Catalog,
		Prices:                        c.Prices,
		Policy:                        c.Policy,
		Clock:                         c.Clock,
		Health:                        c.Health,
		CurrentAccountID:              currentAccount,
	}
}

// SetCurrentAccountID updates the default account.
func (a *App) SetCurrentAccountID(id uuid.UUID) {
	a.CurrentAccountID = id
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
