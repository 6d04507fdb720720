package api

import (
	"log/slog"

	"github.com/felixgeelhaar/aromabox/internal/app"
)

// NewServerFromContainer wires every API route to the container's handlers.
func NewServerFromContainer(cfg ServerConfig, c *app.Container, logger *slog.Logger) *Server {
	handler := NewSubscriptionHandler(SubscriptionHandlerConfig{
		CreateSubscription: c.CreateSubscriptionHandler,
		SetDeviceOil:       c.SetDeviceOilHandler,
		GetSummary:         c.GetSubscriptionSummaryHandler,
		GetMonth:           c.GetMonthlySelectionHandler,
		GetTimeline:        c.GetTimelineHandler,
		ProposePlan:        c.ProposePlanHandler,
		ConfirmPlan:        c.ConfirmPlanHandler,
		SubmitPayment:      c.SubmitPaymentHandler,
		CancelPlanChange:   c.CancelPlanChangeHandler,
		GetWorkflow:        c.GetWorkflowHandler,
		Catalog:            c.Catalog,
		Prices:             c.Prices,
		Logger:             logger,
	})
	return NewServer(cfg, handler, c.Health, logger)
}
