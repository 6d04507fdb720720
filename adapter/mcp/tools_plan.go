package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	"github.com/felixgeelhaar/mcp-go"
)

type planProposeInput struct {
	AccountID string `json:"account_id,omitempty"`
	PlanID    string `json:"plan_id" jsonschema:"required"`
}

type workflowInput struct {
	WorkflowID string `json:"workflow_id" jsonschema:"required"`
}

type planPayInput struct {
	WorkflowID string `json:"workflow_id" jsonschema:"required"`
	Method     string `json:"method,omitempty"`
}

func registerPlanTools(srv *mcp.Server, deps ToolDependencies) error {
	h := planTools{deps: deps}

	srv.Tool("plan.propose").
		Description("Start a plan change and get the quoted amount").
		Handler(h.propose)

	srv.Tool("plan.confirm").
		Description("Accept the terms of a proposed plan change").
		Handler(h.confirm)

	srv.Tool("plan.pay").
		Description("Pay for a confirmed plan change (card, upi, netbanking, wallet) and switch plans").
		Handler(h.pay)

	srv.Tool("plan.cancel").
		Description("Abandon a plan change").
		Handler(h.cancel)

	srv.Tool("plan.get").
		Description("Show the state of a plan change").
		Handler(h.get)

	return nil
}

type planTools struct {
	deps ToolDependencies
}

func requireWorkflowID(id string) error {
	if id == "" {
		return errors.New("workflow_id is required")
	}
	return nil
}

func (t planTools) propose(ctx context.Context, input planProposeInput) (*queries.WorkflowDTO, error) {
	app := t.deps.App
	if app == nil || app.ProposePlanHandler == nil {
		return nil, errNoDatabase
	}
	accountID, err := resolveAccount(app, input.AccountID)
	if err != nil {
		return nil, err
	}
	return app.ProposePlanHandler.Handle(ctx, commands.ProposePlanCommand{AccountID: accountID, PlanID: input.PlanID})
}

func (t planTools) confirm(ctx context.Context, input workflowInput) (*queries.WorkflowDTO, error) {
	app := t.deps.App
	if app == nil || app.ConfirmPlanHandler == nil {
		return nil, errNoDatabase
	}
	if err := requireWorkflowID(input.WorkflowID); err != nil {
		return nil, err
	}
	return app.ConfirmPlanHandler.Handle(ctx, commands.ConfirmPlanCommand{WorkflowID: input.WorkflowID})
}

func (t planTools) pay(ctx context.Context, input planPayInput) (*queries.WorkflowDTO, error) {
	app := t.deps.App
	if app == nil || app.SubmitPaymentHandler == nil {
		return nil, errNoDatabase
	}
	if err := requireWorkflowID(input.WorkflowID); err != nil {
		return nil, err
	}
	if input.Method == "" {
		input.Method = "card"
	}
	return app.SubmitPaymentHandler.Handle(ctx, commands.SubmitPaymentCommand{WorkflowID: input.WorkflowID, Method: input.Method})
}

func (t planTools) cancel(ctx context.Context, input workflowInput) (*queries.WorkflowDTO, error) {
	app := t.deps.App
	if app == nil || app.CancelPlanChangeHandler == nil {
		return nil, errNoDatabase
	}
	if err := requireWorkflowID(input.WorkflowID); err != nil {
		return nil, err
	}
	return app.CancelPlanChangeHandler.Handle(ctx, commands.CancelPlanChangeCommand{WorkflowID: input.WorkflowID})
}

func (t planTools) get(ctx context.Context, input workflowInput) (*queries.WorkflowDTO, error) {
	app := t.deps.App
	if app == nil || app.GetWorkflowHandler == nil {
		return nil, errNoDatabase
	}
	if err := requireWorkflowID(input.WorkflowID); err != nil {
		return nil, err
	}
	return app.GetWorkflowHandler.Handle(ctx, queries.GetWorkflowQuery{WorkflowID: input.WorkflowID})
}
