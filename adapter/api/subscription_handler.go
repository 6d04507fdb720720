package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	planchangeCommands "github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	planchangeQueries "github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	subscriptionCommands "github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	subscriptionQueries "github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// SubscriptionHandler handles subscription and plan change API requests.
type SubscriptionHandler struct {
	create   *subscriptionCommands.CreateSubscriptionHandler
	setOil   *subscriptionCommands.SetDeviceOilHandler
	summary  *subscriptionQueries.GetSubscriptionSummaryHandler
	month    *subscriptionQueries.GetMonthlySelectionHandler
	timeline *subscriptionQueries.GetTimelineHandler
	propose  *planchangeCommands.ProposePlanHandler
	confirm  *planchangeCommands.ConfirmPlanHandler
	pay      *planchangeCommands.SubmitPaymentHandler
	cancel   *planchangeCommands.CancelPlanChangeHandler
	workflow *planchangeQueries.GetWorkflowHandler
	catalog  catalogDomain.Provider
	prices   *subscriptionDomain.PriceTable
	logger   *slog.Logger
}

// SubscriptionHandlerConfig holds dependencies for the subscription handler.
type SubscriptionHandlerConfig struct {
	CreateSubscription *subscriptionCommands.CreateSubscriptionHandler
	SetDeviceOil       *subscriptionCommands.SetDeviceOilHandler
	GetSummary         *subscriptionQueries.GetSubscriptionSummaryHandler
	GetMonth           *subscriptionQueries.GetMonthlySelectionHandler
	GetTimeline        *subscriptionQueries.GetTimelineHandler
	ProposePlan        *planchangeCommands.ProposePlanHandler
	ConfirmPlan        *planchangeCommands.ConfirmPlanHandler
	SubmitPayment      *planchangeCommands.SubmitPaymentHandler
	CancelPlanChange   *planchangeCommands.CancelPlanChangeHandler
	GetWorkflow        *planchangeQueries.GetWorkflowHandler
	Catalog            catalogDomain.Provider
	Prices             *subscriptionDomain.PriceTable
	Logger             *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler.
func NewSubscriptionHandler(cfg SubscriptionHandlerConfig) *SubscriptionHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SubscriptionHandler{
		create:   cfg.CreateSubscription,
		setOil:   cfg.SetDeviceOil,
		summary:  cfg.GetSummary,
		month:    cfg.GetMonth,
		timeline: cfg.GetTimeline,
		propose:  cfg.ProposePlan,
		confirm:  cfg.ConfirmPlan,
		pay:      cfg.SubmitPayment,
		cancel:   cfg.CancelPlanChange,
		workflow: cfg.GetWorkflow,
		catalog:  cfg.Catalog,
		prices:   cfg.Prices,
		logger:   cfg.Logger,
	}
}

type createSubscriptionRequest struct {
	PlanID     string `json:"plan_id"`
	StartMonth string `json:"start_month,omitempty"`
	Devices    []struct {
		Name   string `json:"name"`
		TypeID string `json:"type_id"`
	} `json:"devices"`
}

type setOilRequest struct {
	OilID           string `json:"oil_id"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

type proposePlanRequest struct {
	PlanID string `json:"plan_id"`
}

type paymentRequest struct {
	Method string `json:"method"`
}

type pricedDevice struct {
	catalogDomain.DeviceType
	MonthlyPrice int64 `json:"monthly_price"`
}

// GetCatalog handles GET /api/v1/catalog
func (h *SubscriptionHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, err := h.catalog.Version(ctx)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	plans, err := h.catalog.ListPlans(ctx)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	oils, err := h.catalog.ListAromaOils(ctx)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	types, err := h.catalog.ListDeviceTypes(ctx)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	devices := make([]pricedDevice, 0, len(types))
	for _, t := range types {
		price, err := h.prices.PriceForDevice(t.CapacityML)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		devices = append(devices, pricedDevice{DeviceType: t, MonthlyPrice: price})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version": version,
		"plans":   plans,
		"oils":    oils,
		"devices": devices,
	})
}

// CreateSubscription handles POST /api/v1/accounts/{accountID}/subscription
func (h *SubscriptionHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req createSubscriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	cmd := subscriptionCommands.CreateSubscriptionCommand{AccountID: accountID, PlanID: req.PlanID}
	for _, d := range req.Devices {
		cmd.Devices = append(cmd.Devices, subscriptionCommands.DeviceInput{Name: d.Name, TypeID: d.TypeID})
	}
	if req.StartMonth != "" {
		month, err := subscriptionDomain.ParseMonthKey(req.StartMonth)
		if err != nil {
			writeError(w, r, h.logger, badRequest("start_month must be YYYY-MM"))
			return
		}
		cmd.StartMonth = &month
	}

	result, err := h.create.Handle(r.Context(), cmd)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"subscription_id": result.SubscriptionID,
		"start_month":     result.StartMonth,
		"end_month":       result.EndMonth,
		"version":         result.Version,
	})
}

// GetSummary handles GET /api/v1/accounts/{accountID}/subscription
func (h *SubscriptionHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.summary.Handle(r.Context(), subscriptionQueries.GetSubscriptionSummaryQuery{AccountID: accountID})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetTimeline handles GET /api/v1/accounts/{accountID}/timeline
func (h *SubscriptionHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.timeline.Handle(r.Context(), subscriptionQueries.GetTimelineQuery{AccountID: accountID})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetMonth handles GET /api/v1/accounts/{accountID}/months/{month}
func (h *SubscriptionHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.month.Handle(r.Context(), subscriptionQueries.GetMonthlySelectionQuery{AccountID: accountID, Month: month})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SetDeviceOil handles PUT /api/v1/accounts/{accountID}/months/{month}/devices/{deviceID}/oil
func (h *SubscriptionHandler) SetDeviceOil(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	month, err := monthParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	deviceID, err := uuid.Parse(r.PathValue("deviceID"))
	if err != nil {
		writeError(w, r, h.logger, badRequest("device id must be a UUID"))
		return
	}
	var req setOilRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.setOil.Handle(r.Context(), subscriptionCommands.SetDeviceOilCommand{
		AccountID:       accountID,
		Month:           month,
		DeviceID:        deviceID,
		OilID:           req.OilID,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ProposePlan handles POST /api/v1/accounts/{accountID}/plan-changes
func (h *SubscriptionHandler) ProposePlan(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req proposePlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.propose.Handle(r.Context(), planchangeCommands.ProposePlanCommand{AccountID: accountID, PlanID: req.PlanID})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetPlanChange handles GET /api/v1/plan-changes/{workflowID}
func (h *SubscriptionHandler) GetPlanChange(w http.ResponseWriter, r *http.Request) {
	result, err := h.workflow.Handle(r.Context(), planchangeQueries.GetWorkflowQuery{WorkflowID: r.PathValue("workflowID")})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ConfirmPlan handles POST /api/v1/plan-changes/{workflowID}/confirm
func (h *SubscriptionHandler) ConfirmPlan(w http.ResponseWriter, r *http.Request) {
	result, err := h.confirm.Handle(r.Context(), planchangeCommands.ConfirmPlanCommand{WorkflowID: r.PathValue("workflowID")})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SubmitPayment handles POST /api/v1/plan-changes/{workflowID}/payment
func (h *SubscriptionHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	result, err := h.pay.Handle(r.Context(), planchangeCommands.SubmitPaymentCommand{
		WorkflowID: r.PathValue("workflowID"),
		Method:     req.Method,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelPlanChange handles POST /api/v1/plan-changes/{workflowID}/cancel
func (h *SubscriptionHandler) CancelPlanChange(w http.ResponseWriter, r *http.Request) {
	result, err := h.cancel.Handle(r.Context(), planchangeCommands.CancelPlanChangeCommand{WorkflowID: r.PathValue("workflowID")})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func accountParam(r *http.Request) (uuid.UUID, error) {
	account, err := sharedDomain.ParseAccountID(r.PathValue("accountID"))
	if err != nil {
		return uuid.Nil, badRequest("account id must be a UUID")
	}
	return account.UUID(), nil
}

func monthParam(r *http.Request) (subscriptionDomain.MonthKey, error) {
	month, err := subscriptionDomain.ParseMonthKey(r.PathValue("month"))
	if err != nil {
		return subscriptionDomain.MonthKey{}, badRequest("month must be YYYY-MM")
	}
	return month, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
