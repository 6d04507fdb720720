package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/app"
	planchangeQueries "github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	subscriptionQueries "github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AppEnv:              "test",
		SQLitePath:          filepath.Join(t.TempDir(), "api.db"),
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     10,
		OutboxMaxRetries:    3,
		OutboxRetentionDays: 7,
		EditDays:            7,
		EditTimezone:        "UTC",
		PriceTiers:          "100:1000,250:1500,*:2200",
		WorkflowTTL:         time.Hour,
		DependencyTimeout:   time.Second,
	}
	c, err := app.NewContainer(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return NewServerFromContainer(DefaultServerConfig(), c, slog.Default()).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAPI_SubscriptionLifecycle(t *testing.T) {
	h := newTestServer(t)
	account := uuid.NewString()
	base := "/api/v1/accounts/" + account

	rec := do(t, h, http.MethodPost, base+"/subscription", map[string]any{
		"plan_id": "half-year",
		"devices": []map[string]string{
			{"name": "Living room", "type_id": "mini"},
			{"name": "Bedroom", "type_id": "classic"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	startMonth := created["start_month"].(string)

	rec = do(t, h, http.MethodGet, base+"/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[subscriptionQueries.SubscriptionSummaryDTO](t, rec)
	assert.Equal(t, "half-year", summary.PlanID)
	assert.Equal(t, 6, summary.TotalMonths)

	rec = do(t, h, http.MethodGet, base+"/months/"+startMonth, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	month := decode[subscriptionQueries.MonthlySelectionDTO](t, rec)
	assert.Equal(t, int64(2500), month.GrossTotal)
	assert.Equal(t, int64(2125), month.DiscountedTotal)

	deviceID := month.Devices[0].DeviceID.String()
	rec = do(t, h, http.MethodPut, base+"/months/"+startMonth+"/devices/"+deviceID+"/oil", map[string]any{"oil_id": "cedar-woods"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPut, base+"/months/"+startMonth+"/devices/"+deviceID+"/oil", map[string]any{"oil_id": "ocean-breeze", "expected_version": month.Version})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, base+"/months/"+startMonth+"/devices/"+deviceID+"/oil", map[string]any{"oil_id": "no-such-oil"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_oil", decode[APIError](t, rec).Code)

	rec = do(t, h, http.MethodGet, base+"/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[subscriptionQueries.TimelineDTO](t, rec).Months, 6)
}

func TestAPI_PlanChange(t *testing.T) {
	h := newTestServer(t)
	account := uuid.NewString()
	base := "/api/v1/accounts/" + account

	rec := do(t, h, http.MethodPost, base+"/subscription", map[string]any{
		"plan_id": "monthly",
		"devices": []map[string]string{{"name": "Hall", "type_id": "pro"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, base+"/plan-changes", map[string]any{"plan_id": "annual"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wf := decode[planchangeQueries.WorkflowDTO](t, rec)

	rec = do(t, h, http.MethodPost, "/api/v1/plan-changes/"+wf.ID+"/payment", map[string]any{"method": "card"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "payment before confirmation")

	rec = do(t, h, http.MethodPost, "/api/v1/plan-changes/"+wf.ID+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/v1/plan-changes/"+wf.ID+"/payment", map[string]any{"method": "cheque"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/plan-changes/"+wf.ID+"/payment", map[string]any{"method": "upi"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[planchangeQueries.WorkflowDTO](t, rec)
	assert.Equal(t, "completed", done.State)
	require.NotNil(t, done.NewSubscriptionID)

	rec = do(t, h, http.MethodGet, base+"/subscription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[subscriptionQueries.SubscriptionSummaryDTO](t, rec)
	assert.Equal(t, "annual", summary.PlanID)
	assert.Equal(t, *done.NewSubscriptionID, summary.SubscriptionID)

	rec = do(t, h, http.MethodPost, "/api/v1/plan-changes/"+wf.ID+"/cancel", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_BadRequests(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad account", http.MethodGet, "/api/v1/accounts/nope/subscription", nil, http.StatusBadRequest},
		{"no subscription", http.MethodGet, "/api/v1/accounts/" + uuid.NewString() + "/subscription", nil, http.StatusNotFound},
		{"bad month", http.MethodGet, "/api/v1/accounts/" + uuid.NewString() + "/months/2025-13", nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/accounts/" + uuid.NewString() + "/plan-changes", map[string]any{"plan": "annual"}, http.StatusBadRequest},
		{"unknown workflow", http.MethodGet, "/api/v1/plan-changes/missing", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestAPI_HealthAndCatalog(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	rec = do(t, h, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]json.RawMessage](t, rec)
	assert.Contains(t, body, "plans")
	assert.Contains(t, body, "devices")
	assert.Contains(t, string(body["devices"]), `"monthly_price":2200`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(apperrors.KindNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(apperrors.KindConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(apperrors.KindInvalidState))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(apperrors.KindTransient))
	assert.Equal(t, http.StatusBadRequest, statusFor(apperrors.KindValidation))
	assert.Equal(t, http.StatusInternalServerError, statusFor(apperrors.KindInternal))

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), slog.Default(), errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
