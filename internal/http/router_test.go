package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/models"
	"gasra-notifier/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeNotifier[T any] struct {
	records   []T
	requestID string
	out       *service.Outcome
	err       error
}

func (f *fakeNotifier[T]) Notify(ctx context.Context, record T) (*service.Outcome, error) {
	f.records = append(f.records, record)
	f.requestID = service.RequestIDFrom(ctx)
	return f.out, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

type routerFixture struct {
	inspection *fakeNotifier[models.InspectionResult]
	report     *fakeNotifier[models.ProblemReport]
	repair     *fakeNotifier[models.MaintenanceRecord]
	router     *Router
}

func newRouterFixture(pinger Pinger) *routerFixture {
	f := &routerFixture{
		inspection: &fakeNotifier[models.InspectionResult]{},
		report:     &fakeNotifier[models.ProblemReport]{},
		repair:     &fakeNotifier[models.MaintenanceRecord]{},
	}
	logger := zap.NewNop()
	f.router = NewRouter(logger)
	f.router.RegisterTriggerRoutes(NewTriggerHandler(f.inspection, f.report, f.repair, logger))
	f.router.RegisterHealthRoutes(NewHealthHandler(pinger, logger))
	return f
}

func sentOutcome(msg string, sent, failed int) *service.Outcome {
	report := &fcm.Report{}
	for i := 0; i < sent; i++ {
		report.Results = append(report.Results, fcm.DeliveryResult{Token: "ok"})
	}
	for i := 0; i < failed; i++ {
		report.Results = append(report.Results, fcm.DeliveryResult{Token: "bad", Err: errors.New("unregistered")})
	}
	return &service.Outcome{Message: msg, Report: report}
}

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "authorization, x-client-info, apikey, content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRouter_Preflight(t *testing.T) {
	f := newRouterFixture(nil)

	for _, path := range []string{PathInspectionNotification, PathProblemNotification, PathRepairNotification} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", rec.Body.String())
		assertCORS(t, rec)
	}
	assert.Empty(t, f.inspection.records)
}

func TestRouter_SentResponse(t *testing.T) {
	f := newRouterFixture(nil)
	f.report.out = sentOutcome("Notifications sent", 2, 1)

	body := `{"type":"INSERT","table":"problem_reports","schema":"public","record":{"id":55,"custom_title":"Ban bocor","head_id":"h-1"},"old_record":null}`
	req := httptest.NewRequest(http.MethodPost, PathProblemNotification, strings.NewReader(body))
	req.Header.Set(HeaderRequestID, "req-abc")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req-abc", rec.Header().Get(HeaderRequestID))

	var resp triggerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, triggerResponse{Message: "Notifications sent", Sent: 2, Failed: 1}, resp)

	require.Len(t, f.report.records, 1)
	assert.Equal(t, models.ID("55"), f.report.records[0].ID)
	assert.Equal(t, "Ban bocor", f.report.records[0].CustomTitle)
	assert.Equal(t, "req-abc", f.report.requestID)
}

func TestRouter_SkippedResponseIsPlainText(t *testing.T) {
	f := newRouterFixture(nil)
	f.inspection.out = &service.Outcome{Skipped: true, Message: "ok: condition not 'tidak_baik'"}

	body := `{"record":{"id":1,"inspection_id":100,"item_id":3,"kondisi":"baik"}}`
	req := httptest.NewRequest(http.MethodPost, PathInspectionNotification, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec)
	assert.Equal(t, "ok: condition not 'tidak_baik'", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.NotEmpty(t, f.inspection.requestID)
}

func TestRouter_NotifierErrorIs500(t *testing.T) {
	f := newRouterFixture(nil)
	f.repair.err = errors.New("failed to get reporter token: timeout")

	body := `{"record":{"id":9,"problem_report_id":5}}`
	req := httptest.NewRequest(http.MethodPost, PathRepairNotification, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assertCORS(t, rec)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed to get reporter token: timeout", resp.Error)
}

func TestRouter_BadEnvelopeIs500(t *testing.T) {
	f := newRouterFixture(nil)

	for _, body := range []string{`not json`, `{"type":"INSERT"}`, `{"record":null}`} {
		req := httptest.NewRequest(http.MethodPost, PathRepairNotification, strings.NewReader(body))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code, body)
		var resp errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	}
	assert.Empty(t, f.repair.records)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	f := newRouterFixture(nil)

	req := httptest.NewRequest(http.MethodGet, PathRepairNotification, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assertCORS(t, rec)
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(fakePinger{})
	req := httptest.NewRequest(http.MethodGet, PathHealth, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f = newRouterFixture(fakePinger{err: errors.New("connection refused")})
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, PathHealth, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
