package service

import (
	"context"
	"net/http"
	"sync"

	"gasra-notifier/internal/fcm"
	"gasra-notifier/internal/models"
	"gasra-notifier/internal/repository"
	"gasra-notifier/internal/store"
)

func idPtr(s string) *models.ID {
	id := models.ID(s)
	return &id
}

func strPtr(s string) *string { return &s }

type fakeInspections struct {
	mu       sync.Mutex
	rows     map[models.ID]*models.Inspection
	claimErr error
	getErr   error
}

func (f *fakeInspections) ClaimNotification(ctx context.Context, id models.ID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return false, f.claimErr
	}
	row := f.rows[id]
	if row == nil || row.IsNotified {
		return false, nil
	}
	row.IsNotified = true
	return true, nil
}

func (f *fakeInspections) GetInspection(ctx context.Context, id models.ID) (*models.Inspection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	row := f.rows[id]
	if row == nil {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

type fakeResults struct {
	items    map[models.ID]string
	itemErr  error
	contexts map[models.ID]*repository.InspectionResultContext
	ctxErr   error
}

func (f *fakeResults) GetItemName(ctx context.Context, itemID models.ID) (string, error) {
	if f.itemErr != nil {
		return "", f.itemErr
	}
	return f.items[itemID], nil
}

func (f *fakeResults) GetRepairContext(ctx context.Context, resultID models.ID) (*repository.InspectionResultContext, error) {
	if f.ctxErr != nil {
		return nil, f.ctxErr
	}
	return f.contexts[resultID], nil
}

type fakeReports struct {
	reports map[models.ID]*models.ProblemReport
	err     error
	calls   int
}

func (f *fakeReports) GetProblemReport(ctx context.Context, id models.ID) (*models.ProblemReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.reports[id], nil
}

type fakeProfiles struct {
	adminTokens []string
	listErr     error
	tokens      map[models.ID]string
	tokenErr    error
	names       map[models.ID]string
	nameErr     error
}

func (f *fakeProfiles) ListAdminTokens(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.adminTokens, nil
}

func (f *fakeProfiles) GetFCMToken(ctx context.Context, id models.ID) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return f.tokens[id], nil
}

func (f *fakeProfiles) GetName(ctx context.Context, id models.ID) (string, error) {
	if f.nameErr != nil {
		return "", f.nameErr
	}
	return f.names[id], nil
}

type fakeUnits struct {
	codes map[models.UnitKind]map[models.ID]string
	err   error
	calls []models.UnitKind
}

func (f *fakeUnits) GetUnitCode(ctx context.Context, kind models.UnitKind, id models.ID) (string, error) {
	f.calls = append(f.calls, kind)
	if f.err != nil {
		return "", f.err
	}
	return f.codes[kind][id], nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls [][]fcm.Message
	err   error
	fail  map[string]bool
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, msgs []fcm.Message) (*fcm.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	if f.err != nil {
		return nil, f.err
	}
	report := &fcm.Report{}
	for _, m := range msgs {
		res := fcm.DeliveryResult{Token: m.Token, StatusCode: http.StatusOK, MessageName: "projects/p/messages/" + m.Token}
		if f.fail[m.Token] {
			res = fcm.DeliveryResult{Token: m.Token, StatusCode: http.StatusNotFound, Err: &fcm.GatewayError{StatusCode: http.StatusNotFound}}
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGuard struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{held: make(map[string]string)}
}

func (f *fakeGuard) Acquire(ctx context.Context, table, entityID, owner string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := table + ":" + entityID
	if _, ok := f.held[key]; ok {
		return false
	}
	f.held[key] = owner
	return true
}

func (f *fakeGuard) Release(ctx context.Context, table, entityID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := table + ":" + entityID
	delete(f.held, key)
	f.released = append(f.released, key)
}

type fakeRecorder struct {
	records []store.DeliveryRecord
	err     error
}

func (f *fakeRecorder) Record(ctx context.Context, rec store.DeliveryRecord) error {
	f.records = append(f.records, rec)
	return f.err
}
