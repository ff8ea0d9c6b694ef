package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/lambdapulse/internal/api/middleware"
	"github.com/kiranshivaraju/lambdapulse/internal/store"
	"github.com/kiranshivaraju/lambdapulse/pkg/models"
	"github.com/stretchr/testify/require"
)

// --- fixtures ---

var (
	testTenantID  = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
	otherTenantID = uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb")
	testInteg     = &models.Integration{
		ID:              uuid.MustParse("cccccccc-cccc-cccc-cccc-cccccccccccc"),
		TenantID:        testTenantID,
		Name:            "orders",
		FunctionName:    "orders-api",
		Region:          "us-east-1",
		AccessKeySealed: "sealed-access",
		SecretKeySealed: "sealed-secret",
		CreatedAt:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
)

// --- fake store ---

type fakeStore struct {
	mu       sync.Mutex
	items    []*models.Integration
	err      error
	auditErr error
	audits   []*models.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: []*models.Integration{testInteg}}
}

func (s *fakeStore) GetIntegration(_ context.Context, id, tenantID uuid.UUID) (*models.Integration, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, in := range s.items {
		if in.ID == id && in.TenantID == tenantID {
			return in, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) ListIntegrations(_ context.Context, tenantID uuid.UUID) ([]*models.Integration, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := []*models.Integration{}
	for _, in := range s.items {
		if in.TenantID == tenantID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *fakeStore) RecordAudit(_ context.Context, e *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, e)
	return s.auditErr
}

func (s *fakeStore) Audits() []*models.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditEntry(nil), s.audits...)
}

// --- helpers ---

// serve routes one request through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern, target string, tenant uuid.UUID, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("User-Agent", "handler-test")
	if tenant != uuid.Nil {
		ctx := mw.SetTenantID(req.Context(), tenant)
		ctx = mw.SetKeyPrefix(ctx, "lp_test1")
		req = req.WithContext(ctx)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error.Code
}

func integrationPath(id uuid.UUID, suffix string) string {
	return "/api/v1/integrations/" + id.String() + suffix
}
