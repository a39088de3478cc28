package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/obs"
)

type stubStore struct {
	entries []Entry
	err     error
}

func (s *stubStore) Insert(_ context.Context, e Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *stubStore) List(_ context.Context, f Filter, limit, offset int) ([]Entry, int, error) {
	var matched []Entry
	for _, e := range s.entries {
		if f.Matches(e) {
			matched = append(matched, e)
		}
	}
	if offset >= len(matched) {
		return nil, len(matched), nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], len(matched), nil
}

func TestServiceRecord(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true, SamplingRate: 1}

	req := httptest.NewRequest(http.MethodPatch, "https://api.test/api/v1/admin/orders/42/status?dry=1", nil)
	req.Header.Set("User-Agent", "ops-console")
	req.Header.Set("X-Request-Id", "req-123")
	req.RemoteAddr = "10.0.0.2:54321"
	ctx := obs.WithRoutePattern(req.Context(), "/api/v1/admin/orders/{id}/status")
	req = req.WithContext(ctx)

	err := svc.Record(req.Context(), Actor{Kind: ActorKindUser, UserID: "admin-7"}, "", "", "42", req, http.StatusOK, nil)
	require.NoError(t, err)
	require.Len(t, store.entries, 1)

	e := store.entries[0]
	require.Equal(t, ActorKindUser, e.ActorKind)
	require.Equal(t, "admin-7", *e.ActorUserID)
	require.Equal(t, "PATCH /api/v1/admin/orders/{id}/status", e.Action)
	require.Equal(t, "admin.orders.status", e.ResourceType)
	require.Equal(t, "42", *e.ResourceID)
	require.Equal(t, "10.0.0.2", *e.IP)
	require.Equal(t, "ops-console", *e.UserAgent)
	require.Equal(t, "req-123", *e.RequestID)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(e.Metadata, &meta))
	require.Equal(t, "dry=1", meta["query"])
}

func TestServiceRecordUserWithoutIDIsAnonymous(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: true}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, svc.Record(req.Context(), Actor{Kind: ActorKindUser}, "custom", "orders", "", req, 0, nil))
	require.Equal(t, ActorKindAnonymous, store.entries[0].ActorKind)
	require.Equal(t, "custom", store.entries[0].Action)
	require.Equal(t, "orders", store.entries[0].ResourceType)
	require.Equal(t, http.StatusOK, store.entries[0].Status)
	require.Nil(t, store.entries[0].Metadata)
}

func TestServiceRecordDisabled(t *testing.T) {
	store := &stubStore{}
	svc := Service{Store: store, Enabled: false}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	require.NoError(t, svc.Record(req.Context(), Actor{}, "", "", "", req, http.StatusOK, nil))
	require.Empty(t, store.entries)
}

func TestBuildResource(t *testing.T) {
	require.Equal(t, "admin.orders.payment-status", buildResource("", "/api/v1/admin/orders/{id}/payment-status"))
	require.Equal(t, "health.ready", buildResource("", "/health/ready"))
	require.Equal(t, "unknown", buildResource("", ""))
}

func TestMiddlewareRecordsAfterHandler(t *testing.T) {
	store := &stubStore{}
	var reported error
	rec := HTTPRecorder{
		Service: &Service{Store: store, Enabled: true},
		OnError: func(err error) { reported = err },
	}

	r := chi.NewRouter()
	r.Use(common.GatewayIdentity)
	r.With(rec.Middleware(HTTPConfig{
		ResourceIDParam: "id",
		MetadataFunc: func(r *http.Request, status int) map[string]any {
			return map[string]any{"status": status}
		},
	})).Patch("/admin/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		common.JSONError(w, http.StatusConflict, "INVALID_STATE", "no", nil)
	})

	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/abc/status", strings.NewReader(`{}`))
	req.Header.Set(common.HeaderUserID, "admin-1")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	require.NoError(t, reported)
	require.Len(t, store.entries, 1)
	e := store.entries[0]
	require.Equal(t, http.StatusConflict, e.Status)
	require.Equal(t, "abc", *e.ResourceID)
	require.Equal(t, "admin-1", *e.ActorUserID)
	require.Equal(t, "PATCH /admin/orders/{id}/status", e.Action)
	require.JSONEq(t, `{"status":409}`, string(e.Metadata))
}

func TestMiddlewareReportsStoreErrors(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	var reported error
	mw := HTTPRecorder{Service: &Service{Store: store, Enabled: true}, OnError: func(err error) { reported = err }}.
		Middleware(HTTPConfig{Action: "order.status"})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.EqualError(t, reported, "db down")
}
