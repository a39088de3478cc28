// Package audit records who changed what through the administrative API.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindSystem    ActorKind = "system"
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes who performed the action.
type Actor struct {
	Kind   ActorKind
	UserID string
}

// Entry is one audit_logs row.
type Entry struct {
	ID           int64           `json:"id"`
	ActorKind    ActorKind       `json:"actorKind"`
	ActorUserID  *string         `json:"actorUserId,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   *string         `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Route        *string         `json:"route,omitempty"`
	Status       int             `json:"status"`
	IP           *string         `json:"ip,omitempty"`
	UserAgent    *string         `json:"userAgent,omitempty"`
	RequestID    *string         `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Action       string
	ResourceType string
	ResourceID   string
	ActorUserID  string
}

// Matches reports whether e passes every set field of f.
func (f Filter) Matches(e Entry) bool {
	return matchField(f.Action, &e.Action) &&
		matchField(f.ResourceType, &e.ResourceType) &&
		matchField(f.ResourceID, e.ResourceID) &&
		matchField(f.ActorUserID, e.ActorUserID)
}

func matchField(want string, got *string) bool {
	if want == "" {
		return true
	}
	return got != nil && *got == want
}

// Store persists and lists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, f Filter, limit, offset int) ([]Entry, int, error)
}

// Service writes audit entries, optionally sampling them.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
}

// Record persists an entry describing req and its response status.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && rand.Float64() > s.SamplingRate {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePattern(req)
	if status == 0 {
		status = http.StatusOK
	}
	requestID := middleware.GetReqID(req.Context())
	if requestID == "" {
		requestID = req.Header.Get(middleware.RequestIDHeader)
	}
	entry := Entry{
		ActorKind:    normalizeActorKind(actor.Kind),
		ActorUserID:  optional(actor.UserID),
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   optional(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Route:        optional(route),
		Status:       status,
		IP:           optional(common.ClientIP(req)),
		UserAgent:    optional(req.UserAgent()),
		RequestID:    optional(requestID),
		Metadata:     metadataOrQuery(metadata, req.URL.RawQuery),
	}
	if entry.ActorKind == ActorKindUser && entry.ActorUserID == nil {
		entry.ActorKind = ActorKindAnonymous
	}
	return s.Store.Insert(ctx, entry)
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(method) + " " + route
}

// buildResource derives "admin.orders.status" from "/api/v1/admin/orders/{id}/status".
func buildResource(resourceType, route string) string {
	if trimmed := strings.TrimSpace(resourceType); trimmed != "" {
		return trimmed
	}
	route = strings.Trim(strings.TrimSpace(route), "/")
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(route, "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		segments = segments[2:]
	}
	kept := segments[:0]
	for _, seg := range segments {
		if strings.HasPrefix(seg, "{") {
			continue
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindUser, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func metadataOrQuery(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}
