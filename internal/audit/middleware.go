package audit

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/obs"
)

// HTTPRecorder records requests after they have been handled.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig customises the entry produced for a route.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware returns chi middleware that writes one entry per request.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r.Service == nil || !r.Service.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := obs.NewStatusRecorder(w)
			next.ServeHTTP(rec, req)

			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			var metadata []byte
			if cfg.MetadataFunc != nil {
				if payload := cfg.MetadataFunc(req, rec.Status()); payload != nil {
					metadata, _ = json.Marshal(payload)
				}
			}
			err := r.Service.Record(req.Context(), actorOf(req), cfg.Action, cfg.ResourceType, resourceID, req, rec.Status(), metadata)
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func actorOf(req *http.Request) Actor {
	if userID, ok := common.UserID(req.Context()); ok {
		return Actor{Kind: ActorKindUser, UserID: userID}
	}
	return Actor{Kind: ActorKindAnonymous}
}
