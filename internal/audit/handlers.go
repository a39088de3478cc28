package audit

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-photoedit/internal/common"
)

// Handler exposes audit logs to administrators.
type Handler struct {
	Store Store
}

// List handles GET /admin/audit-logs. The action, resource_type, resource_id
// and actor query parameters narrow the result.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	p := common.ParsePagination(r, 50)
	q := r.URL.Query()
	f := Filter{
		Action:       strings.TrimSpace(q.Get("action")),
		ResourceType: strings.TrimSpace(q.Get("resource_type")),
		ResourceID:   strings.TrimSpace(q.Get("resource_id")),
		ActorUserID:  strings.TrimSpace(q.Get("actor")),
	}
	rows, total, err := h.Store.List(r.Context(), f, p.PerPage, p.Offset())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	common.Page(w, rows, p, total)
}
