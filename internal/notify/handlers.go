package notify

import (
	"net/http"
	"strings"

	"github.com/noah-isme/backend-photoedit/internal/common"
)

// Handler serves the caller's notification preferences.
type Handler struct {
	Store Store
}

// UpdateInput carries the fields of a preferences update. Omitted fields
// keep their saved value.
type UpdateInput struct {
	InApp             *bool   `json:"inApp"`
	Email             *bool   `json:"email"`
	Push              *bool   `json:"push"`
	OrderUpdates      *bool   `json:"orderUpdates"`
	PaymentUpdates    *bool   `json:"paymentUpdates"`
	EditorAssignments *bool   `json:"editorAssignments"`
	Marketing         *bool   `json:"marketing"`
	SilentMode        *bool   `json:"silentMode"`
	SilentStart       *string `json:"silentStart" validate:"omitempty,datetime=15:04"`
	SilentEnd         *string `json:"silentEnd" validate:"omitempty,datetime=15:04"`
	Timezone          *string `json:"timezone" validate:"omitempty,max=64"`
}

// Apply merges the provided fields into p.
func (in UpdateInput) Apply(p Preferences) (Preferences, error) {
	setBool(&p.InApp, in.InApp)
	setBool(&p.Email, in.Email)
	setBool(&p.Push, in.Push)
	setBool(&p.OrderUpdates, in.OrderUpdates)
	setBool(&p.PaymentUpdates, in.PaymentUpdates)
	setBool(&p.EditorAssignments, in.EditorAssignments)
	setBool(&p.Marketing, in.Marketing)
	setBool(&p.SilentMode, in.SilentMode)
	if in.SilentStart != nil {
		c, err := ParseClock(*in.SilentStart)
		if err != nil {
			return Preferences{}, err
		}
		p.SilentStart = c
	}
	if in.SilentEnd != nil {
		c, err := ParseClock(*in.SilentEnd)
		if err != nil {
			return Preferences{}, err
		}
		p.SilentEnd = c
	}
	if in.Timezone != nil {
		p.Timezone = strings.TrimSpace(*in.Timezone)
	}
	return p, p.Validate()
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Get handles GET /me/notification-preferences.
func (h Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	p, err := h.Store.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, p)
}

// Put handles PUT /me/notification-preferences.
func (h Handler) Put(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	current, err := h.Store.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	next, err := in.Apply(current)
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := h.Store.Upsert(r.Context(), next)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, saved)
}

func (h Handler) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "NOTIFY_NOT_CONFIGURED", "notification preferences not configured", nil)
		return "", false
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return "", false
	}
	return userID, true
}

func writeError(w http.ResponseWriter, err error) {
	common.WriteErrorWith(w, err, common.ErrorRule{
		Target: ErrInvalidPreferences, Status: http.StatusBadRequest, Code: "INVALID_INPUT",
	})
}
