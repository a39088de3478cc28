package pricing

import (
	"net/http"

	"github.com/noah-isme/backend-photoedit/internal/common"
	"github.com/noah-isme/backend-photoedit/internal/obs"
)

// Handler exposes the price list and quotes over HTTP.
type Handler struct {
	Engine   *Engine
	Currency string
}

// QuoteRequest is the body of POST /quotes.
type QuoteRequest struct {
	PhotoCount *int      `json:"photoCount" validate:"required,lte=1000000"`
	Services   Selection `json:"services"`
}

// TierView is the discount badge shown next to a quote.
type TierView struct {
	Label     string  `json:"label"`
	Percent   float64 `json:"percent"`
	MinPhotos int     `json:"minPhotos"`
}

// QuoteView is the wire form of a Quote.
type QuoteView struct {
	Quote
	Tier     *TierView `json:"discountTier"`
	Currency string    `json:"currency"`
}

// NewQuoteView decorates q for API responses.
func NewQuoteView(q Quote, currency string) QuoteView {
	view := QuoteView{Quote: q, Currency: currency}
	if q.Tier != nil {
		view.Tier = &TierView{Label: q.Tier.Label, Percent: q.Tier.Percent(), MinPhotos: q.Tier.MinPhotos}
	}
	if view.Lines == nil {
		view.Lines = []Line{}
	}
	return view
}

func (h *Handler) engine() *Engine {
	if h.Engine == nil {
		return Default()
	}
	return h.Engine
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	eng := h.engine()
	common.JSON(w, http.StatusOK, map[string]any{
		"data": eng.Catalog().Services(),
		"meta": map[string]any{"currency": h.Currency, "tiers": eng.Tiers()},
	})
}

// CreateQuote handles POST /quotes.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	req := QuoteRequest{Services: DefaultSelection()}
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.engine().Quote(*req.PhotoCount, req.Services)
	if err != nil {
		writeError(w, err)
		return
	}
	label := ""
	if q.Tier != nil {
		label = q.Tier.Label
	}
	obs.ObserveQuote(label)
	common.Data(w, http.StatusOK, NewQuoteView(q, h.Currency))
}

func writeError(w http.ResponseWriter, err error) {
	common.WriteErrorWith(w, err, common.ErrorRule{Target: ErrInvalidInput, Status: http.StatusBadRequest, Code: "INVALID_INPUT"})
}
