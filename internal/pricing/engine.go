package pricing

import "fmt"

// Line is the per-service breakdown of a quote.
type Line struct {
	Service   ServiceID `json:"service"`
	Title     string    `json:"title"`
	UnitPrice Money     `json:"unitPrice"`
	Subtotal  Money     `json:"subtotal"`
}

// Quote is the priced result for a photo count and service selection.
type Quote struct {
	PhotoCount int         `json:"photoCount"`
	Services   Selection   `json:"services"`
	Lines      []Line      `json:"lines"`
	PerPhoto   Money       `json:"perPhoto"`
	Subtotal   Money       `json:"subtotal"`
	Discount   Money       `json:"discount"`
	Total      Money       `json:"total"`
	Tier       *VolumeTier `json:"discountTier"`
}

// MaxPhotoCount is the largest order the engine prices. It also fits the
// orders.photo_count column.
const MaxPhotoCount = 1_000_000

// Engine prices orders against a catalog and a volume tier table. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	catalog Catalog
	tiers   []VolumeTier
}

var defaultEngine = MustNewEngine(DefaultCatalog(), DefaultTiers())

// Default returns the engine built from the standard catalog and tiers.
func Default() *Engine { return defaultEngine }

// NewEngine validates the catalog and tiers.
func NewEngine(catalog Catalog, tiers []VolumeTier) (*Engine, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	sorted, err := normalizeTiers(tiers)
	if err != nil {
		return nil, err
	}
	own := make(Catalog, len(catalog))
	for id, svc := range catalog {
		own[id] = svc
	}
	return &Engine{catalog: own, tiers: sorted}, nil
}

// MustNewEngine panics when the configuration is invalid.
func MustNewEngine(catalog Catalog, tiers []VolumeTier) *Engine {
	e, err := NewEngine(catalog, tiers)
	if err != nil {
		panic(err)
	}
	return e
}

// Catalog returns a copy of the engine's price list.
func (e *Engine) Catalog() Catalog {
	out := make(Catalog, len(e.catalog))
	for id, svc := range e.catalog {
		out[id] = svc
	}
	return out
}

// Tiers returns the volume tiers, highest threshold first.
func (e *Engine) Tiers() []VolumeTier {
	out := make([]VolumeTier, len(e.tiers))
	copy(out, e.tiers)
	return out
}

// Quote prices photoCount photos with the selected services.
//
// Every selected unit price is charged per photo, then the highest qualifying
// volume tier is taken off the subtotal and the result is rounded half up to
// the cent. Zero photos price at 0.00 with no tier. A negative count or one
// above MaxPhotoCount fails with ErrInvalidInput.
func (e *Engine) Quote(photoCount int, sel Selection) (Quote, error) {
	if photoCount < 0 {
		return Quote{}, fmt.Errorf("%w: photo count must not be negative, got %d", ErrInvalidInput, photoCount)
	}
	if photoCount > MaxPhotoCount {
		return Quote{}, fmt.Errorf("%w: photo count must not exceed %d, got %d", ErrInvalidInput, MaxPhotoCount, photoCount)
	}
	q := Quote{PhotoCount: photoCount, Services: sel}
	count := Money(photoCount)
	for _, id := range sel.IDs() {
		svc := e.catalog[id]
		line := Line{Service: id, Title: svc.Title, UnitPrice: svc.UnitPrice, Subtotal: svc.UnitPrice * count}
		q.Lines = append(q.Lines, line)
		q.PerPhoto += svc.UnitPrice
		q.Subtotal += line.Subtotal
	}
	if photoCount == 0 {
		return q, nil
	}
	q.Total = q.Subtotal
	if tier, ok := tierFor(e.tiers, photoCount); ok {
		q.Total = mulBps(q.Subtotal, int64(10000-tier.DiscountBps))
		q.Tier = &tier
	}
	q.Discount = q.Subtotal - q.Total
	return q, nil
}

// Compute prices with the default engine.
func Compute(photoCount int, sel Selection) (Quote, error) {
	return defaultEngine.Quote(photoCount, sel)
}
