package pricing

import (
	"errors"
	"fmt"
)

// ServiceID identifies an editing treatment billed per photo.
type ServiceID string

const (
	StandardEditing    ServiceID = "standardEditing"
	VirtualStaging     ServiceID = "virtualStaging"
	TwilightConversion ServiceID = "twilightConversion"
	Decluttering       ServiceID = "decluttering"
)

var (
	// ErrInvalidInput is returned for negative photo counts, unknown services and malformed amounts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCatalog indicates a catalog or tier table that cannot price orders.
	ErrInvalidCatalog = errors.New("invalid pricing catalog")
)

// MaxUnitPrice bounds a configured per-photo price (100,000.00). Together with
// MaxPhotoCount it keeps every subtotal times a basis-point rate inside int64.
const MaxUnitPrice Money = 10_000_000

// serviceOrder fixes the display and evaluation order of the known services.
var serviceOrder = []ServiceID{StandardEditing, VirtualStaging, TwilightConversion, Decluttering}

// Service is a catalog entry.
type Service struct {
	ID        ServiceID `json:"id"`
	Title     string    `json:"title"`
	UnitPrice Money     `json:"unitPrice"`
	Mandatory bool      `json:"mandatory"`
}

// Catalog maps every known service to its per-photo price.
type Catalog map[ServiceID]Service

// DefaultCatalog returns the standard price list.
func DefaultCatalog() Catalog {
	return Catalog{
		StandardEditing:    {ID: StandardEditing, Title: "Standard Editing", UnitPrice: 150, Mandatory: true},
		VirtualStaging:     {ID: VirtualStaging, Title: "Virtual Staging", UnitPrice: 1000},
		TwilightConversion: {ID: TwilightConversion, Title: "Twilight Conversion", UnitPrice: 399},
		Decluttering:       {ID: Decluttering, Title: "Decluttering", UnitPrice: 299},
	}
}

// KnownService reports whether id is one of the billable services.
func KnownService(id ServiceID) bool {
	for _, known := range serviceOrder {
		if known == id {
			return true
		}
	}
	return false
}

// ServiceIDs returns the known services in display order.
func ServiceIDs() []ServiceID {
	out := make([]ServiceID, len(serviceOrder))
	copy(out, serviceOrder)
	return out
}

// WithPrices returns a copy of the catalog with the provided unit prices applied.
// The mandatory flag is never changed by an override.
func (c Catalog) WithPrices(overrides map[ServiceID]Money) (Catalog, error) {
	out := make(Catalog, len(c))
	for id, svc := range c {
		out[id] = svc
	}
	for id, price := range overrides {
		svc, ok := out[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown service %q", ErrInvalidCatalog, id)
		}
		svc.UnitPrice = price
		out[id] = svc
	}
	return out, out.Validate()
}

// Validate checks that every known service is priced and only standard editing is mandatory.
func (c Catalog) Validate() error {
	if len(c) != len(serviceOrder) {
		return fmt.Errorf("%w: expected %d services, got %d", ErrInvalidCatalog, len(serviceOrder), len(c))
	}
	for _, id := range serviceOrder {
		svc, ok := c[id]
		if !ok {
			return fmt.Errorf("%w: missing service %q", ErrInvalidCatalog, id)
		}
		if svc.UnitPrice < 0 {
			return fmt.Errorf("%w: negative price for %q", ErrInvalidCatalog, id)
		}
		if svc.UnitPrice > MaxUnitPrice {
			return fmt.Errorf("%w: price for %q exceeds %s", ErrInvalidCatalog, id, MaxUnitPrice)
		}
		if svc.Mandatory != (id == StandardEditing) {
			return fmt.Errorf("%w: %q has wrong mandatory flag", ErrInvalidCatalog, id)
		}
	}
	return nil
}

// Services lists catalog entries in display order.
func (c Catalog) Services() []Service {
	out := make([]Service, 0, len(c))
	for _, id := range serviceOrder {
		if svc, ok := c[id]; ok {
			out = append(out, svc)
		}
	}
	return out
}
