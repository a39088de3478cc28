package pricing

import (
	"fmt"
	"sort"
)

// VolumeTier is a photo-count threshold with the discount applied to the whole order.
type VolumeTier struct {
	MinPhotos   int    `json:"minPhotos"`
	DiscountBps int    `json:"discountBps"`
	Label       string `json:"label"`
}

// Percent returns the discount as a whole-number percentage for display.
func (t VolumeTier) Percent() float64 {
	return float64(t.DiscountBps) / 100
}

// DefaultTiers returns the volume discount table, highest threshold first.
func DefaultTiers() []VolumeTier {
	return []VolumeTier{
		{MinPhotos: 20, DiscountBps: 1500, Label: "15% Volume Discount"},
		{MinPhotos: 10, DiscountBps: 1000, Label: "10% Volume Discount"},
	}
}

// normalizeTiers validates tiers and returns a copy sorted by threshold, descending.
func normalizeTiers(tiers []VolumeTier) ([]VolumeTier, error) {
	out := make([]VolumeTier, len(tiers))
	copy(out, tiers)
	seen := make(map[int]struct{}, len(out))
	for _, t := range out {
		if t.MinPhotos <= 0 {
			return nil, fmt.Errorf("%w: tier threshold must be positive, got %d", ErrInvalidCatalog, t.MinPhotos)
		}
		if t.DiscountBps <= 0 || t.DiscountBps >= 10000 {
			return nil, fmt.Errorf("%w: tier discount %d bps out of range", ErrInvalidCatalog, t.DiscountBps)
		}
		if _, dup := seen[t.MinPhotos]; dup {
			return nil, fmt.Errorf("%w: duplicate tier threshold %d", ErrInvalidCatalog, t.MinPhotos)
		}
		seen[t.MinPhotos] = struct{}{}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinPhotos > out[j].MinPhotos })
	return out, nil
}

// tierFor returns the highest tier whose threshold photoCount reaches. tiers
// must already be sorted by normalizeTiers.
func tierFor(tiers []VolumeTier, photoCount int) (VolumeTier, bool) {
	for _, t := range tiers {
		if photoCount >= t.MinPhotos {
			return t, true
		}
	}
	return VolumeTier{}, false
}
