package pricing

import "fmt"

// RevisionRateBps is the share of the original per-photo price charged for a revision.
const RevisionRateBps = 5000

// Revision is the price of re-editing photos from a completed order.
type Revision struct {
	Photos        int   `json:"photos"`
	OriginalPrice Money `json:"originalPricePerPhoto"`
	PricePerPhoto Money `json:"pricePerPhoto"`
	Total         Money `json:"total"`
}

// EffectivePerPhoto spreads a discounted order total back over its photos.
func EffectivePerPhoto(total Money, photoCount int) (Money, error) {
	if photoCount <= 0 {
		return 0, fmt.Errorf("%w: photo count must be positive, got %d", ErrInvalidInput, photoCount)
	}
	if total < 0 {
		return 0, fmt.Errorf("%w: negative order total", ErrInvalidInput)
	}
	return divRound(total, int64(photoCount)), nil
}

// RevisionQuote prices a revision of photos at half the original per-photo price.
// PricePerPhoto is rounded for display; Total halves the unrounded
// perPhoto × photos and rounds once, so it can differ from
// PricePerPhoto × photos by a cent.
func RevisionQuote(photos int, perPhoto Money) (Revision, error) {
	if photos < 1 {
		return Revision{}, fmt.Errorf("%w: at least one photo is required for a revision", ErrInvalidInput)
	}
	if perPhoto < 0 {
		return Revision{}, fmt.Errorf("%w: negative per-photo price", ErrInvalidInput)
	}
	return Revision{
		Photos:        photos,
		OriginalPrice: perPhoto,
		PricePerPhoto: mulBps(perPhoto, RevisionRateBps),
		Total:         mulBps(perPhoto*Money(photos), RevisionRateBps),
	}, nil
}
