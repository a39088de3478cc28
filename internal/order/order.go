// Package order stores priced photo-editing orders and tracks their lifecycle.
package order

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

var (
	// ErrNotFound is returned when an order or revision does not exist for the caller.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for backwards, repeated or skipped status changes.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotCompleted is returned when revisions are requested before editing finished.
	ErrNotCompleted = errors.New("order is not completed")
	// ErrDuplicate is returned when an order or revision id already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// Status is the editing lifecycle of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// PaymentStatus mirrors the payment gateway state reported for an order.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentFailed     PaymentStatus = "failed"
)

var statusMoves = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

var paymentMoves = map[PaymentStatus][]PaymentStatus{
	PaymentPending:    {PaymentProcessing, PaymentFailed},
	PaymentProcessing: {PaymentSucceeded, PaymentFailed},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Completed and failed are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusMoves[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentProcessing, PaymentSucceeded, PaymentFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the payment lifecycle allows moving from p to next.
func (p PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentMoves[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a submitted photo-editing order. Prices are fixed at submission.
type Order struct {
	ID            uuid.UUID         `json:"id"`
	UserID        string            `json:"userId"`
	PhotoCount    int               `json:"photoCount"`
	PhotoKeys     []string          `json:"photoKeys"`
	Services      pricing.Selection `json:"services"`
	PerPhoto      pricing.Money     `json:"perPhoto"`
	Subtotal      pricing.Money     `json:"subtotal"`
	Discount      pricing.Money     `json:"discount"`
	Total         pricing.Money     `json:"total"`
	DiscountTier  string            `json:"discountTier,omitempty"`
	Currency      string            `json:"currency"`
	Notes         string            `json:"notes,omitempty"`
	Status        Status            `json:"status"`
	PaymentStatus PaymentStatus     `json:"paymentStatus"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// HasPhoto reports whether key is one of the order's uploaded photos. Orders
// submitted without storage keys accept any key.
func (o Order) HasPhoto(key string) bool {
	if len(o.PhotoKeys) == 0 {
		return true
	}
	for _, k := range o.PhotoKeys {
		if k == key {
			return true
		}
	}
	return false
}

// RevisionPhoto is one photo the customer wants re-edited.
type RevisionPhoto struct {
	PhotoKey string `json:"photoKey" validate:"required,max=512"`
	Feedback string `json:"feedback" validate:"required,max=2000"`
}

// RevisionRequest asks the editors to redo photos of a completed order.
type RevisionRequest struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        string          `json:"userId"`
	Photos        []RevisionPhoto `json:"photos"`
	PricePerPhoto pricing.Money   `json:"pricePerPhoto"`
	Total         pricing.Money   `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// RevisionPending is the initial state of every revision request.
const RevisionPending = "pending"
