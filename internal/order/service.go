package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-photoedit/internal/events"
	"github.com/noah-isme/backend-photoedit/internal/obs"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

// Locker serializes status changes of one order across replicas.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (events.Event, error)
}

// History lists the events recorded for an order.
type History interface {
	ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]events.Event, error)
}

// Service implements order submission, lifecycle changes and revision requests.
type Service struct {
	Store    Store
	Engine   *pricing.Engine
	Locker   Locker
	Events   Emitter
	History  History
	Currency string
	Logger   zerolog.Logger
	Now      func() time.Time
}

// SubmitInput is the customer's order. Prices are never taken from the client.
type SubmitInput struct {
	PhotoCount int               `json:"photoCount" validate:"gte=1,lte=1000000"`
	PhotoKeys  []string          `json:"photoKeys" validate:"omitempty,dive,required,max=512"`
	Services   pricing.Selection `json:"services"`
	Notes      string            `json:"notes" validate:"max=2000"`
}

// Submit prices the order server-side and stores it as pending.
func (s *Service) Submit(ctx context.Context, userID string, in SubmitInput) (Order, error) {
	if strings.TrimSpace(userID) == "" {
		return Order{}, fmt.Errorf("%w: user is required", pricing.ErrInvalidInput)
	}
	if in.PhotoCount < 1 {
		return Order{}, fmt.Errorf("%w: at least one photo is required to submit an order", pricing.ErrInvalidInput)
	}
	if n := len(in.PhotoKeys); n > 0 && n != in.PhotoCount {
		return Order{}, fmt.Errorf("%w: photoKeys has %d entries for %d photos", pricing.ErrInvalidInput, n, in.PhotoCount)
	}
	if dup := firstDuplicate(in.PhotoKeys); dup != "" {
		return Order{}, fmt.Errorf("%w: photo %q listed twice", pricing.ErrInvalidInput, dup)
	}
	q, err := s.engine().Quote(in.PhotoCount, in.Services)
	if err != nil {
		return Order{}, err
	}
	now := s.now()
	o := Order{
		ID:            uuid.New(),
		UserID:        userID,
		PhotoCount:    q.PhotoCount,
		PhotoKeys:     append([]string(nil), in.PhotoKeys...),
		Services:      q.Services,
		PerPhoto:      q.PerPhoto,
		Subtotal:      q.Subtotal,
		Discount:      q.Discount,
		Total:         q.Total,
		Currency:      s.Currency,
		Notes:         strings.TrimSpace(in.Notes),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if q.Tier != nil {
		o.DiscountTier = q.Tier.Label
	}
	stored, err := s.Store.Insert(ctx, o)
	if err != nil {
		return Order{}, err
	}
	obs.ObserveOrderSubmitted(int64(stored.Total))
	s.emit(ctx, events.TopicOrderCreated, stored.ID, map[string]any{
		"userId":     stored.UserID,
		"photoCount": stored.PhotoCount,
		"services":   stored.Services,
		"total":      stored.Total,
		"currency":   stored.Currency,
	})
	return stored, nil
}

// Get returns the user's own order.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (Order, error) {
	return s.Store.GetForUser(ctx, id, userID)
}

// List returns one page of the user's orders and the total count.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	return s.Store.ListForUser(ctx, userID, limit, offset)
}

// TransitionStatus moves an order forward in its editing lifecycle.
func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, target Status) (Order, error) {
	if !target.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", pricing.ErrInvalidInput, target)
	}
	var updated Order
	var from Status
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		current, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		from = current.Status
		if !from.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
		}
		updated, err = s.Store.UpdateStatus(ctx, id, from, target)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	obs.ObserveTransition("status", string(target))
	s.emit(ctx, events.TopicOrderStatusChanged, id, map[string]any{"userId": updated.UserID, "from": from, "to": target})
	return updated, nil
}

// UpdatePaymentStatus records a payment gateway state change.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, target PaymentStatus) (Order, error) {
	if !target.Valid() {
		return Order{}, fmt.Errorf("%w: unknown payment status %q", pricing.ErrInvalidInput, target)
	}
	var updated Order
	var from PaymentStatus
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		current, err := s.Store.Get(ctx, id)
		if err != nil {
			return err
		}
		from = current.PaymentStatus
		if !from.CanTransitionTo(target) {
			return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, from, target)
		}
		updated, err = s.Store.UpdatePaymentStatus(ctx, id, from, target)
		return err
	})
	if err != nil {
		return Order{}, err
	}
	obs.ObserveTransition("payment", string(target))
	s.emit(ctx, events.TopicPaymentChanged, id, map[string]any{"userId": updated.UserID, "from": from, "to": target})
	return updated, nil
}

// RequestRevision records a paid revision of photos from a completed order.
// Each photo is billed at half the order's effective per-photo price.
func (s *Service) RequestRevision(ctx context.Context, userID string, orderID uuid.UUID, photos []RevisionPhoto) (RevisionRequest, error) {
	o, err := s.Store.GetForUser(ctx, orderID, userID)
	if err != nil {
		return RevisionRequest{}, err
	}
	if o.Status != StatusCompleted {
		return RevisionRequest{}, fmt.Errorf("%w: status is %s", ErrNotCompleted, o.Status)
	}
	if len(photos) == 0 {
		return RevisionRequest{}, fmt.Errorf("%w: select at least one photo", pricing.ErrInvalidInput)
	}
	if len(photos) > o.PhotoCount {
		return RevisionRequest{}, fmt.Errorf("%w: order has only %d photos", pricing.ErrInvalidInput, o.PhotoCount)
	}
	cleaned := make([]RevisionPhoto, 0, len(photos))
	keys := make([]string, 0, len(photos))
	for _, p := range photos {
		p.PhotoKey = strings.TrimSpace(p.PhotoKey)
		p.Feedback = strings.TrimSpace(p.Feedback)
		if p.PhotoKey == "" || p.Feedback == "" {
			return RevisionRequest{}, fmt.Errorf("%w: every photo needs a key and feedback", pricing.ErrInvalidInput)
		}
		if !o.HasPhoto(p.PhotoKey) {
			return RevisionRequest{}, fmt.Errorf("%w: photo %q is not part of the order", pricing.ErrInvalidInput, p.PhotoKey)
		}
		cleaned = append(cleaned, p)
		keys = append(keys, p.PhotoKey)
	}
	if dup := firstDuplicate(keys); dup != "" {
		return RevisionRequest{}, fmt.Errorf("%w: photo %q listed twice", pricing.ErrInvalidInput, dup)
	}
	perPhoto, err := pricing.EffectivePerPhoto(o.Total, o.PhotoCount)
	if err != nil {
		return RevisionRequest{}, err
	}
	quote, err := pricing.RevisionQuote(len(cleaned), perPhoto)
	if err != nil {
		return RevisionRequest{}, err
	}
	rev, err := s.Store.InsertRevision(ctx, RevisionRequest{
		ID:            uuid.New(),
		OrderID:       o.ID,
		UserID:        userID,
		Photos:        cleaned,
		PricePerPhoto: quote.PricePerPhoto,
		Total:         quote.Total,
		Status:        RevisionPending,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return RevisionRequest{}, err
	}
	obs.ObserveRevisionRequested()
	s.emit(ctx, events.TopicRevisionRequested, o.ID, map[string]any{
		"userId":        userID,
		"revisionId":    rev.ID,
		"photos":        len(rev.Photos),
		"pricePerPhoto": rev.PricePerPhoto,
		"total":         rev.Total,
	})
	return rev, nil
}

// Revisions lists the revision requests of the user's order.
func (s *Service) Revisions(ctx context.Context, userID string, orderID uuid.UUID) ([]RevisionRequest, error) {
	if _, err := s.Store.GetForUser(ctx, orderID, userID); err != nil {
		return nil, err
	}
	return s.Store.ListRevisions(ctx, orderID)
}

// Timeline returns the domain events of the user's order, oldest first.
func (s *Service) Timeline(ctx context.Context, userID string, orderID uuid.UUID) ([]events.Event, error) {
	if _, err := s.Store.GetForUser(ctx, orderID, userID); err != nil {
		return nil, err
	}
	if s.History == nil {
		return []events.Event{}, nil
	}
	return s.History.ListByAggregate(ctx, orderID)
}

func (s *Service) withLock(ctx context.Context, id uuid.UUID, fn func(context.Context) error) error {
	if s.Locker == nil {
		return fn(ctx)
	}
	return s.Locker.WithLock(ctx, id.String(), fn)
}

// emit publishes an event. Failures are logged and not returned.
func (s *Service) emit(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Str("order_id", id.String()).Msg("emit order event")
	}
}

func (s *Service) engine() *pricing.Engine {
	if s.Engine == nil {
		return pricing.Default()
	}
	return s.Engine
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func firstDuplicate(keys []string) string {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			return k
		}
		seen[k] = struct{}{}
	}
	return ""
}
