package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-photoedit/internal/db"
	"github.com/noah-isme/backend-photoedit/internal/pricing"
)

// Store persists orders and revision requests.
type Store interface {
	Insert(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id uuid.UUID) (Order, error)
	GetForUser(ctx context.Context, id uuid.UUID, userID string) (Order, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error)
	// UpdateStatus moves the order from one status to another. It fails with
	// ErrInvalidTransition when the stored status no longer equals from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) (Order, error)
	InsertRevision(ctx context.Context, rev RevisionRequest) (RevisionRequest, error)
	ListRevisions(ctx context.Context, orderID uuid.UUID) ([]RevisionRequest, error)
}

// PgStore implements Store on PostgreSQL.
type PgStore struct {
	DB db.DBTX
}

const orderColumns = `id, user_id, photo_count, photo_keys, services, per_photo_cents, subtotal_cents,
discount_cents, total_cents, discount_tier, currency, notes, status, payment_status, created_at, updated_at`

const insertOrder = `INSERT INTO orders (id, user_id, photo_count, photo_keys, services, per_photo_cents,
subtotal_cents, discount_cents, total_cents, discount_tier, currency, notes, status, payment_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)
RETURNING ` + orderColumns

// Insert stores a new order.
func (s PgStore) Insert(ctx context.Context, o Order) (Order, error) {
	services, err := json.Marshal(o.Services)
	if err != nil {
		return Order{}, fmt.Errorf("encode services: %w", err)
	}
	keys := o.PhotoKeys
	if keys == nil {
		keys = []string{}
	}
	var tier *string
	if o.DiscountTier != "" {
		tier = &o.DiscountTier
	}
	row := s.DB.QueryRow(ctx, insertOrder,
		o.ID, o.UserID, o.PhotoCount, keys, services, int64(o.PerPhoto), int64(o.Subtotal),
		int64(o.Discount), int64(o.Total), tier, o.Currency, o.Notes, string(o.Status), string(o.PaymentStatus), o.CreatedAt,
	)
	out, err := scanOrder(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Order{}, fmt.Errorf("%w: order %s", ErrDuplicate, o.ID)
		}
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return out, nil
}

// Get loads an order regardless of owner.
func (s PgStore) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	return o, notFound(err, "get order")
}

// GetForUser loads an order owned by userID.
func (s PgStore) GetForUser(ctx context.Context, id uuid.UUID, userID string) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID))
	return o, notFound(err, "get order")
}

// ListForUser returns one page of the user's orders, newest first, and the total count.
func (s PgStore) ListForUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := s.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1
ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) { return scanOrder(row) })
	if err != nil {
		return nil, 0, fmt.Errorf("scan orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus implements Store.
func (s PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `UPDATE orders SET status = $3, updated_at = now()
WHERE id = $1 AND status = $2 RETURNING `+orderColumns, id, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	if err != nil {
		return Order{}, fmt.Errorf("update order status: %w", err)
	}
	return o, nil
}

// UpdatePaymentStatus implements Store.
func (s PgStore) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to PaymentStatus) (Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `UPDATE orders SET payment_status = $3, updated_at = now()
WHERE id = $1 AND payment_status = $2 RETURNING `+orderColumns, id, string(from), string(to)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: payment status changed concurrently", ErrInvalidTransition)
	}
	if err != nil {
		return Order{}, fmt.Errorf("update payment status: %w", err)
	}
	return o, nil
}

const revisionColumns = `id, order_id, user_id, photos, price_per_photo_cents, total_cents, status, created_at`

// InsertRevision stores a revision request.
func (s PgStore) InsertRevision(ctx context.Context, rev RevisionRequest) (RevisionRequest, error) {
	photos, err := json.Marshal(rev.Photos)
	if err != nil {
		return RevisionRequest{}, fmt.Errorf("encode revision photos: %w", err)
	}
	out, err := scanRevision(s.DB.QueryRow(ctx, `INSERT INTO revision_requests (`+revisionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+revisionColumns,
		rev.ID, rev.OrderID, rev.UserID, photos, int64(rev.PricePerPhoto), int64(rev.Total), rev.Status, rev.CreatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return RevisionRequest{}, fmt.Errorf("%w: revision %s", ErrDuplicate, rev.ID)
		}
		return RevisionRequest{}, fmt.Errorf("insert revision: %w", err)
	}
	return out, nil
}

// ListRevisions returns the revision requests of an order, oldest first.
func (s PgStore) ListRevisions(ctx context.Context, orderID uuid.UUID) ([]RevisionRequest, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+revisionColumns+` FROM revision_requests
WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	revs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RevisionRequest, error) { return scanRevision(row) })
	if err != nil {
		return nil, fmt.Errorf("scan revisions: %w", err)
	}
	return revs, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                                   Order
		services                            []byte
		perPhoto, subtotal, discount, total int64
		tier                                *string
		status, paymentStatus               string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.PhotoCount, &o.PhotoKeys, &services, &perPhoto, &subtotal,
		&discount, &total, &tier, &o.Currency, &o.Notes, &status, &paymentStatus, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(services, &o.Services); err != nil {
		return Order{}, fmt.Errorf("decode services: %w", err)
	}
	o.PerPhoto = pricing.Money(perPhoto)
	o.Subtotal = pricing.Money(subtotal)
	o.Discount = pricing.Money(discount)
	o.Total = pricing.Money(total)
	if tier != nil {
		o.DiscountTier = *tier
	}
	o.Status = Status(status)
	o.PaymentStatus = PaymentStatus(paymentStatus)
	return o, nil
}

func scanRevision(row pgx.Row) (RevisionRequest, error) {
	var (
		rev          RevisionRequest
		photos       []byte
		price, total int64
	)
	if err := row.Scan(&rev.ID, &rev.OrderID, &rev.UserID, &photos, &price, &total, &rev.Status, &rev.CreatedAt); err != nil {
		return RevisionRequest{}, err
	}
	if err := json.Unmarshal(photos, &rev.Photos); err != nil {
		return RevisionRequest{}, fmt.Errorf("decode revision photos: %w", err)
	}
	rev.PricePerPhoto = pricing.Money(price)
	rev.Total = pricing.Money(total)
	return rev, nil
}

func notFound(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
