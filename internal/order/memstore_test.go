package order

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]Order
	revisions []RevisionRequest
}

func newMemStore() *memStore {
	return &memStore{orders: map[uuid.UUID]Order{}}
}

func (m *memStore) Insert(_ context.Context, o Order) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return Order{}, ErrDuplicate
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *memStore) GetForUser(ctx context.Context, id uuid.UUID, userID string) (Order, error) {
	o, err := m.Get(ctx, id)
	if err != nil || o.UserID != userID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string, limit, offset int) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return Order{}, ErrInvalidTransition
	}
	o.Status = to
	m.orders[id] = o
	return o, nil
}

func (m *memStore) UpdatePaymentStatus(_ context.Context, id uuid.UUID, from, to PaymentStatus) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.PaymentStatus != from {
		return Order{}, ErrInvalidTransition
	}
	o.PaymentStatus = to
	m.orders[id] = o
	return o, nil
}

func (m *memStore) InsertRevision(_ context.Context, rev RevisionRequest) (RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions = append(m.revisions, rev)
	return rev, nil
}

func (m *memStore) ListRevisions(_ context.Context, orderID uuid.UUID) ([]RevisionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RevisionRequest
	for _, rev := range m.revisions {
		if rev.OrderID == orderID {
			out = append(out, rev)
		}
	}
	return out, nil
}

func (m *memStore) setStatus(id uuid.UUID, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := m.orders[id]
	o.Status = s
	m.orders[id] = o
}
