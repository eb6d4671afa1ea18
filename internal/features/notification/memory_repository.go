package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRepository keeps the queue in process. It backs dry runs of the trigger CLI
// and the tests of packages that write notifications.
type MemoryRepository struct {
	mu   sync.Mutex
	rows map[primitive.ObjectID]*Notification
	// FailCreate, when set, is returned by every insert.
	FailCreate error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[primitive.ObjectID]*Notification{}}
}

// All returns a snapshot of every row, oldest first.
func (m *MemoryRepository) All() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, 0, len(m.rows))
	for _, n := range m.rows {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

func clone(n *Notification) Notification {
	c := *n
	if n.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

func (m *MemoryRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (m *MemoryRepository) Create(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(n)
}

func (m *MemoryRepository) insertLocked(n *Notification) error {
	if m.FailCreate != nil {
		return m.FailCreate
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	c := clone(n)
	m.rows[n.ID] = &c
	return nil
}

func (m *MemoryRepository) CreateIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.DedupKey != "" {
		for _, existing := range m.rows {
			if existing.DedupKey == n.DedupKey {
				*n = clone(existing)
				return false, nil
			}
		}
	}
	return true, m.insertLocked(n)
}

func (m *MemoryRepository) GetByID(ctx context.Context, id primitive.ObjectID, userID string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id, userID), nil
}

func (m *MemoryRepository) getLocked(id primitive.ObjectID, userID string) *Notification {
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return nil
	}
	c := clone(n)
	return &c
}

func (m *MemoryRepository) List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error) {
	opts = opts.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []Notification
	for _, n := range m.rows {
		if n.UserID != userID {
			continue
		}
		if opts.Status != "" && n.Status != opts.Status {
			continue
		}
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		if opts.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, clone(n))
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsRead != b.IsRead {
			return !a.IsRead
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID.Hex() > b.ID.Hex()
	})

	out := []Notification{}
	for i := opts.Offset; i < int64(len(matched)) && int64(len(out)) < opts.Limit; i++ {
		out = append(out, matched[i])
	}
	return out, nil
}

func (m *MemoryRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MemoryRepository) MarkRead(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	if !n.IsRead {
		markReadLocked(n, at)
	}
	c := clone(n)
	return &c, nil
}

func markReadLocked(n *Notification, at time.Time) {
	t := at
	n.IsRead = true
	n.ReadAt = &t
	n.Status = StatusRead
}

func (m *MemoryRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.rows {
		if n.UserID == userID && !n.IsRead {
			markReadLocked(n, at)
			out = append(out, clone(n))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepository) MarkUnread(ctx context.Context, id primitive.ObjectID, userID string, at time.Time) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.UserID != userID {
		return nil, nil
	}
	if n.IsRead {
		n.IsRead = false
		n.ReadAt = nil
		n.Status = StatusDelivered
		if n.DeliveredAt == nil {
			t := at
			n.DeliveredAt = &t
		}
	}
	c := clone(n)
	return &c, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id primitive.ObjectID, userID string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.getLocked(id, userID)
	if n != nil {
		delete(m.rows, id)
	}
	return n, nil
}

func (m *MemoryRepository) Stats(ctx context.Context, userID string, since time.Time) (*Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := newStats(since)
	for _, n := range m.rows {
		if n.UserID != userID || n.CreatedAt.Before(since) {
			continue
		}
		stats.Total++
		stats.ByStatus[string(n.Status)]++
		stats.ByChannel[string(n.Channel)]++
		stats.ByType[string(n.Type)]++
		if !n.IsRead {
			stats.Unread++
		}
	}
	return stats, nil
}

func (m *MemoryRepository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due *Notification
	for _, n := range m.rows {
		if n.Status != StatusPending || n.ScheduledAt.After(now) {
			continue
		}
		if n.LockedUntil != nil && !n.LockedUntil.Before(now) {
			continue
		}
		if due == nil || n.ScheduledAt.Before(due.ScheduledAt) {
			due = n
		}
	}
	if due == nil {
		return nil, nil
	}
	until := now.Add(lease)
	due.LockedUntil = &until
	c := clone(due)
	return &c, nil
}

func (m *MemoryRepository) updatePending(id primitive.ObjectID, fn func(n *Notification)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.Status != StatusPending {
		return
	}
	fn(n)
	n.LockedUntil = nil
}

func (m *MemoryRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.updatePending(id, func(n *Notification) {
		t := at
		n.Status = StatusDelivered
		n.SentAt = &t
		n.DeliveredAt = &t
		n.ErrorMessage = ""
	})
	return nil
}

func (m *MemoryRepository) Reschedule(ctx context.Context, id primitive.ObjectID, at time.Time, retryCount int, errMsg string) error {
	m.updatePending(id, func(n *Notification) {
		n.ScheduledAt = at
		n.RetryCount = retryCount
		if errMsg != "" {
			n.ErrorMessage = errMsg
		}
	})
	return nil
}

func (m *MemoryRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, retryCount int, errMsg string) error {
	m.updatePending(id, func(n *Notification) {
		n.Status = StatusFailed
		n.RetryCount = retryCount
		n.ErrorMessage = errMsg
	})
	return nil
}

func (m *MemoryRepository) Cancel(ctx context.Context, id primitive.ObjectID, reason string) error {
	m.updatePending(id, func(n *Notification) {
		n.Status = StatusCancelled
		n.ErrorMessage = reason
	})
	return nil
}
