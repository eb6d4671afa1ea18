package trigger

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryRunRepository keeps run logs in process for dry runs and tests.
type MemoryRunRepository struct {
	mu   sync.Mutex
	runs map[primitive.ObjectID]TriggerRun
}

func NewMemoryRunRepository() *MemoryRunRepository {
	return &MemoryRunRepository{runs: map[primitive.ObjectID]TriggerRun{}}
}

func (m *MemoryRunRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (m *MemoryRunRepository) Create(ctx context.Context, run *TriggerRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = primitive.NewObjectID()
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *MemoryRunRepository) Update(ctx context.Context, run *TriggerRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = copyRun(run)
	return nil
}

func (m *MemoryRunRepository) List(ctx context.Context, kind RunKind, limit int) ([]TriggerRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []TriggerRun{}
	for _, r := range m.runs {
		if kind == "" || r.Kind == kind {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRun(run *TriggerRun) TriggerRun {
	c := *run
	c.Errors = append([]RunError(nil), run.Errors...)
	return c
}
