package rules_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/rules"
	"github.com/JaimeStill/scribe/pkg/pagination"
)

type sourceKey struct {
	rule   uuid.UUID
	review uuid.UUID
	code   string
}

// memStore mirrors the postgres upsert semantics in memory.
type memStore struct {
	mu      sync.Mutex
	rules   map[rules.Key]*rules.Rule
	sources map[sourceKey]bool
	clock   time.Time
	err     error
}

func newMemStore() *memStore {
	return &memStore{
		rules:   make(map[rules.Key]*rules.Rule),
		sources: make(map[sourceKey]bool),
		clock:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) Upsert(_ context.Context, l rules.Learning, src rules.Source) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}

	m.clock = m.clock.Add(time.Second)
	r, ok := m.rules[l.Key]
	if ok {
		r.FailureCount++
		reason := l.Reason
		if len(reason) > 200 {
			reason = reason[:200]
		}
		r.Reason += " | " + reason
		r.LastFailureAt = m.clock
	} else {
		r = &rules.Rule{
			Key:           l.Key,
			ID:            uuid.New(),
			Reason:        l.Reason,
			FailureCount:  1,
			LastFailureAt: m.clock,
			CreatedAt:     m.clock,
			IsActive:      true,
		}
		m.rules[l.Key] = r
	}

	m.sources[sourceKey{r.ID, src.ReviewID, l.IssueCode}] = true
	return !ok, nil
}

func (m *memStore) Active(context.Context) ([]rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []rules.Rule
	for _, r := range m.rules {
		if r.IsActive {
			out = append(out, *r)
		}
	}

	slices.SortFunc(out, func(a, b rules.Rule) int {
		if a.FailureCount != b.FailureCount {
			return b.FailureCount - a.FailureCount
		}
		if c := b.LastFailureAt.Compare(a.LastFailureAt); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	return out, nil
}

func (m *memStore) List(_ context.Context, page pagination.PageRequest, _ rules.Filters) (*pagination.PageResult[rules.Rule], error) {
	items, _ := m.Active(context.Background())
	res := pagination.NewPageResult(items, len(items), page.Page, page.PageSize)
	return &res, nil
}

func (m *memStore) Find(_ context.Context, id uuid.UUID) (*rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rules {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, rules.ErrNotFound
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) (*rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rules {
		if r.ID == id {
			r.IsActive = active
			cp := *r
			return &cp, nil
		}
	}
	return nil, rules.ErrNotFound
}
