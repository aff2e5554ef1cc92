package place

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development when no database is configured.
// Thread-safe via RWMutex; the write lock held across UpdateFields provides
// the single-writer-per-record discipline the orchestrator relies on.
type InMemoryRepository struct {
	mu     sync.RWMutex
	places map[string]*Place
	order  []string // insertion order, so scans are stable
}

// NewInMemoryRepository creates a new in-memory place repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		places: make(map[string]*Place),
	}
}

// GetByID retrieves a record by its identifier.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.places[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.clone(), nil
}

// Create inserts a new record.
func (r *InMemoryRepository) Create(ctx context.Context, p *Place) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.places[p.ID]; exists {
		return fmt.Errorf("place %q already exists", p.ID)
	}
	r.places[p.ID] = p.clone()
	r.order = append(r.order, p.ID)
	return nil
}

// List returns records matching the options in insertion order.
func (r *InMemoryRepository) List(ctx context.Context, opts ListOptions) ([]*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Place
	skipped := 0
	for _, id := range r.order {
		p := r.places[id]
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.Subcategory != "" && p.Subcategory != opts.Subcategory {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		out = append(out, p.clone())
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

// ScanAll returns every record in insertion order.
func (r *InMemoryRepository) ScanAll(ctx context.Context) ([]*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Place, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.places[id].clone())
	}
	return out, nil
}

// UpdateFields applies the given fields and refreshes the timestamp under a
// single write lock, so readers observe either the full pre-update or the
// full post-update record.
func (r *InMemoryRepository) UpdateFields(ctx context.Context, id string, fields map[string]string, updatedAt time.Time) error {
	if err := ValidateFields(fields); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.places[id]
	if !ok {
		return ErrNotFound
	}

	updated := p.clone()
	applyFields(updated, fields)
	ts := updatedAt
	updated.LastUpdated = &ts
	r.places[id] = updated
	return nil
}

// Categories returns distinct subcategories grouped by category, sorted for
// stable output, excluding the "other" bucket.
func (r *InMemoryRepository) Categories(ctx context.Context) (map[string][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]map[string]struct{})
	for _, p := range r.places {
		if p.Category == "" || p.Category == "other" {
			continue
		}
		if seen[p.Category] == nil {
			seen[p.Category] = make(map[string]struct{})
		}
		if p.Subcategory != "" {
			seen[p.Category][p.Subcategory] = struct{}{}
		}
	}

	out := make(map[string][]string, len(seen))
	for cat, subs := range seen {
		list := make([]string, 0, len(subs))
		for sub := range subs {
			list = append(list, sub)
		}
		sort.Strings(list)
		out[cat] = list
	}
	return out, nil
}
