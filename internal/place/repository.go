package place

import (
	"context"
	"time"
)

// ListOptions filters and pages a place listing.
type ListOptions struct {
	Category    string
	Subcategory string
	Limit       int
	Offset      int
}

// Repository defines the record-store contract required by the search and
// update subsystems.
//
// UpdateFields must be atomic: the sparse field application and the timestamp
// refresh land in one write, so a crash can never expose a record with new
// field values but a stale last_updated (or the reverse). Implementations
// must also serialize concurrent UpdateFields calls for the same identifier;
// the orchestrator performs no locking of its own.
type Repository interface {
	// GetByID retrieves a record by its stable identifier.
	// Returns ErrNotFound when absent.
	GetByID(ctx context.Context, id string) (*Place, error)

	// Create inserts a new record.
	Create(ctx context.Context, p *Place) error

	// List returns records matching the options, in stable store order.
	List(ctx context.Context, opts ListOptions) ([]*Place, error)

	// ScanAll returns every record, in stable store order. The ranking
	// engine performs a full scan per search request.
	ScanAll(ctx context.Context) ([]*Place, error)

	// UpdateFields applies the given editable fields to the record and
	// refreshes its last-updated timestamp in the same atomic write.
	// Returns ErrNotFound when absent.
	UpdateFields(ctx context.Context, id string, fields map[string]string, updatedAt time.Time) error

	// Categories returns distinct subcategories grouped by category,
	// excluding the catch-all "other" bucket.
	Categories(ctx context.Context) (map[string][]string, error)
}
