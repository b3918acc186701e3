package appeal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"appealdesk/cache"
)

// DefaultSlotKey names the cache slot that holds the appeal collection.
const DefaultSlotKey = "ActiveAppeals"

var (
	ErrNotFound    = errors.New("appeal: not found")
	ErrDuplicateID = errors.New("appeal: duplicate id")
	ErrCorruptSlot = errors.New("appeal: corrupt slot payload")
)

// Repository keeps the whole appeal collection in one cache slot. Every write
// replaces the slot wholesale; callers serialize their own read-modify-write.
type Repository struct {
	slots cache.Store
	key   string
	ttl   time.Duration
}

// NewRepository binds a repository to key in slots. A zero ttl keeps the slot
// until it is overwritten.
func NewRepository(slots cache.Store, key string, ttl time.Duration) *Repository {
	if key == "" {
		key = DefaultSlotKey
	}
	return &Repository{slots: slots, key: key, ttl: ttl}
}

// Key returns the slot name this repository reads and writes.
func (r *Repository) Key() string {
	return r.key
}

// slotRecord is the persisted shape of an Appeal.
type slotRecord struct {
	ID                 string    `json:"id"`
	Description        string    `json:"description"`
	EntryTime          time.Time `json:"entryTime"`
	ResolutionDeadline time.Time `json:"resolutionDeadline"`
	IsResolved         bool      `json:"isResolved"`
}

// Load returns the stored collection, or an empty one if the slot is absent.
func (r *Repository) Load(ctx context.Context) ([]Appeal, error) {
	raw, err := r.slots.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return []Appeal{}, nil
		}
		return nil, fmt.Errorf("appeal: load: %w", err)
	}

	var records []slotRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSlot, err)
	}

	out := make([]Appeal, 0, len(records))
	for _, rec := range records {
		out = append(out, Appeal{
			ID:                 rec.ID,
			Description:        rec.Description,
			EntryTime:          rec.EntryTime,
			ResolutionDeadline: rec.ResolutionDeadline,
			IsResolved:         rec.IsResolved,
		})
	}
	return out, nil
}

// Save replaces the stored collection with appeals.
func (r *Repository) Save(ctx context.Context, appeals []Appeal) error {
	records := make([]slotRecord, 0, len(appeals))
	for _, a := range appeals {
		records = append(records, slotRecord{
			ID:                 a.ID,
			Description:        a.Description,
			EntryTime:          a.EntryTime,
			ResolutionDeadline: a.ResolutionDeadline,
			IsResolved:         a.IsResolved,
		})
	}

	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("appeal: encode: %w", err)
	}
	if err := r.slots.Set(ctx, r.key, raw, r.ttl); err != nil {
		return fmt.Errorf("appeal: save: %w", err)
	}
	return nil
}
