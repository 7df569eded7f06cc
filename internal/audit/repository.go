package audit

import (
	"context"
	"sync"

	"github.com/aidmatch/platform/internal/shared/errors"
	"github.com/aidmatch/platform/internal/shared/metrics"
	"github.com/aidmatch/platform/internal/shared/types"
)

// Repository stores the audit chain
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	FindByID(ctx context.Context, id types.ID) (*Entry, error)
	List(ctx context.Context, filter ListFilter) ([]*Entry, int, error)
	VerifyChain(ctx context.Context, limit int) (*VerifyResult, error)
	LastHash() string
	Count(ctx context.Context) (int, error)
}

// MemoryRepository keeps the chain in memory. The event store holds the
// durable copy of every event the chain is derived from, so a restart
// rebuilds an equivalent trail as new events arrive.
type MemoryRepository struct {
	mu       sync.RWMutex
	entries  []*Entry
	lastHash string
	sequence int64
}

// NewMemoryRepository creates an empty chain store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append links the entry to the chain head and stores it
func (r *MemoryRepository) Append(ctx context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.PrevHash != r.lastHash {
		return errors.Conflict("audit entry does not extend the chain head")
	}

	r.sequence++
	entry.Sequence = r.sequence
	r.entries = append(r.entries, entry)
	r.lastHash = entry.Hash

	metrics.RecordAuditEntry()
	return nil
}

// FindByID returns one entry
func (r *MemoryRepository) FindByID(ctx context.Context, id types.ID) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.NotFound("audit entry", id.String())
}

// List returns entries matching the filter, newest first
func (r *MemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
			continue
		}
		if filter.StartTime != nil && e.Timestamp.Before(*filter.StartTime) {
			continue
		}
		if filter.EndTime != nil && e.Timestamp.After(*filter.EndTime) {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

// VerifyChain walks the chain and checks every hash and link. limit
// bounds how many of the newest entries are checked; 0 checks all.
func (r *MemoryRepository) VerifyChain(ctx context.Context, limit int) (*VerifyResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if limit > 0 && len(r.entries) > limit {
		start = len(r.entries) - limit
	}

	result := &VerifyResult{Valid: true}
	prevHash := ""
	if start > 0 {
		prevHash = r.entries[start-1].Hash
	}

	for i := start; i < len(r.entries); i++ {
		e := r.entries[i]
		result.Checked++

		if !e.VerifyHash() || e.PrevHash != prevHash {
			result.Valid = false
			result.BadEntries = append(result.BadEntries, e.ID.String())
			if result.BrokenAt == nil {
				seq := e.Sequence
				result.BrokenAt = &seq
			}
		}
		prevHash = e.Hash
	}
	return result, nil
}

// LastHash returns the chain head
func (r *MemoryRepository) LastHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastHash
}

// Count returns the chain length
func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

var _ Repository = (*MemoryRepository)(nil)
