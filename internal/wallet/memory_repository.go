package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

// NewMemoryRepository constructs an in-memory repository for tests and local development.
func NewMemoryRepository() Repository {
	return &memoryRepository{now: time.Now}
}

func (r *memoryRepository) EnsureSchema(context.Context) error {
	return nil
}

func (r *memoryRepository) Append(_ context.Context, in RecordInput) (Record, error) {
	if len(in.Address) > MaxAddressLen {
		return Record{}, storeError("insert", fmt.Errorf("address longer than %d characters", MaxAddressLen))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rec := Record{
		ID:          int64(len(r.records) + 1),
		Address:     in.Address,
		AccountInfo: in.AccountInfo,
		CreatedAt:   r.now().UTC(),
	}
	r.records = append(r.records, rec)
	return rec, nil
}

func (r *memoryRepository) List(_ context.Context, offset, limit int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, limit)
	for i := len(r.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}
