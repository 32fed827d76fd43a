package paginate

import (
	"context"
	"slices"
)

// MemorySource is a Source over records already held in memory.
//
// Each key is a comparison function standing in for an index. Ties keep the
// insertion order, which plays the role of the primary key: descending walks
// reverse it as well.
type MemorySource[T any] struct {
	records []T
	keys    map[string]func(a, b T) int
}

// NewMemorySource returns a source over records indexed by keys.
// The records slice is copied.
func NewMemorySource[T any](records []T, keys map[string]func(a, b T) int) *MemorySource[T] {
	return &MemorySource[T]{
		records: slices.Clone(records),
		keys:    keys,
	}
}

// Indexed implements Source.
func (m *MemorySource[T]) Indexed(field string) bool {
	_, ok := m.keys[field]
	return ok
}

// Count implements Source.
func (m *MemorySource[T]) Count(ctx context.Context) (int, error) {
	return len(m.records), nil
}

// Range implements Source.
func (m *MemorySource[T]) Range(ctx context.Context, orderBy string, desc bool, offset, limit int) ([]T, error) {
	sorted := m.sorted(orderBy, desc)
	if offset >= len(sorted) {
		return []T{}, nil
	}
	end := len(sorted)
	if limit >= 0 && limit < end-offset {
		end = offset + limit
	}
	return sorted[offset:end], nil
}

// Each implements Source.
func (m *MemorySource[T]) Each(ctx context.Context, orderBy string, desc bool, fn func(T) bool) error {
	for _, rec := range m.sorted(orderBy, desc) {
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

func (m *MemorySource[T]) sorted(orderBy string, desc bool) []T {
	out := slices.Clone(m.records)
	if cmp, ok := m.keys[orderBy]; ok {
		slices.SortStableFunc(out, cmp)
	}
	if desc {
		slices.Reverse(out)
	}
	return out
}
