// Package paginate pages, sorts, filters and counts the records of any
// indexed collection.
//
// GetPage knows nothing about the record type beyond the name of the field
// it sorts on. A collection takes part by implementing Source: ordered
// iteration over a named index, a count, and offset/limit range reads.
//
// Without a filter the total comes from Source.Count and the window from
// Source.Range, so neither reads more rows than needed. With a filter the
// collection is walked once in index order; every match is counted and only
// the matches inside the window are kept.
//
// Descending order reverses the direction of the index walk. It never
// re-sorts, so a descending page is the exact reverse of the ascending one.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSpec reports a negative offset or limit, or an unknown order.
	ErrInvalidSpec = errors.New("invalid pagination spec")

	// ErrUnknownIndex reports an OrderBy field the collection has no index on.
	ErrUnknownIndex = errors.New("order by field is not indexed")
)

// Order is the direction of an index walk.
type Order int

const (
	Ascending Order = iota
	Descending
)

func (o Order) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// ParseOrder accepts "asc", "ascending", "desc" and "descending"
// (case-insensitive).
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return 0, fmt.Errorf("%w: unknown order %q", ErrInvalidSpec, s)
	}
}

// Spec describes one requested window of an ordered result.
type Spec struct {
	OrderBy string `json:"orderBy"`
	Order   Order  `json:"order"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
}

// Validate checks the parts of a spec that do not depend on the collection.
func (s Spec) Validate() error {
	if s.OrderBy == "" {
		return fmt.Errorf("%w: order by is required", ErrInvalidSpec)
	}
	if s.Order != Ascending && s.Order != Descending {
		return fmt.Errorf("%w: unknown order %d", ErrInvalidSpec, int(s.Order))
	}
	if s.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidSpec, s.Offset)
	}
	if s.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalidSpec, s.Limit)
	}
	return nil
}

// Page is one window of records plus the number of records matching the
// request. Data is never nil and never longer than the requested limit.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

// Source is an indexed collection GetPage can read.
type Source[T any] interface {
	// Indexed reports whether field can drive ordered iteration.
	Indexed(field string) bool

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Range returns at most limit records starting at offset, in index order.
	Range(ctx context.Context, orderBy string, desc bool, offset, limit int) ([]T, error)

	// Each calls fn for every record in index order until fn returns false.
	Each(ctx context.Context, orderBy string, desc bool, fn func(T) bool) error
}

// GetPage returns the window of src described by spec.
//
// filter is optional. When set, Total is the number of records satisfying it;
// otherwise Total is the size of the collection. Errors from src are returned
// unchanged.
func GetPage[T any](ctx context.Context, src Source[T], spec Spec, filter Filter[T]) (Page[T], error) {
	if err := spec.Validate(); err != nil {
		return Page[T]{}, err
	}
	if !src.Indexed(spec.OrderBy) {
		return Page[T]{}, fmt.Errorf("%w: %q", ErrUnknownIndex, spec.OrderBy)
	}
	desc := spec.Order == Descending

	if filter == nil {
		return rangePage(ctx, src, spec, desc)
	}

	page := Page[T]{Data: []T{}}
	err := src.Each(ctx, spec.OrderBy, desc, func(rec T) bool {
		if !filter(rec) {
			return true
		}
		if page.Total >= spec.Offset && len(page.Data) < spec.Limit {
			page.Data = append(page.Data, rec)
		}
		page.Total++
		return true
	})
	if err != nil {
		return Page[T]{}, err
	}
	return page, nil
}

func rangePage[T any](ctx context.Context, src Source[T], spec Spec, desc bool) (Page[T], error) {
	total, err := src.Count(ctx)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Data: []T{}, Total: total}
	if spec.Limit == 0 || spec.Offset >= total {
		return page, nil
	}

	data, err := src.Range(ctx, spec.OrderBy, desc, spec.Offset, spec.Limit)
	if err != nil {
		return Page[T]{}, err
	}
	if len(data) > spec.Limit {
		data = data[:spec.Limit]
	}
	if data != nil {
		page.Data = data
	}
	return page, nil
}
