package paginate

// Filter is a pure predicate over records, evaluated in index order.
// A nil Filter matches everything and lets GetPage count without iterating.
type Filter[T any] func(T) bool

// And matches records satisfying every non-nil filter.
// It returns nil when no filter is given so GetPage keeps its fast path.
func And[T any](filters ...Filter[T]) Filter[T] {
	var set []Filter[T]
	for _, f := range filters {
		if f != nil {
			set = append(set, f)
		}
	}
	switch len(set) {
	case 0:
		return nil
	case 1:
		return set[0]
	}
	return func(rec T) bool {
		for _, f := range set {
			if !f(rec) {
				return false
			}
		}
		return true
	}
}

// Not inverts f. Not(nil) matches nothing.
func Not[T any](f Filter[T]) Filter[T] {
	if f == nil {
		return func(T) bool { return false }
	}
	return func(rec T) bool { return !f(rec) }
}
