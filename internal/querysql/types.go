package querysql

// Query is an abstract read over one collection.
//
// This is a sealed interface - only types in this package implement it, so
// Compile can switch over every case.
//
// Query types:
//   - Select: ordered, windowed row access
//   - Count: cardinality of the rows matching a filter
type Query interface {
	queryNode()
}

// Predicate is a filter condition pushed down into SQL.
//
// Predicates are sealed the same way as Query. Only equality and
// conjunction exist: callers needing anything richer filter in Go after
// retrieval (see paginate.Filter).
type Predicate interface {
	predicateNode()
}

// Select reads rows of a table in index order.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter>
//	ORDER BY <order_by> <dir>, <tie_break> <dir>
//	LIMIT <limit> OFFSET <offset>
//
// Descending reverses both ordering terms, so the descending result is the
// exact reverse of the ascending one even when OrderBy has duplicates.
type Select struct {
	From     string    // Table name
	Columns  []string  // Columns in scan order (empty = *)
	Filter   Predicate // WHERE conditions (nil = no filter)
	OrderBy  string    // Sort column; must be indexed by the caller's schema
	TieBreak string    // Unique column breaking ties (usually the primary key)
	Desc     bool      // Reverse iteration direction
	Offset   int       // Rows to skip (0 = none)
	Limit    int       // Max rows (negative = unbounded)
}

func (Select) queryNode() {}

// Count counts the rows of a table matching Filter.
//
//	SELECT COUNT(*) FROM <from> WHERE <filter>
type Count struct {
	From   string
	Filter Predicate
}

func (Count) queryNode() {}

// Equals is a field-equals-literal predicate.
//
//	<field> = ?
//
// Value must be a type database/sql accepts as an argument
// (string, int, int64, float64, bool, []byte or nil).
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// And is a conjunction of predicates. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Eq is shorthand for Equals{Field: field, Value: value}.
func Eq(field string, value any) Equals {
	return Equals{Field: field, Value: value}
}

// AllOf is shorthand for And{Predicates: preds}.
func AllOf(preds ...Predicate) And {
	return And{Predicates: preds}
}
