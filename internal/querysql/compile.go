// Package querysql compiles collection reads to parameterized SQLite SQL.
//
// Every Select carries an ORDER BY with a unique tie-breaker, so results are
// deterministic. Values are always bound as parameters and identifiers are
// checked against a strict pattern before they reach the SQL text.
package querysql

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Compile converts a query to SQL and its parameters.
func Compile(q Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case Select:
		return compileSelect(query)
	case *Select:
		return compileSelect(*query)
	case Count:
		return compileCount(query)
	case *Count:
		return compileCount(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q Select) (string, []any, error) {
	if err := checkIdent("table", q.From); err != nil {
		return "", nil, err
	}
	if err := checkIdent("order by", q.OrderBy); err != nil {
		return "", nil, err
	}
	tieBreak := q.TieBreak
	if tieBreak == "" {
		tieBreak = "id"
	}
	if err := checkIdent("tie break", tieBreak); err != nil {
		return "", nil, err
	}
	if q.Offset < 0 {
		return "", nil, fmt.Errorf("negative offset %d", q.Offset)
	}

	selectClause, err := compileColumns(q.Columns)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", selectClause, q.From)

	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(filterSQL)
		params = filterParams
	}

	b.WriteString(" ORDER BY ")
	b.WriteString(orderKey(q.OrderBy, tieBreak, q.Desc))

	if q.Limit >= 0 || q.Offset > 0 {
		limit := q.Limit
		if limit < 0 {
			limit = -1 // SQLite: no upper bound
		}
		b.WriteString(" LIMIT ? OFFSET ?")
		params = append(params, limit, q.Offset)
	}

	return b.String(), params, nil
}

func compileCount(q Count) (string, []any, error) {
	if err := checkIdent("table", q.From); err != nil {
		return "", nil, err
	}
	sql := "SELECT COUNT(*) FROM " + q.From
	if q.Filter == nil {
		return sql, nil, nil
	}
	filterSQL, params, err := compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	return sql + " WHERE " + filterSQL, params, nil
}

// orderKey returns the ORDER BY terms. COLLATE BINARY matches the collation
// of the indexes, so SQLite walks the index instead of sorting.
func orderKey(orderBy, tieBreak string, desc bool) string {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	if orderBy == tieBreak {
		return fmt.Sprintf("%s %s", orderBy, dir)
	}
	return fmt.Sprintf("%s COLLATE BINARY %s, %s %s", orderBy, dir, tieBreak, dir)
}

func compileColumns(cols []string) (string, error) {
	if len(cols) == 0 {
		return "*", nil
	}
	for _, c := range cols {
		if err := checkIdent("column", c); err != nil {
			return "", err
		}
	}
	return strings.Join(cols, ", "), nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
// Values are never interpolated.
func compilePredicate(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	if err := checkIdent("field", eq.Field); err != nil {
		return "", nil, err
	}
	switch eq.Value.(type) {
	case nil:
		return eq.Field + " IS NULL", nil, nil
	case string, int, int64, float64, bool, []byte:
	default:
		return "", nil, fmt.Errorf("unsupported value type for %s: %T", eq.Field, eq.Value)
	}
	return eq.Field + " = ?", []any{eq.Value}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, p, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid %s identifier %q", kind, name)
	}
	return nil
}
