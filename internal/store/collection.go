package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rotki/localdb/internal/querysql"
	"github.com/rotki/localdb/internal/schema"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Codec maps a record type to the columns of its collection.
//
// Scan reads the primary key followed by Columns, in that order. Values
// returns the values of Columns, in the same order.
type Codec[T any] struct {
	Columns []string
	Values  func(T) []any
	Scan    func(Scanner) (T, error)
	ID      func(T) int64
	SetID   func(*T, int64)
}

// Collection is a typed view of one table of a Store.
// It implements paginate.Source[T].
type Collection[T any] struct {
	store *Store
	def   schema.Collection
	codec Codec[T]

	selectCols []string
	insertSQL  string
	updateSQL  string
}

// NewCollection binds codec to the collection called name.
func NewCollection[T any](s *Store, name string, codec Codec[T]) (*Collection[T], error) {
	def, ok := s.schema.Collection(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	for _, col := range codec.Columns {
		if col == def.PrimaryKey || !slices.Contains(def.Columns(), col) {
			return nil, fmt.Errorf("collection %s: codec column %q is not a field", name, col)
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(codec.Columns)), ", ")
	assignments := make([]string, len(codec.Columns))
	for i, col := range codec.Columns {
		assignments[i] = col + " = ?"
	}

	return &Collection[T]{
		store:      s,
		def:        def,
		codec:      codec,
		selectCols: append([]string{def.PrimaryKey}, codec.Columns...),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			def.Name, strings.Join(codec.Columns, ", "), placeholders),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
			def.Name, strings.Join(assignments, ", "), def.PrimaryKey),
	}, nil
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.def.Name
}

// Indexed reports whether field is the primary key or has its own index.
func (c *Collection[T]) Indexed(field string) bool {
	return c.def.Indexed(field)
}

// Count returns the number of records in the collection.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	return c.CountWhere(ctx, nil)
}

// CountWhere returns the number of records matching pred (nil = all).
func (c *Collection[T]) CountWhere(ctx context.Context, pred querysql.Predicate) (int, error) {
	query, args, err := querysql.Compile(querysql.Count{From: c.def.Name, Filter: pred})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.def.Name, err)
	}
	var n int
	if err := c.store.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.def.Name, err)
	}
	return n, nil
}

// Range returns at most limit records after skipping offset, ordered by the
// orderBy index. A negative limit means no upper bound.
func (c *Collection[T]) Range(ctx context.Context, orderBy string, desc bool, offset, limit int) ([]T, error) {
	recs := []T{}
	err := c.walk(ctx, c.selectQuery(orderBy, desc, nil, offset, limit), func(rec T) bool {
		recs = append(recs, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Each calls fn for every record in orderBy index order until fn returns
// false. fn runs while the result set is open and must not use the store.
func (c *Collection[T]) Each(ctx context.Context, orderBy string, desc bool, fn func(T) bool) error {
	return c.walk(ctx, c.selectQuery(orderBy, desc, nil, 0, -1), fn)
}

// Find returns every record matching pred in primary key order.
func (c *Collection[T]) Find(ctx context.Context, pred querysql.Predicate) ([]T, error) {
	recs := []T{}
	err := c.walk(ctx, c.selectQuery(c.def.PrimaryKey, false, pred, 0, -1), func(rec T) bool {
		recs = append(recs, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// FindOne returns the first record matching pred, or ErrNotFound.
func (c *Collection[T]) FindOne(ctx context.Context, pred querysql.Predicate) (T, error) {
	var (
		found T
		ok    bool
	)
	err := c.walk(ctx, c.selectQuery(c.def.PrimaryKey, false, pred, 0, 1), func(rec T) bool {
		found, ok = rec, true
		return false
	})
	if err != nil {
		return found, err
	}
	if !ok {
		return found, fmt.Errorf("find %s: %w", c.def.Name, ErrNotFound)
	}
	return found, nil
}

// Get returns the record with the given primary key, or ErrNotFound.
func (c *Collection[T]) Get(ctx context.Context, id int64) (T, error) {
	rec, err := c.FindOne(ctx, querysql.Eq(c.def.PrimaryKey, id))
	if errors.Is(err, ErrNotFound) {
		return rec, fmt.Errorf("get %s %d: %w", c.def.Name, id, ErrNotFound)
	}
	return rec, err
}

// Add inserts rec and sets its primary key.
// A unique index violation fails with ErrUniqueViolation and stores nothing.
func (c *Collection[T]) Add(ctx context.Context, rec *T) error {
	res, err := c.store.db.ExecContext(ctx, c.insertSQL, c.codec.Values(*rec)...)
	if err != nil {
		return wrapWriteErr("add "+c.def.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("add %s: last insert id: %w", c.def.Name, err)
	}
	c.codec.SetID(rec, id)
	return nil
}

// BulkAdd inserts recs in one transaction and sets their primary keys.
// The first failing record aborts the whole batch: either every record is
// stored or none is, and no primary key is set on failure.
func (c *Collection[T]) BulkAdd(ctx context.Context, recs []T) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bulk add %s: begin tx: %w", c.def.Name, err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, c.insertSQL)
	if err != nil {
		return fmt.Errorf("bulk add %s: prepare: %w", c.def.Name, err)
	}
	defer stmt.Close()

	ids := make([]int64, len(recs))
	for i, rec := range recs {
		res, err := stmt.ExecContext(ctx, c.codec.Values(rec)...)
		if err != nil {
			return wrapWriteErr(fmt.Sprintf("bulk add %s: record %d", c.def.Name, i), err)
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return fmt.Errorf("bulk add %s: last insert id: %w", c.def.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("bulk add %s: commit: %w", c.def.Name, err)
	}
	for i := range recs {
		c.codec.SetID(&recs[i], ids[i])
	}
	return nil
}

// Put replaces the stored record with rec's primary key.
func (c *Collection[T]) Put(ctx context.Context, rec T) error {
	args := append(c.codec.Values(rec), c.codec.ID(rec))
	res, err := c.store.db.ExecContext(ctx, c.updateSQL, args...)
	if err != nil {
		return wrapWriteErr("put "+c.def.Name, err)
	}
	return c.expectOne(res, "put", c.codec.ID(rec))
}

// Remove deletes the record with the given primary key.
func (c *Collection[T]) Remove(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", c.def.Name, c.def.PrimaryKey)
	res, err := c.store.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("remove %s: %w", c.def.Name, err)
	}
	return c.expectOne(res, "remove", id)
}

func (c *Collection[T]) expectOne(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, c.def.Name, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s %d: %w", op, c.def.Name, id, ErrNotFound)
	}
	return nil
}

func (c *Collection[T]) selectQuery(orderBy string, desc bool, pred querysql.Predicate, offset, limit int) querysql.Select {
	return querysql.Select{
		From:     c.def.Name,
		Columns:  c.selectCols,
		Filter:   pred,
		OrderBy:  orderBy,
		TieBreak: c.def.PrimaryKey,
		Desc:     desc,
		Offset:   offset,
		Limit:    limit,
	}
}

// walk runs q and feeds decoded records to fn until it returns false.
func (c *Collection[T]) walk(ctx context.Context, q querysql.Select, fn func(T) bool) error {
	query, args, err := querysql.Compile(q)
	if err != nil {
		return fmt.Errorf("query %s: %w", c.def.Name, err)
	}

	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query %s: %w", c.def.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := c.codec.Scan(rows)
		if err != nil {
			return fmt.Errorf("scan %s: %w", c.def.Name, err)
		}
		if !fn(rec) {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", c.def.Name, err)
	}
	return nil
}
