// Package schema declares the layout of the per-user local store.
//
// The layout lives in an embedded CUE document (schema.cue). CUE checks the
// shape of the declaration (identifier syntax, field types, non-empty index
// field lists); Parse then checks the cross references CUE cannot express
// (index fields exist, index names are unique, the primary key is an integer
// field) before the schema is handed to the store.
//
// Exactly one schema version exists. Opening a store created with another
// version is refused rather than migrated.
package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// Version is the only schema version this package declares.
// It is recorded in PRAGMA user_version of every store.
const Version = 1

// FieldType is the storage type of a collection field.
type FieldType string

const (
	TypeInteger FieldType = "integer"
	TypeText    FieldType = "text"
)

// Field is one column of a collection.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Index is an ordered structure over one or more fields.
// A unique index additionally rejects two records sharing the same values.
type Index struct {
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique"`
}

// Collection is one table of the store: a primary key plus secondary indexes.
type Collection struct {
	Name       string  `json:"name"`
	PrimaryKey string  `json:"primaryKey"`
	Fields     []Field `json:"fields"`
	Indexes    []Index `json:"indexes"`
}

// Schema is a named, versioned set of collections.
type Schema struct {
	Name        string       `json:"name"`
	Version     int          `json:"version"`
	Collections []Collection `json:"collections"`
}

// CompileError reports an invalid schema declaration.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load returns the embedded store schema.
func Load() (*Schema, error) {
	return Parse("schema.cue", schemaCUE)
}

// MustLoad is like Load but panics on error. The embedded document is
// covered by tests, so a failure here is a build defect.
func MustLoad() *Schema {
	s, err := Load()
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return s
}

// Parse compiles a CUE schema document and validates it.
func Parse(filename, src string) (*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var s Schema
	if err := v.Decode(&s); err != nil {
		return nil, formatCUEError(err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Validate checks the cross references of a schema.
// Parse calls it; callers building a Schema by hand should too.
func (s *Schema) Validate() error {
	if s.Version != Version {
		return &CompileError{Field: "version", Message: fmt.Sprintf("unsupported version %d (want %d)", s.Version, Version)}
	}
	if len(s.Collections) == 0 {
		return &CompileError{Field: "collections", Message: "at least one collection is required"}
	}

	indexNames := make(map[string]bool)
	collNames := make(map[string]bool)
	for _, c := range s.Collections {
		if !identRe.MatchString(c.Name) {
			return &CompileError{Field: "collections", Message: fmt.Sprintf("invalid collection name %q", c.Name)}
		}
		if collNames[c.Name] {
			return &CompileError{Field: "collections", Message: fmt.Sprintf("duplicate collection %q", c.Name)}
		}
		collNames[c.Name] = true

		fields := make(map[string]FieldType, len(c.Fields))
		for _, f := range c.Fields {
			if !identRe.MatchString(f.Name) {
				return &CompileError{Field: c.Name, Message: fmt.Sprintf("invalid field name %q", f.Name)}
			}
			if _, dup := fields[f.Name]; dup {
				return &CompileError{Field: c.Name, Message: fmt.Sprintf("duplicate field %q", f.Name)}
			}
			fields[f.Name] = f.Type
		}

		pkType, ok := fields[c.PrimaryKey]
		if !ok {
			return &CompileError{Field: c.Name, Message: fmt.Sprintf("primary key %q is not a declared field", c.PrimaryKey)}
		}
		if pkType != TypeInteger {
			return &CompileError{Field: c.Name, Message: fmt.Sprintf("primary key %q must be an integer", c.PrimaryKey)}
		}

		for _, idx := range c.Indexes {
			if !identRe.MatchString(idx.Name) {
				return &CompileError{Field: c.Name, Message: fmt.Sprintf("invalid index name %q", idx.Name)}
			}
			if indexNames[idx.Name] {
				return &CompileError{Field: c.Name, Message: fmt.Sprintf("duplicate index %q", idx.Name)}
			}
			indexNames[idx.Name] = true
			if len(idx.Fields) == 0 {
				return &CompileError{Field: c.Name, Message: fmt.Sprintf("index %q has no fields", idx.Name)}
			}
			for _, f := range idx.Fields {
				if _, ok := fields[f]; !ok {
					return &CompileError{Field: c.Name, Message: fmt.Sprintf("index %q references unknown field %q", idx.Name, f)}
				}
			}
		}
	}
	return nil
}

// Collection returns the collection with the given name.
func (s *Schema) Collection(name string) (Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// DDL returns the statements creating every collection of the schema.
func (s *Schema) DDL() []string {
	var stmts []string
	for _, c := range s.Collections {
		stmts = append(stmts, c.DDL()...)
	}
	return stmts
}

// Indexed reports whether field can drive ordered iteration: it is the
// primary key or the sole field of a secondary index.
func (c Collection) Indexed(field string) bool {
	if field == c.PrimaryKey {
		return true
	}
	for _, idx := range c.Indexes {
		if len(idx.Fields) == 1 && idx.Fields[0] == field {
			return true
		}
	}
	return false
}

// Columns returns the non primary key fields in declaration order.
func (c Collection) Columns() []string {
	cols := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name != c.PrimaryKey {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// DDL returns CREATE TABLE and CREATE INDEX statements for the collection.
// Every statement is IF NOT EXISTS so reopening a store is a no-op.
func (c Collection) DDL() []string {
	defs := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		switch {
		case f.Name == c.PrimaryKey:
			defs = append(defs, f.Name+" INTEGER PRIMARY KEY AUTOINCREMENT")
		case f.Type == TypeInteger:
			defs = append(defs, f.Name+" INTEGER NOT NULL DEFAULT 0")
		default:
			defs = append(defs, f.Name+" TEXT NOT NULL DEFAULT ''")
		}
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", c.Name, strings.Join(defs, ",\n\t")),
	}
	for _, idx := range c.Indexes {
		kind := "INDEX"
		if idx.Unique {
			kind = "UNIQUE INDEX"
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s(%s)",
			kind, idx.Name, c.Name, strings.Join(idx.Fields, ", ")))
	}
	return stmts
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}
