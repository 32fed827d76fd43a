package store

import (
	"context"

	"github.com/rotki/localdb/internal/querysql"
	"github.com/rotki/localdb/internal/schema"
)

// MissingMappingCodec maps schema.MissingMapping to its table.
var MissingMappingCodec = Codec[schema.MissingMapping]{
	Columns: []string{
		schema.FieldIdentifier,
		schema.FieldName,
		schema.FieldLocation,
		schema.FieldDetails,
	},
	Values: func(m schema.MissingMapping) []any {
		return []any{m.Identifier, m.Name, m.Location, m.Details}
	},
	Scan: func(sc Scanner) (schema.MissingMapping, error) {
		var m schema.MissingMapping
		err := sc.Scan(&m.ID, &m.Identifier, &m.Name, &m.Location, &m.Details)
		return m, err
	},
	ID:    func(m schema.MissingMapping) int64 { return m.ID },
	SetID: func(m *schema.MissingMapping, id int64) { m.ID = id },
}

// MissingMappings returns the missing_mappings collection of s.
func MissingMappings(s *Store) (*Collection[schema.MissingMapping], error) {
	return NewCollection(s, schema.MissingMappings, MissingMappingCodec)
}

// FindMapping looks a record up by its unique (identifier, location) pair.
func FindMapping(ctx context.Context, c *Collection[schema.MissingMapping], identifier, location string) (schema.MissingMapping, error) {
	return c.FindOne(ctx, querysql.AllOf(
		querysql.Eq(schema.FieldIdentifier, identifier),
		querysql.Eq(schema.FieldLocation, location),
	))
}
