package paginate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	ID         int
	Identifier string
	Location   string
}

func recSource(records ...rec) *MemorySource[rec] {
	return NewMemorySource(records, map[string]func(a, b rec) int{
		"id":         func(a, b rec) int { return cmp.Compare(a.ID, b.ID) },
		"identifier": func(a, b rec) int { return cmp.Compare(a.Identifier, b.Identifier) },
		"location":   func(a, b rec) int { return cmp.Compare(a.Location, b.Location) },
	})
}

func scenarioSource() *MemorySource[rec] {
	return recSource(
		rec{ID: 1, Identifier: "A", Location: "L1"},
		rec{ID: 2, Identifier: "B", Location: "L1"},
		rec{ID: 3, Identifier: "C", Location: "L2"},
	)
}

func inLocation(loc string) Filter[rec] {
	return func(r rec) bool { return r.Location == loc }
}

func TestGetPage_OffsetOneLimitOne(t *testing.T) {
	page, err := GetPage[rec](context.Background(), scenarioSource(),
		Spec{OrderBy: "identifier", Order: Ascending, Offset: 1, Limit: 1}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "B", page.Data[0].Identifier)
	assert.Equal(t, "L1", page.Data[0].Location)
}

func TestGetPage_FilterByLocation(t *testing.T) {
	page, err := GetPage[rec](context.Background(), scenarioSource(),
		Spec{OrderBy: "identifier", Order: Ascending, Offset: 0, Limit: 10}, inLocation("L1"))
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "A", page.Data[0].Identifier)
	assert.Equal(t, "B", page.Data[1].Identifier)
}

func TestGetPage_AllRecordsInOrder(t *testing.T) {
	src := recSource(
		rec{ID: 1, Identifier: "d"},
		rec{ID: 2, Identifier: "a"},
		rec{ID: 3, Identifier: "c"},
		rec{ID: 4, Identifier: "b"},
	)

	page, err := GetPage[rec](context.Background(), src, Spec{OrderBy: "identifier", Limit: 100}, nil)
	require.NoError(t, err)

	got := make([]string, len(page.Data))
	for i, r := range page.Data {
		got[i] = r.Identifier
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Equal(t, 4, page.Total)
}

func TestGetPage_WindowLengthProperty(t *testing.T) {
	var records []rec
	for i := 0; i < 7; i++ {
		records = append(records, rec{ID: i + 1, Identifier: fmt.Sprintf("id-%d", i%3), Location: fmt.Sprintf("L%d", i%2)})
	}
	src := recSource(records...)

	filters := map[string]Filter[rec]{
		"none": nil,
		"L0":   inLocation("L0"),
		"L1":   inLocation("L1"),
	}

	for name, filter := range filters {
		for offset := 0; offset <= 9; offset++ {
			for limit := 0; limit <= 9; limit++ {
				page, err := GetPage[rec](context.Background(), src,
					Spec{OrderBy: "identifier", Offset: offset, Limit: limit}, filter)
				require.NoError(t, err)

				want := min(limit, max(0, page.Total-offset))
				assert.Len(t, page.Data, want, "filter=%s offset=%d limit=%d", name, offset, limit)
				assert.NotNil(t, page.Data)
			}
		}
	}
}

func TestGetPage_TotalIgnoresWindow(t *testing.T) {
	src := scenarioSource()

	for _, spec := range []Spec{
		{OrderBy: "id", Offset: 0, Limit: 0},
		{OrderBy: "id", Offset: 10, Limit: 5},
		{OrderBy: "id", Offset: 3, Limit: 1},
	} {
		page, err := GetPage[rec](context.Background(), src, spec, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Empty(t, page.Data)

		page, err = GetPage[rec](context.Background(), src, spec, inLocation("L1"))
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
		assert.Empty(t, page.Data)
	}
}

func TestGetPage_DescendingIsExactReverse(t *testing.T) {
	src := recSource(
		rec{ID: 1, Identifier: "b", Location: "L1"},
		rec{ID: 2, Identifier: "a", Location: "L1"},
		rec{ID: 3, Identifier: "b", Location: "L2"},
		rec{ID: 4, Identifier: "c", Location: "L2"},
		rec{ID: 5, Identifier: "a", Location: "L3"},
	)

	for _, field := range []string{"id", "identifier", "location"} {
		asc, err := GetPage[rec](context.Background(), src, Spec{OrderBy: field, Order: Ascending, Limit: 10}, nil)
		require.NoError(t, err)
		desc, err := GetPage[rec](context.Background(), src, Spec{OrderBy: field, Order: Descending, Limit: 10}, nil)
		require.NoError(t, err)

		reversed := slices.Clone(asc.Data)
		slices.Reverse(reversed)
		assert.Equal(t, reversed, desc.Data, field)
		assert.Equal(t, asc.Total, desc.Total, field)
	}
}

func TestGetPage_NoMatches(t *testing.T) {
	src := scenarioSource()
	for offset := 0; offset < 4; offset++ {
		page, err := GetPage[rec](context.Background(), src,
			Spec{OrderBy: "identifier", Offset: offset, Limit: 10}, inLocation("nowhere"))
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.Empty(t, page.Data)
	}
}

func TestGetPage_EmptyCollection(t *testing.T) {
	page, err := GetPage[rec](context.Background(), recSource(), Spec{OrderBy: "id", Limit: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
}

func TestGetPage_InvalidSpec(t *testing.T) {
	src := scenarioSource()

	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"negative offset", Spec{OrderBy: "id", Offset: -1, Limit: 1}, ErrInvalidSpec},
		{"negative limit", Spec{OrderBy: "id", Limit: -1}, ErrInvalidSpec},
		{"unknown order", Spec{OrderBy: "id", Order: Order(7), Limit: 1}, ErrInvalidSpec},
		{"missing order by", Spec{Limit: 1}, ErrInvalidSpec},
		{"unindexed field", Spec{OrderBy: "details", Limit: 1}, ErrUnknownIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetPage[rec](context.Background(), src, tt.spec, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

// spySource records which Source methods GetPage used.
type spySource struct {
	*MemorySource[rec]
	counts, ranges, walks int
	err                   error
}

func (s *spySource) Count(ctx context.Context) (int, error) {
	s.counts++
	if s.err != nil {
		return 0, s.err
	}
	return s.MemorySource.Count(ctx)
}

func (s *spySource) Range(ctx context.Context, orderBy string, desc bool, offset, limit int) ([]rec, error) {
	s.ranges++
	return s.MemorySource.Range(ctx, orderBy, desc, offset, limit)
}

func (s *spySource) Each(ctx context.Context, orderBy string, desc bool, fn func(rec) bool) error {
	s.walks++
	if s.err != nil {
		return s.err
	}
	return s.MemorySource.Each(ctx, orderBy, desc, fn)
}

func TestGetPage_UnfilteredUsesCountAndRange(t *testing.T) {
	spy := &spySource{MemorySource: scenarioSource()}

	_, err := GetPage[rec](context.Background(), spy, Spec{OrderBy: "id", Limit: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, spy.counts)
	assert.Equal(t, 1, spy.ranges)
	assert.Equal(t, 0, spy.walks)

	// limit 0 needs the count only
	_, err = GetPage[rec](context.Background(), spy, Spec{OrderBy: "id", Limit: 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, spy.ranges)
}

func TestGetPage_FilteredWalksOnce(t *testing.T) {
	spy := &spySource{MemorySource: scenarioSource()}

	_, err := GetPage[rec](context.Background(), spy, Spec{OrderBy: "id", Limit: 2}, inLocation("L2"))
	require.NoError(t, err)
	assert.Equal(t, 0, spy.counts)
	assert.Equal(t, 0, spy.ranges)
	assert.Equal(t, 1, spy.walks)
}

func TestGetPage_SourceErrorsPropagateUnchanged(t *testing.T) {
	boom := errors.New("disk I/O error")
	spy := &spySource{MemorySource: scenarioSource(), err: boom}

	_, err := GetPage[rec](context.Background(), spy, Spec{OrderBy: "id", Limit: 2}, nil)
	assert.Same(t, boom, err)

	_, err = GetPage[rec](context.Background(), spy, Spec{OrderBy: "id", Limit: 2}, inLocation("L1"))
	assert.Same(t, boom, err)
}

func TestParseOrder(t *testing.T) {
	for in, want := range map[string]Order{
		"asc": Ascending, "ASCENDING": Ascending, "desc": Descending, "Descending": Descending,
	} {
		got, err := ParseOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOrder("sideways")
	assert.ErrorIs(t, err, ErrInvalidSpec)
	assert.Equal(t, "descending", Descending.String())
}

func TestFilterCombinators(t *testing.T) {
	assert.Nil(t, And[rec]())
	assert.Nil(t, And[rec](nil, nil))

	both := And(inLocation("L1"), func(r rec) bool { return r.Identifier == "B" })
	assert.True(t, both(rec{Identifier: "B", Location: "L1"}))
	assert.False(t, both(rec{Identifier: "A", Location: "L1"}))

	notL1 := Not(inLocation("L1"))
	assert.True(t, notL1(rec{Location: "L2"}))
	assert.False(t, Not[rec](nil)(rec{}))
}
