package view

import (
	"fmt"
	"testing"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, fields map[string]any) store.Record {
	return store.Record{ID: id, Fields: fields}
}

func ids(records []store.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestFilterIgnoresCase(t *testing.T) {
	records := []store.Record{
		rec("1", map[string]any{"name": "Amit Gupta", "city": "Indore"}),
		rec("2", map[string]any{"name": "Neha Sharma", "city": "Pune"}),
	}

	page := Apply(records, Query{Filter: "gupta"})
	assert.Equal(t, []string{"1"}, ids(page.Records))

	page = Apply(records, Query{Filter: "GUPTA"})
	assert.Equal(t, []string{"1"}, ids(page.Records))
}

func TestFilterIsSubsequence(t *testing.T) {
	records := []store.Record{
		rec("a", map[string]any{"name": "Ravi", "city": "Delhi"}),
		rec("b", map[string]any{"name": "Sunita", "city": "Mumbai"}),
		rec("c", map[string]any{"name": "Vikram", "city": "New Delhi"}),
	}
	got := Filter(records, "delhi")
	assert.Equal(t, []string{"a", "c"}, ids(got))
	assert.Len(t, Filter(records, ""), 3)
}

func TestFilterSearchesNestedValuesNotIDs(t *testing.T) {
	records := []store.Record{
		rec("pan-holder", map[string]any{
			"panCard": map[string]any{"fileName": "scan.png", "url": "u", "storagePath": "p"},
		}),
		rec("x", map[string]any{"experience": 3.5}),
	}
	assert.Equal(t, []string{"pan-holder"}, ids(Filter(records, "SCAN")))
	assert.Empty(t, Filter(records, "holder"))
	assert.Equal(t, []string{"x"}, ids(Filter(records, "3.5")))
}

func TestSortTimestampsDescending(t *testing.T) {
	records := []store.Record{
		rec("old", map[string]any{"timestamp": float64(1000)}),
		rec("new", map[string]any{"timestamp": float64(3000)}),
		rec("mid", map[string]any{"timestamp": float64(2000)}),
	}
	page := Apply(records, Query{Sort: "timestamp", Desc: true})
	assert.Equal(t, []string{"new", "mid", "old"}, ids(page.Records))
}

func TestSortMixedValues(t *testing.T) {
	records := []store.Record{
		rec("str-b", map[string]any{"v": "banana"}),
		rec("num-10", map[string]any{"v": float64(10)}),
		rec("missing", map[string]any{}),
		rec("str-a", map[string]any{"v": "Apple"}),
		rec("num-9", map[string]any{"v": float64(9)}),
	}
	Sort(records, "v", false)
	assert.Equal(t, []string{"missing", "num-9", "num-10", "str-a", "str-b"}, ids(records))

	Sort(records, "v", true)
	assert.Equal(t, []string{"str-b", "str-a", "num-10", "num-9", "missing"}, ids(records))
}

func TestSortRFC3339Timestamps(t *testing.T) {
	records := []store.Record{
		rec("b", map[string]any{"date": "2024-03-01T10:00:00+05:30"}),
		rec("a", map[string]any{"date": "2024-03-01T04:00:00Z"}),
	}
	Sort(records, "date", false)
	// 10:00 IST is 04:30 UTC, after 04:00 UTC
	assert.Equal(t, []string{"a", "b"}, ids(records))
}

func TestSortTiesBrokenByID(t *testing.T) {
	records := []store.Record{
		rec("c", map[string]any{"city": "Pune"}),
		rec("a", map[string]any{"city": "pune"}),
		rec("b", map[string]any{"city": "PUNE"}),
	}
	Sort(records, "city", false)
	assert.Equal(t, []string{"a", "b", "c"}, ids(records))
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	records := []store.Record{
		rec("b", map[string]any{"n": float64(2)}),
		rec("a", map[string]any{"n": float64(1)}),
	}
	Apply(records, Query{Sort: "n"})
	assert.Equal(t, []string{"b", "a"}, ids(records))
}

func TestPaginateClampsPage(t *testing.T) {
	records := make([]store.Record, 25)
	for i := range records {
		records[i] = rec(fmt.Sprintf("r%02d", i), map[string]any{})
	}

	tests := []struct {
		name      string
		page      int
		wantPage  int
		wantCount int
	}{
		{"first", 1, 1, 10},
		{"last partial", 3, 3, 5},
		{"zero", 0, 1, 10},
		{"negative", -4, 1, 10},
		{"beyond", 9, 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(records, tt.page, 0)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Len(t, p.Records, tt.wantCount)
			assert.Equal(t, 3, p.TotalPages)
			assert.Equal(t, DefaultPageSize, p.PageSize)
		})
	}

	empty := Paginate(nil, 4, 10)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, 1, empty.TotalPages)
	assert.Empty(t, empty.Records)
}

func TestFilterChangeResetsPage(t *testing.T) {
	records := make([]store.Record, 25)
	for i := range records {
		city := "Indore"
		if i%5 == 0 {
			city = "Bhopal"
		}
		records[i] = rec(fmt.Sprintf("r%02d", i), map[string]any{"city": city, "timestamp": float64(i)})
	}

	s := NewState("timestamp", true)
	s.SetPage(3)
	p := s.Render(records)
	require.Equal(t, 3, p.Page)
	require.Len(t, p.Records, 5)

	s.SetFilter("bhopal")
	p = s.Render(records)
	assert.Equal(t, 1, p.Page)
	assert.Len(t, p.Records, 5)
	assert.Equal(t, 5, p.Matched)
	assert.Equal(t, 25, p.Total)

	// Same text does not move the page
	s.SetPage(2)
	s.SetFilter("bhopal")
	assert.Equal(t, 2, s.Query().Page)
}

func TestStateRenderRemembersClampedPage(t *testing.T) {
	records := []store.Record{rec("a", map[string]any{})}
	s := NewState("", false)
	s.SetPage(7)
	p := s.Render(records)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, s.Query().Page)

	s.SetPageSize(25)
	assert.Equal(t, 25, s.Query().PageSize)
}
