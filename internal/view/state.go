package view

import (
	"strings"

	"github.com/localnerve/jam-build-collectionsdb/internal/store"
)

// State is the interactive view state of one admin table.
type State struct {
	filter   string
	sort     string
	desc     bool
	page     int
	pageSize int
}

// NewState returns a state on page 1 with the given default order.
func NewState(sortField string, desc bool) *State {
	return &State{sort: sortField, desc: desc, page: 1, pageSize: DefaultPageSize}
}

// SetFilter changes the filter text. Any change of text goes back to page 1.
func (s *State) SetFilter(text string) {
	if strings.TrimSpace(text) != strings.TrimSpace(s.filter) {
		s.page = 1
	}
	s.filter = text
}

// SetSort changes the sort field and direction.
func (s *State) SetSort(field string, desc bool) {
	s.sort = field
	s.desc = desc
}

// SetPage moves to page n. Apply clamps it to the pages available.
func (s *State) SetPage(n int) {
	s.page = max(n, 1)
}

// SetPageSize changes the number of rows per page and returns to page 1.
func (s *State) SetPageSize(n int) {
	if n < 1 {
		n = DefaultPageSize
	}
	if n != s.pageSize {
		s.page = 1
	}
	s.pageSize = n
}

// Query returns the query for the current state.
func (s *State) Query() Query {
	return Query{Filter: s.filter, Sort: s.sort, Desc: s.desc, Page: s.page, PageSize: s.pageSize}
}

// Render applies the current state to records and remembers the clamped page.
func (s *State) Render(records []store.Record) Page {
	p := Apply(records, s.Query())
	s.page = p.Page
	return p
}
