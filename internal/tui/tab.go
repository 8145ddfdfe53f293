package tui

import (
	"slices"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
)

// view is what one query state of a collection shows.
type view struct {
	rows       []row
	count      int
	categories []string
}

// viewer closes over a loaded collection and answers query states against it.
func viewer[T any](spec query.Spec[T], items []T, toRow func(T) row) func(query.State) view {
	cats := query.DeriveCategories(spec, items)
	return func(st query.State) view {
		res := query.Apply(spec, items, st)
		rows := make([]row, len(res.Visible))
		for i, it := range res.Visible {
			rows[i] = toRow(it)
		}
		return view{rows: rows, count: res.Count, categories: cats}
	}
}

// tab is one collection with its own search, category and sort selection.
type tab struct {
	kind    content.Kind
	state   query.State
	query   func(query.State) view
	current view
	loaded  bool
	err     error
}

func newTab(kind content.Kind) *tab {
	return &tab{kind: kind, state: query.DefaultState()}
}

// apply recomputes the visible rows. A category that no longer exists after
// a reload falls back to all.
func (t *tab) apply() {
	if t.query == nil {
		t.current = view{}
		return
	}
	t.current = t.query(t.state)
	if t.state.Category != query.AllCategories && !slices.Contains(t.current.categories, t.state.Category) {
		t.state.Category = query.AllCategories
		t.current = t.query(t.state)
	}
}

func (t *tab) setQuery(q func(query.State) view) {
	t.query = q
	t.loaded = true
	t.err = nil
	t.apply()
}

func (t *tab) setSearch(s string) {
	t.state.Search = s
	t.apply()
}

// cycleCategory steps through "all" followed by the derived categories.
func (t *tab) cycleCategory() {
	options := append([]string{query.AllCategories}, t.current.categories...)
	t.state.Category = next(options, t.state.Category)
	t.apply()
}

func (t *tab) cycleSort() {
	keys := query.SortKeys()
	options := make([]string, len(keys))
	for i, k := range keys {
		options[i] = string(k.Key)
	}
	t.state.Sort = query.SortKey(next(options, string(t.state.Sort)))
	t.apply()
}

func (t *tab) clear() {
	t.state = t.state.Clear()
	t.apply()
}

func next(options []string, cur string) string {
	i := slices.Index(options, cur)
	return options[(i+1)%len(options)]
}

func sortLabel(k query.SortKey) string {
	for _, opt := range query.SortKeys() {
		if opt.Key == k {
			return opt.Label
		}
	}
	return string(k)
}
