// Package query filters and orders in-memory content collections.
//
// One generic engine serves every content type. A Spec tells it which fields
// are searchable and which category values an item carries. Apply is pure: it
// never mutates its input and never fails, so pages can re-run it on every
// change to the collection or the query state.
package query

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AllCategories is the category selection that disables category filtering.
const AllCategories = "all"

// SortKey selects the ordering applied by Apply.
type SortKey string

const (
	SortDateDesc  SortKey = "date-desc"
	SortDateAsc   SortKey = "date-asc"
	SortTitleAsc  SortKey = "title-asc"
	SortTitleDesc SortKey = "title-desc"
)

// SortOption pairs a sort key with its label for select controls.
type SortOption struct {
	Key   SortKey
	Label string
}

// SortKeys returns the supported orderings in the order a select control
// lists them.
func SortKeys() []SortOption {
	return []SortOption{
		{SortDateDesc, "Newest first"},
		{SortDateAsc, "Oldest first"},
		{SortTitleAsc, "Title A–Z"},
		{SortTitleDesc, "Title Z–A"},
	}
}

// ParseSortKey maps a raw value onto a known key, falling back to the default.
func ParseSortKey(s string) SortKey {
	k := SortKey(strings.TrimSpace(s))
	if k.Valid() {
		return k
	}
	return SortDateDesc
}

func (k SortKey) Valid() bool {
	switch k {
	case SortDateDesc, SortDateAsc, SortTitleAsc, SortTitleDesc:
		return true
	}
	return false
}

// State is the search/category/sort selection owned by a page view.
type State struct {
	Search   string
	Category string
	Sort     SortKey
}

// DefaultState is the state of a fresh page view.
func DefaultState() State {
	return State{Search: "", Category: AllCategories, Sort: SortDateDesc}
}

// Clear resets every field to its default.
func (s State) Clear() State {
	return DefaultState()
}

// IsDefault reports whether no filter or non-default ordering is active.
func (s State) IsDefault() bool {
	return strings.TrimSpace(s.Search) == "" &&
		(s.Category == "" || s.Category == AllCategories) &&
		(s.Sort == "" || s.Sort == SortDateDesc)
}

// Spec describes how the engine reads one content type.
//
// Categories returns every category value the item belongs to. Single-valued
// types return their one category; tagged types return their tags. Membership
// is "the selection equals one of these values", which is exact match for the
// former and containment for the latter.
type Spec[T any] struct {
	Fields     func(T) []string
	Categories func(T) []string
	Title      func(T) string
	Date       func(T) string
}

// Result is the visible slice of a collection and its size.
type Result[T any] struct {
	Visible []T
	Count   int
}

// DeriveCategories returns the distinct non-empty category values present in
// items, sorted ascending.
func DeriveCategories[T any](spec Spec[T], items []T) []string {
	out := []string{}
	if spec.Categories == nil {
		return out
	}
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, c := range spec.Categories(item) {
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	slices.Sort(out)
	return out
}

// ValidCategory reports whether category is "all" or present in items.
func ValidCategory[T any](spec Spec[T], items []T, category string) bool {
	if category == AllCategories {
		return true
	}
	return slices.Contains(DeriveCategories(spec, items), category)
}

// Apply runs the search, category and sort stages over items.
func Apply[T any](spec Spec[T], items []T, state State) Result[T] {
	// Whitespace-only searches are skipped; otherwise the query is used as
	// typed, spaces included.
	q := state.Search
	if strings.TrimSpace(q) == "" {
		q = ""
	}
	q = strings.ToLower(q)
	category := state.Category
	if category == "" {
		category = AllCategories
	}

	visible := make([]T, 0, len(items))
	for _, item := range items {
		if q != "" && !matchesSearch(spec, item, q) {
			continue
		}
		if category != AllCategories && !inCategory(spec, item, category) {
			continue
		}
		visible = append(visible, item)
	}

	sortItems(spec, visible, state.Sort)
	return Result[T]{Visible: visible, Count: len(visible)}
}

func matchesSearch[T any](spec Spec[T], item T, q string) bool {
	if spec.Fields == nil {
		return false
	}
	for _, f := range spec.Fields(item) {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func inCategory[T any](spec Spec[T], item T, category string) bool {
	if spec.Categories == nil {
		return false
	}
	return slices.Contains(spec.Categories(item), category)
}

type sortEntry[T any] struct {
	item   T
	date   time.Time
	hasDay bool
	title  string
}

func sortItems[T any](spec Spec[T], items []T, key SortKey) {
	if len(items) < 2 || !key.Valid() {
		return
	}

	entries := make([]sortEntry[T], len(items))
	for i, item := range items {
		e := sortEntry[T]{item: item}
		if spec.Date != nil {
			e.date, e.hasDay = ParseDate(spec.Date(item))
		}
		if spec.Title != nil {
			e.title = spec.Title(item)
		}
		entries[i] = e
	}

	var cmp func(a, b sortEntry[T]) int
	switch key {
	case SortDateDesc:
		cmp = func(a, b sortEntry[T]) int { return compareDates(b, a) }
	case SortDateAsc:
		cmp = compareDates[T]
	case SortTitleAsc, SortTitleDesc:
		// Collators keep internal buffers and are not safe to share.
		// Default strength is tertiary: case and accents still order titles.
		col := collate.New(language.English)
		if key == SortTitleAsc {
			cmp = func(a, b sortEntry[T]) int { return col.CompareString(a.title, b.title) }
		} else {
			cmp = func(a, b sortEntry[T]) int { return col.CompareString(b.title, a.title) }
		}
	}

	slices.SortStableFunc(entries, cmp)
	for i := range entries {
		items[i] = entries[i].item
	}
}

// compareDates orders ascending; undated entries are the oldest.
func compareDates[T any](a, b sortEntry[T]) int {
	switch {
	case !a.hasDay && !b.hasDay:
		return 0
	case !a.hasDay:
		return -1
	case !b.hasDay:
		return 1
	}
	return a.date.Compare(b.date)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate parses the ISO-style date strings the content API emits.
// Date-only values are taken as UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
