package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/query"
)

// renderTabs draws the collection tabs, stopping when the row would exceed
// width.
func renderTabs(tabs []*tab, active int, width int) string {
	sep := tabSeparatorStyle.Render(" · ")

	var row string
	for i, t := range tabs {
		style := tabInactiveStyle
		if i == active {
			style = tabActiveStyle
		}
		label := fmt.Sprintf("%d %s", i+1, t.kind.Label())
		if t.loaded {
			label += fmt.Sprintf(" (%d)", t.current.count)
		}
		part := style.Render(label)

		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}

// filterLabel summarises the non-default parts of a query state, or "" when
// nothing is filtered.
func filterLabel(st query.State) string {
	var parts []string
	if q := strings.TrimSpace(st.Search); q != "" {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	if st.Category != "" && st.Category != query.AllCategories {
		parts = append(parts, st.Category)
	}
	if st.Sort != "" && st.Sort != query.SortDateDesc {
		parts = append(parts, sortLabel(st.Sort))
	}
	return strings.Join(parts, " · ")
}

// renderFilterLine shows the category and sort selection of the active tab.
func renderFilterLine(st query.State, width int) string {
	category := st.Category
	if category == "" {
		category = query.AllCategories
	}
	line := filterLabelStyle.Render("category ") + filterValueStyle.Render(category) +
		filterLabelStyle.Render("   sort ") + filterValueStyle.Render(sortLabel(st.Sort))
	if !st.IsDefault() {
		line += filterLabelStyle.Render("   x clear")
	}
	return lipgloss.NewStyle().Width(width).PaddingLeft(1).Render(line)
}
