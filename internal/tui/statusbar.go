package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// statusText is the left half of the status bar.
func statusText(count int, filterLabel string, refreshing bool) string {
	left := fmt.Sprintf("%d result(s) found", count)
	if filterLabel != "" {
		left += " · " + filterLabel
	}
	if refreshing {
		left += " (refreshing...)"
	}
	return left
}

func renderStatusBar(count int, filterLabel string, width int, searching bool, refreshing bool) string {
	left := " " + statusText(count, filterLabel, refreshing)

	right := " / search  c category  s sort  x clear  ? help "
	if searching {
		right = " esc cancel  enter done "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "
	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Width(width).Render(fmt.Sprintf("%*s", gap, "") + right)
}
