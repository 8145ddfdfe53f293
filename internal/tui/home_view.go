package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderHomeScreen(width, height int, siteName, tagline string, tabs []*tab) string {
	logoStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorText)
	dimStyle := lipgloss.NewStyle().Foreground(colorDim)

	var lines []string
	lines = append(lines, logoStyle.Render(strings.ToUpper(siteName)))
	if tagline != "" {
		lines = append(lines, dimStyle.Render(tagline))
	}
	lines = append(lines, "", "")

	for i, t := range tabs {
		count := dimStyle.Render("loading...")
		switch {
		case t.err != nil:
			count = dimStyle.Render("unavailable")
		case t.loaded:
			count = dimStyle.Render(fmt.Sprintf("%d item(s)", t.current.count))
		}
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			keyStyle.Render(fmt.Sprintf("[%d]", i+1)), labelStyle.Render(fmt.Sprintf("%-14s", t.kind.Label())), count))
	}
	lines = append(lines, "")
	lines = append(lines, keyStyle.Render("[r]")+"  "+labelStyle.Render("Refresh"))
	lines = append(lines, keyStyle.Render("[q]")+"  "+labelStyle.Render("Quit"))

	content := strings.Join(lines, "\n")
	contentHeight := strings.Count(content, "\n") + 1

	topPad := (height - contentHeight) / 3
	if topPad < 0 {
		topPad = 0
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		strings.Repeat("\n", topPad)+content)
}
