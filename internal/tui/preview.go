package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderPreview(r *row, siteURL string, width, height, scroll int) string {
	if r == nil {
		return lipglossCenter("Select an item", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(r.Title)
	source := previewSourceStyle.Render(strings.Join(nonEmpty(r.Kind.Label(), displayDate(r.Date), r.Category), " · "))

	parts := []string{title, source}
	if r.Meta != "" {
		parts = append(parts, previewMetaStyle.Width(contentWidth).Render(wrapText(r.Meta, contentWidth)))
	}
	if len(r.Tags) > 0 {
		parts = append(parts, previewTagStyle.Render("#"+strings.Join(r.Tags, " #")))
	}

	body := r.Body
	if body == "" {
		body = "(No details available)"
	}
	parts = append(parts, "", previewBodyStyle.Width(contentWidth).Render(wrapText(body, contentWidth)), "")
	parts = append(parts, previewLinkStyle.Width(contentWidth).Render("Open: "+r.publicURL(siteURL)))
	if r.Link != "" {
		parts = append(parts, previewLinkStyle.UnsetMarginTop().Width(contentWidth).Render("Link: "+r.Link))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}

	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if lipgloss.Width(line)+1+lipgloss.Width(w) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
