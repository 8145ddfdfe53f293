// Package richtext edits and cleans the HTML bodies of content items.
//
// Formatting goes through the Editor capability so the admin forms do not
// care which concrete widget produced the markup.
package richtext

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	ErrSelection      = errors.New("selection out of range")
	ErrSplitsTag      = errors.New("selection splits an element")
	ErrLinkURL        = errors.New("link needs an http, https or mailto URL")
	ErrUnknownCommand = errors.New("unknown formatting command")
)

// Command names.
const (
	Bold       = "bold"
	Italic     = "italic"
	Underline  = "underline"
	H1         = "h1"
	H2         = "h2"
	H3         = "h3"
	Paragraph  = "paragraph"
	BulletList = "ul"
	NumberList = "ol"
	Link       = "link"
	Undo       = "undo"
	Redo       = "redo"
)

// Command is one formatting request. Start and End are byte offsets into
// the current content; Start == End == 0 selects the whole document. Value
// carries the URL for Link.
type Command struct {
	Name  string
	Value string
	Start int
	End   int
}

type Editor interface {
	Apply(cmd Command) error
	Content() string
	SetContent(html string)
}

var wrapTags = map[string]string{
	Bold:      "strong",
	Italic:    "em",
	Underline: "u",
	H1:        "h1",
	H2:        "h2",
	H3:        "h3",
	Paragraph: "p",
}

// Buffer is an Editor over an in-memory HTML string with undo history.
type Buffer struct {
	mu       sync.Mutex
	content  string
	undo     []string
	redo     []string
	onChange func(string)
}

// NewBuffer starts a buffer holding content. onChange, if set, is called
// with the new content after every change.
func NewBuffer(content string, onChange func(string)) *Buffer {
	return &Buffer{content: content, onChange: onChange}
}

func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content
}

// SetContent replaces the document. The previous content can be restored
// with Undo.
func (b *Buffer) SetContent(s string) {
	b.mu.Lock()
	changed := b.commit(s)
	b.mu.Unlock()
	if changed {
		b.notify(s)
	}
}

// CanUndo reports whether Undo would change anything.
func (b *Buffer) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.undo) > 0
}

func (b *Buffer) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.redo) > 0
}

func (b *Buffer) commit(s string) bool {
	if s == b.content {
		return false
	}
	b.undo = append(b.undo, b.content)
	b.redo = nil
	b.content = s
	return true
}

func (b *Buffer) notify(s string) {
	if b.onChange != nil {
		b.onChange(s)
	}
}

func (b *Buffer) Apply(cmd Command) error {
	b.mu.Lock()
	next, changed, err := b.apply(cmd)
	b.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if changed {
		b.notify(next)
	}
	return nil
}

func (b *Buffer) apply(cmd Command) (string, bool, error) {
	switch cmd.Name {
	case Undo:
		if len(b.undo) == 0 {
			return b.content, false, nil
		}
		b.redo = append(b.redo, b.content)
		b.content = b.undo[len(b.undo)-1]
		b.undo = b.undo[:len(b.undo)-1]
		return b.content, true, nil
	case Redo:
		if len(b.redo) == 0 {
			return b.content, false, nil
		}
		b.undo = append(b.undo, b.content)
		b.content = b.redo[len(b.redo)-1]
		b.redo = b.redo[:len(b.redo)-1]
		return b.content, true, nil
	}

	start, end, err := selection(b.content, cmd.Start, cmd.End)
	if err != nil {
		return "", false, err
	}
	before, sel, after := b.content[:start], b.content[start:end], b.content[end:]

	var wrapped string
	switch cmd.Name {
	case BulletList, NumberList:
		wrapped = list(cmd.Name, sel)
	case Link:
		href, err := linkURL(cmd.Value)
		if err != nil {
			return "", false, err
		}
		wrapped = `<a href="` + html.EscapeString(href) + `">` + sel + `</a>`
	default:
		tag, ok := wrapTags[cmd.Name]
		if !ok {
			return "", false, ErrUnknownCommand
		}
		wrapped = "<" + tag + ">" + sel + "</" + tag + ">"
	}

	next := before + wrapped + after
	return next, b.commit(next), nil
}

func selection(doc string, start, end int) (int, int, error) {
	if start == 0 && end == 0 {
		return 0, len(doc), nil
	}
	if start < 0 || end > len(doc) || start > end {
		return 0, 0, ErrSelection
	}
	if !runeBoundary(doc, start) || !runeBoundary(doc, end) {
		return 0, 0, ErrSelection
	}
	if !balanced(doc[start:end]) || insideTag(doc, start) || insideTag(doc, end) {
		return 0, 0, ErrSplitsTag
	}
	return start, end, nil
}

// runeBoundary reports whether byte offset i does not cut a UTF-8 sequence.
func runeBoundary(doc string, i int) bool {
	return i == len(doc) || utf8.RuneStart(doc[i])
}

// insideTag reports whether offset i falls between a '<' and its '>'.
func insideTag(doc string, i int) bool {
	open := strings.LastIndexByte(doc[:i], '<')
	if open < 0 {
		return false
	}
	return strings.IndexByte(doc[open:i], '>') < 0
}

var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "wbr": true,
}

// balanced reports whether every element opened in s is closed in s and no
// element closed in s was opened outside it.
func balanced(s string) bool {
	var stack []string
	for {
		i := strings.IndexByte(s, '<')
		if i < 0 {
			return len(stack) == 0
		}
		j := strings.IndexByte(s[i:], '>')
		if j < 0 {
			return false
		}
		tag := s[i+1 : i+j]
		s = s[i+j+1:]

		closing := strings.HasPrefix(tag, "/")
		selfClosing := strings.HasSuffix(tag, "/")
		fields := strings.Fields(strings.Trim(tag, "/"))
		if len(fields) == 0 {
			continue
		}
		name := strings.ToLower(fields[0])
		switch {
		case strings.HasPrefix(name, "!"):
			continue
		case closing:
			if len(stack) == 0 || stack[len(stack)-1] != name {
				return false
			}
			stack = stack[:len(stack)-1]
		case selfClosing || voidElements[name]:
		default:
			stack = append(stack, name)
		}
	}
}

func list(kind, sel string) string {
	var b strings.Builder
	b.WriteString("<" + kind + ">")
	for _, line := range strings.Split(sel, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<li>" + line + "</li>")
	}
	b.WriteString("</" + kind + ">")
	return b.String()
}

func linkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrLinkURL
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return "", ErrLinkURL
		}
	case "mailto":
		if u.Opaque == "" {
			return "", ErrLinkURL
		}
	default:
		return "", ErrLinkURL
	}
	return u.String(), nil
}
