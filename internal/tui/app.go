package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/browser"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/config"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/feed"
)

// Content is what the browser reads. *feed.Source implements it.
type Content interface {
	News(ctx context.Context) ([]content.News, error)
	Projects(ctx context.Context) ([]content.Project, error)
	Publications(ctx context.Context) ([]content.Publication, error)
	FetchAll(ctx context.Context) feed.FetchResult
}

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeHome mode = iota
	modeNormal
	modeSearch
	modeHelp
)

// openURL is swapped out in tests.
var openURL = browser.Open

type App struct {
	cfg    *config.Config
	src    Content
	tabs   []*tab
	active int
	cursor int
	focus  focusPane
	mode   mode

	width  int
	height int

	searchInput textinput.Model
	spinner     spinner.Model

	refreshing    bool
	previewScroll int
	currentDate   string
	err           error
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg    *config.Config
	Source Content
	// Tab opens straight into a collection instead of the home screen.
	Tab content.Kind
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	a := &App{
		cfg:         opts.Cfg,
		src:         opts.Source,
		searchInput: ti,
		spinner:     sp,
		currentDate: time.Now().Format("Jan 2"),
		mode:        modeHome,
	}
	for _, k := range []content.Kind{content.KindNews, content.KindProjects, content.KindPublications} {
		a.tabs = append(a.tabs, newTab(k))
	}
	for i, t := range a.tabs {
		if opts.Tab != "" && t.kind == opts.Tab {
			a.active = i
			a.mode = modeNormal
		}
	}
	return a
}

func (a *App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, len(a.tabs))
	for i, t := range a.tabs {
		cmds[i] = a.loadCmd(t.kind)
	}
	return tea.Batch(cmds...)
}

func (a *App) tab() *tab {
	return a.tabs[a.active]
}

func (a *App) selected() *row {
	rows := a.tab().current.rows
	if a.cursor < len(rows) {
		return &rows[a.cursor]
	}
	return nil
}

// loadCmd reads one collection through the content fetcher.
func (a *App) loadCmd(kind content.Kind) tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msg := tabLoadedMsg{kind: kind}
		switch kind {
		case content.KindNews:
			items, err := src.News(ctx)
			msg.err = err
			if err == nil {
				msg.query = viewer(content.NewsSpec, items, newsRow)
			}
		case content.KindProjects:
			items, err := src.Projects(ctx)
			msg.err = err
			if err == nil {
				msg.query = viewer(content.ProjectSpec, items, projectRow)
			}
		case content.KindPublications:
			items, err := src.Publications(ctx)
			msg.err = err
			if err == nil {
				msg.query = viewer(content.PublicationSpec, items, publicationRow)
			}
		default:
			msg.err = fmt.Errorf("no tab for %s", kind)
		}
		return msg
	}
}

func (a *App) doRefresh() tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res := src.FetchAll(ctx)
		return refreshDoneMsg{counts: res.Counts, errs: res.Errors}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := openURL(url); err != nil {
			return feedErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case tabLoadedMsg:
		for _, t := range a.tabs {
			if t.kind != msg.kind {
				continue
			}
			if msg.err != nil {
				t.err = msg.err
				if !t.loaded {
					a.err = msg.err
				}
				break
			}
			t.setQuery(msg.query)
		}
		a.clampCursor()
		return a, nil

	case feedErrMsg:
		a.err = msg.err
		return a, nil

	case refreshDoneMsg:
		a.refreshing = false
		if len(msg.errs) > 0 {
			a.err = errors.Join(msg.errs...)
		}
		return a, a.Init()

	case spinner.TickMsg:
		if a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) clampCursor() {
	n := len(a.tab().current.rows)
	if a.cursor >= n {
		a.cursor = max(0, n-1)
	}
}

func (a *App) switchTab(i int) {
	if i < 0 || i >= len(a.tabs) {
		return
	}
	a.active = i
	a.cursor = 0
	a.previewScroll = 0
	a.searchInput.SetValue(a.tab().state.Search)
	a.mode = modeNormal
}

// stateChanged resets the cursor after the visible rows were recomputed.
func (a *App) stateChanged() {
	a.cursor = 0
	a.previewScroll = 0
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeHome:
		return a.handleHomeKey(msg)
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.tab().current.rows)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
		return a, nil
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
		return a, nil
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "1", "2", "3":
		a.switchTab(int(msg.String()[0] - '1'))
		return a, nil
	case "right", "l":
		a.switchTab((a.active + 1) % len(a.tabs))
		return a, nil
	case "left":
		a.switchTab((a.active + len(a.tabs) - 1) % len(a.tabs))
		return a, nil
	case "o", "enter":
		if r := a.selected(); r != nil {
			return a, openBrowserCmd(r.publicURL(a.cfg.Site.URL))
		}
		return a, nil
	case "/":
		a.mode = modeSearch
		a.searchInput.SetValue(a.tab().state.Search)
		a.searchInput.Focus()
		return a, textinput.Blink
	case "c":
		a.tab().cycleCategory()
		a.stateChanged()
		return a, nil
	case "s":
		a.tab().cycleSort()
		a.stateChanged()
		return a, nil
	case "x":
		a.tab().clear()
		a.searchInput.SetValue("")
		a.stateChanged()
		return a, nil
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(a.doRefresh(), a.spinner.Tick)
		}
		return a, nil
	case "h":
		a.mode = modeHome
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "1", "2", "3":
		a.switchTab(int(msg.String()[0] - '1'))
		return a, nil
	case "enter", "e":
		a.switchTab(a.active)
		return a, nil
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(a.doRefresh(), a.spinner.Tick)
		}
		return a, nil
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

// handleSearchKey filters as the user types; the collection is in memory.
func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		a.tab().setSearch("")
		a.stateChanged()
		return a, nil
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	if v := a.searchInput.Value(); v != a.tab().state.Search {
		a.tab().setSearch(v)
		a.stateChanged()
	}
	return a, cmd
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) siteName() string {
	if a.cfg != nil && a.cfg.Site.Name != "" {
		return a.cfg.Site.Name
	}
	return "portfolio"
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  " + a.siteName())
	}

	if a.mode == modeHome {
		return a.withBottomBar(renderHomeScreen(a.width, a.height, a.siteName(), a.cfg.Site.Tagline, a.tabs), "1-3 open  r refresh  q quit")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  q quit")
	}

	headerHeight := 1
	tabsHeight := 1
	filterHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - tabsHeight - filterHeight - statusHeight - 4 // borders

	listWidth := int(float64(a.width) * 0.35)
	previewWidth := a.width - listWidth - 1 // gap

	if contentHeight < 3 {
		contentHeight = 3
	}

	headerLeft := headerStyle.Render(a.siteName())
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	t := a.tab()
	tabs := renderTabs(a.tabs, a.active, a.width)
	filter := renderFilterLine(t.state, a.width)
	if a.mode == modeSearch {
		filter = a.searchInput.View()
	}

	innerListW := listWidth - 4 // border + padding
	listContent := renderList(t.current.rows, a.cursor, contentHeight, innerListW)
	if !t.loaded {
		listContent = lipglossCenter("Loading...", innerListW, contentHeight)
	}

	var listPane string
	if a.focus == focusList {
		listPane = listPaneActiveStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	} else {
		listPane = listPaneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	}

	innerPreviewW := previewWidth - 4
	previewContent := renderPreview(a.selected(), a.cfg.Site.URL, innerPreviewW, contentHeight, a.previewScroll)

	var previewPane string
	if a.focus == focusPreview {
		previewPane = previewPaneActiveStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	} else {
		previewPane = previewPaneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	status := renderStatusBar(t.current.count, filterLabel(t.state), a.width, a.mode == modeSearch, a.refreshing)
	if a.refreshing {
		status = a.spinner.View() + " " + status
	}
	if a.err != nil {
		status = lipgloss.NewStyle().Foreground(colorAccent).Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, tabs, filter, content, status)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render(a.siteName())
	dim := helpDimStyle

	help := title + dim.Render(" · Keyboard Shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Move through the list\n" +
		"  1-3, ←/→     Switch collection\n" +
		"  tab           Switch focus between list and preview\n\n" +
		dim.Render("Query") + "\n" +
		"  /             Search (esc clears)\n" +
		"  c             Next category\n" +
		"  s             Next sort order\n" +
		"  x             Clear filters\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open on the site\n" +
		"  r             Refresh from the API\n\n" +
		dim.Render("General") + "\n" +
		"  h             Home screen\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
