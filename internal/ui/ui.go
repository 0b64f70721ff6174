package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/player"
	"github.com/desertthunder/streamgrid/internal/registry"
	"github.com/desertthunder/streamgrid/internal/session"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	EntryListView ViewState = iota
	EditView
)

// Suggester is the part of the channel search the editor drives.
type Suggester interface {
	Schedule(entryID, text string)
	Select(entryID, value string) (models.StreamEntry, error)
	Cancel(entryID string)
	Suggestions(entryID string) []string
}

// Options configures a [Model].
type Options struct {
	Registry   *registry.Registry
	Suggester  Suggester
	Feed       *Feed
	Session    session.Snapshot
	ParentHost string
	// Open launches a URL; defaults to [shared.OpenBrowser].
	Open func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	reg       *registry.Registry
	suggester Suggester
	feed      *Feed
	open      func(string) error
	parent    string

	width       int
	height      int
	layout      player.Layout
	entries     list.Model
	input       textinput.Model
	editing     string
	suggestions map[string][]string
	cursor      int
	session     session.Snapshot
	status      string
	err         error
	help        help.Model
	keys        keyMap
}

// NewModel creates a new TUI model over the shared registry.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 64

	m := &Model{
		ctx:         ctx,
		view:        EntryListView,
		reg:         opts.Registry,
		suggester:   opts.Suggester,
		feed:        opts.Feed,
		open:        opts.Open,
		parent:      opts.ParentHost,
		input:       input,
		suggestions: make(map[string][]string),
		session:     opts.Session,
		help:        help.New(),
		keys:        newKeyMap(),
	}
	if m.open == nil {
		m.open = shared.OpenBrowser
	}
	if m.parent == "" {
		m.parent = "localhost"
	}

	m.entries = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.entries.Title = "Streams"
	m.entries.SetShowHelp(false)
	m.entries.SetFilteringEnabled(false)
	m.entries.DisableQuitKeybindings()
	m.refresh()
	return m
}

// Init starts draining the feed.
func (m *Model) Init() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return m.feed.next()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.entries.SetSize(msg.Width-4, msg.Height-10)
		return m, nil

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		switch m.view {
		case EntryListView:
			return m.handleListKeys(msg)
		case EditView:
			return m.handleEditKeys(msg)
		}
	}

	var cmd tea.Cmd
	if m.view == EditView {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.entries, cmd = m.entries.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch m.view {
	case EntryListView:
		b.WriteString(m.renderList())
	case EditView:
		b.WriteString(m.renderEdit())
	}

	if m.err != nil {
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	} else if m.status != "" {
		b.WriteString("\n" + styles.ok.Render(m.status))
	}
	return b.String()
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSuggestions:
		data := msg.data.(suggestionsData)
		if len(data.suggestions) == 0 {
			delete(m.suggestions, data.entryID)
		} else {
			m.suggestions[data.entryID] = data.suggestions
		}
		if data.entryID == m.editing {
			m.cursor = 0
		}
	case MsgSession:
		m.session = msg.data.(session.Snapshot)
	case MsgFeedClosed:
		return m, nil
	}
	if m.feed == nil {
		return m, nil
	}
	return m, m.feed.next()
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err, m.status = nil, ""

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.edit):
		if entry, ok := m.selected(); ok {
			return m, m.startEdit(entry)
		}
		return m, nil
	case key.Matches(msg, m.keys.add):
		entry := m.reg.Add(models.PlatformTwitch, "")
		m.refresh()
		m.entries.Select(len(m.layout.Tiles) - 1)
		return m, m.startEdit(entry)
	case key.Matches(msg, m.keys.remove):
		if entry, ok := m.selected(); ok {
			if err := m.reg.Remove(entry.ID); err != nil {
				m.err = err
				return m, nil
			}
			m.suggester.Cancel(entry.ID)
			delete(m.suggestions, entry.ID)
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.platform):
		if entry, ok := m.selected(); ok {
			next := nextPlatform(entry.Platform)
			if _, err := m.reg.Update(entry.ID, registry.FieldPlatform, string(next)); err != nil {
				m.err = err
				return m, nil
			}
			if next != models.PlatformTwitch {
				m.suggester.Cancel(entry.ID)
			}
			m.refresh()
		}
		return m, nil
	case key.Matches(msg, m.keys.open):
		if idx := m.entries.Index(); idx >= 0 && idx < len(m.layout.Tiles) {
			tile := m.layout.Tiles[idx]
			if tile.URL == "" {
				m.status = tile.Prompt
				return m, nil
			}
			if err := m.open(tile.URL); err != nil {
				m.err = err
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m *Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	choices := m.suggestions[m.editing]

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.stopEdit()
		return m, nil
	case tea.KeyEnter:
		if len(choices) > 0 {
			m.accept(choices[m.cursor])
		}
		m.stopEdit()
		return m, nil
	case tea.KeyTab:
		if len(choices) > 0 {
			m.accept(choices[m.cursor])
		}
		return m, nil
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before {
		m.setUsername(value)
	}
	return m, cmd
}

func (m *Model) startEdit(entry models.StreamEntry) tea.Cmd {
	m.view = EditView
	m.editing = entry.ID
	m.cursor = 0
	m.input.SetValue(entry.Username)
	m.input.Placeholder = player.Placeholder(entry.Platform)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) stopEdit() {
	if m.editing != "" {
		m.suggester.Cancel(m.editing)
		delete(m.suggestions, m.editing)
	}
	m.input.Blur()
	m.editing = ""
	m.view = EntryListView
	m.refresh()
}

func (m *Model) setUsername(value string) {
	entry, err := m.reg.SetUsername(m.editing, value)
	if err != nil {
		m.err = err
		return
	}
	if entry.Platform == models.PlatformTwitch {
		m.suggester.Schedule(entry.ID, value)
	}
	m.refresh()
}

func (m *Model) accept(value string) {
	entry, err := m.suggester.Select(m.editing, value)
	if err != nil {
		m.err = err
		return
	}
	delete(m.suggestions, m.editing)
	m.cursor = 0
	m.input.SetValue(entry.Username)
	m.input.CursorEnd()
	m.refresh()
}

// refresh rebuilds the layout and list items from the registry, keeping the selection in range.
func (m *Model) refresh() {
	idx := m.entries.Index()
	m.layout = player.BuildLayout(m.reg.List(), m.parent)
	m.entries.SetItems(tileItems(m.layout))
	if idx >= len(m.layout.Tiles) {
		idx = len(m.layout.Tiles) - 1
	}
	m.entries.Select(max(idx, 0))
}

func (m *Model) selected() (models.StreamEntry, bool) {
	item, ok := m.entries.SelectedItem().(entryItem)
	if !ok {
		return models.StreamEntry{}, false
	}
	return item.tile.Entry, true
}

func nextPlatform(p models.Platform) models.Platform {
	all := models.Platforms()
	for i, candidate := range all {
		if candidate == p {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func (m *Model) renderHeader() string {
	title := styles.title.Render("streamgrid")

	var who string
	switch {
	case m.session.SignedIn && m.session.Profile != nil:
		who = styles.ok.Render("signed in as " + m.session.Profile.DisplayName)
	default:
		who = styles.help.Render("not signed in")
	}
	if !m.session.HasAppToken {
		who += "  " + styles.warn.Render("no app token: channel search is off")
	}

	grid := styles.help.Render(fmt.Sprintf("%d streams • %d columns", len(m.layout.Tiles), m.layout.Columns))
	return fmt.Sprintf("%s\n%s\n%s", title, who, grid)
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.edit, m.keys.add, m.keys.remove, m.keys.platform, m.keys.open, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.entries.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderEdit() string {
	entry, err := m.reg.Get(m.editing)
	if err != nil {
		return styles.err.Render(err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Editing %s entry\n\n%s\n", platformTag(entry.Platform), m.input.View())

	for i, s := range m.suggestions[m.editing] {
		if i == m.cursor {
			b.WriteString(styles.selected.Render("▸ "+s) + "\n")
		} else {
			b.WriteString("   " + s + "\n")
		}
	}

	if url := player.EmbedURL(entry, m.parent); url != "" {
		b.WriteString("\n" + styles.help.Render(url) + "\n")
	} else {
		b.WriteString("\n" + styles.help.Render(player.EmptyPrompt(entry.Platform)) + "\n")
	}

	helpKeys := []key.Binding{m.keys.accept, m.keys.done, m.keys.back}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

// Editing reports the entry being edited, or "".
func (m *Model) Editing() string { return m.editing }

// CurrentView returns the active view.
func (m *Model) CurrentView() ViewState { return m.view }
