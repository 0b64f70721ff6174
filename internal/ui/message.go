package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/streamgrid/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSuggestions MsgKind = iota
	MsgSession
	MsgFeedClosed
)

type suggestionsData struct {
	entryID     string
	suggestions []string
}

// suggestionsMsg is the constructor for [MsgSuggestions]
func suggestionsMsg(entryID string, suggestions []string) Msg {
	return Msg{kind: MsgSuggestions, data: suggestionsData{entryID, suggestions}}
}

// sessionMsg is the constructor for [MsgSession]
func sessionMsg(snap session.Snapshot) Msg {
	return Msg{kind: MsgSession, data: snap}
}

// Feed carries background changes into the program.
//
// Its methods may be called from any goroutine and return immediately once the feed is closed.
type Feed struct {
	ch   chan Msg
	done chan struct{}
	once sync.Once
}

// NewFeed creates an open feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan Msg, 64), done: make(chan struct{})}
}

// SuggestionsChanged matches search.ChangeFunc.
func (f *Feed) SuggestionsChanged(entryID string, suggestions []string) {
	f.send(suggestionsMsg(entryID, suggestions))
}

// SessionChanged matches the session change callback.
func (f *Feed) SessionChanged(snap session.Snapshot) {
	f.send(sessionMsg(snap))
}

// Close releases any sender blocked on a full feed.
func (f *Feed) Close() {
	f.once.Do(func() { close(f.done) })
}

func (f *Feed) send(msg Msg) {
	select {
	case f.ch <- msg:
	case <-f.done:
	}
}

// next blocks until a message arrives or the feed closes.
func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-f.ch:
			return msg
		case <-f.done:
			return Msg{kind: MsgFeedClosed}
		}
	}
}
