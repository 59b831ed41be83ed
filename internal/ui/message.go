package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/session"
	"github.com/desertthunder/lrx/internal/shared"
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
	MsgSessionReady MsgKind = iota
	MsgSessionChanged
	MsgSearchDone
	MsgAuthDone
	MsgNavigate
	MsgNotice
	MsgToastExpired
	MsgSuggestions
)

// sessionReadyMsg is the constructor for [MsgSessionReady]
func sessionReadyMsg(s session.Session) Msg {
	return Msg{kind: MsgSessionReady, data: s}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg(s session.Session) Msg {
	return Msg{kind: MsgSessionChanged, data: s}
}

// searchDoneMsg is the constructor for [MsgSearchDone]
func searchDoneMsg(out search.Outcome) Msg {
	return Msg{kind: MsgSearchDone, data: out}
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(err error) Msg {
	return Msg{kind: MsgAuthDone, data: err}
}

// navigateMsg is the constructor for [MsgNavigate]
func navigateMsg(s session.Surface) Msg {
	return Msg{kind: MsgNavigate, data: s}
}

// noticeMsg is the constructor for [MsgNotice]
func noticeMsg(n shared.Notice) Msg {
	return Msg{kind: MsgNotice, data: n}
}

// toastExpiredMsg is the constructor for [MsgToastExpired]
func toastExpiredMsg(id int) Msg {
	return Msg{kind: MsgToastExpired, data: id}
}

// suggestionsMsg is the constructor for [MsgSuggestions]
func suggestionsMsg(s []string) Msg {
	return Msg{kind: MsgSuggestions, data: s}
}

// Navigator forwards navigation requests from the session manager into the program.
//
// Requests are dropped when the buffer is full.
type Navigator chan session.Surface

// NewNavigator creates a buffered [Navigator].
func NewNavigator() Navigator {
	return make(Navigator, 4)
}

func (n Navigator) Navigate(s session.Surface) {
	select {
	case n <- s:
	default:
	}
}

var _ session.Navigator = Navigator(nil)
