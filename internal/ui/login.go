package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

func (m authMode) String() string {
	if m == modeSignup {
		return "Sign up"
	}
	return "Log in"
}

// authForm holds the login and signup inputs. The name field is only shown when signing up.
type authForm struct {
	mode     authMode
	email    textinput.Model
	password textinput.Model
	name     textinput.Model
	focus    int
	pending  bool
	err      string
}

func newAuthForm() authForm {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	name := textinput.New()
	name.Placeholder = "optional"
	name.Prompt = "Name     "
	name.CharLimit = 80

	f := authForm{email: email, password: password, name: name}
	f.setFocus(0)
	return f
}

func (f *authForm) fields() []*textinput.Model {
	fields := []*textinput.Model{&f.email, &f.password}
	if f.mode == modeSignup {
		fields = append(fields, &f.name)
	}
	return fields
}

func (f *authForm) setFocus(i int) {
	fields := f.fields()
	f.focus = (i + len(fields)) % len(fields)
	for j, field := range fields {
		if j == f.focus {
			field.Focus()
		} else {
			field.Blur()
		}
	}
	if f.mode == modeLogin {
		f.name.Blur()
	}
}

// reset clears the inputs and switches to mode.
func (f *authForm) reset(mode authMode) {
	f.mode = mode
	f.email.SetValue("")
	f.password.SetValue("")
	f.name.SetValue("")
	f.pending = false
	f.err = ""
	f.setFocus(0)
}

func (f *authForm) next() { f.setFocus(f.focus + 1) }
func (f *authForm) prev() { f.setFocus(f.focus - 1) }

func (f *authForm) values() (email, password, name string) {
	return strings.TrimSpace(f.email.Value()), f.password.Value(), strings.TrimSpace(f.name.Value())
}

func (f *authForm) update(msg tea.Msg) tea.Cmd {
	field := f.fields()[f.focus]
	var cmd tea.Cmd
	*field, cmd = field.Update(msg)
	return cmd
}

func (f *authForm) view() string {
	var b strings.Builder
	for _, field := range f.fields() {
		b.WriteString(field.View())
		b.WriteString("\n")
	}
	return b.String()
}
