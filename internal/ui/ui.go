package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lrx/internal/formatter"
	"github.com/desertthunder/lrx/internal/search"
	"github.com/desertthunder/lrx/internal/session"
	"github.com/desertthunder/lrx/internal/shared"
)

// ToastTTL is how long a notice stays on screen.
const ToastTTL = 4 * time.Second

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InitView ViewState = iota
	SearchView
	FilterView
	LoginView
)

// Deps wires the model to the session manager and search synchronizer.
type Deps struct {
	Session   *session.Manager
	Search    *search.Synchronizer
	Navigator Navigator
	Notices   shared.ChanNotifier
	// Suggest returns example queries shown before the first search. Optional.
	Suggest func(ctx context.Context) ([]string, error)
	// Open opens a resource URL. Defaults to [shared.OpenBrowser].
	Open func(url string) error
}

type toast struct {
	id     int
	notice shared.Notice
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps
	view ViewState

	session   session.Session
	sessionCh <-chan session.Session

	input   textinput.Model
	results list.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	form        authForm
	rows        []filterRow
	cursor      int
	filterQuery string
	filtersSeen string

	inflight    int
	toasts      []toast
	nextToast   int
	suggestions []string

	width  int
	height int
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Open == nil {
		deps.Open = shared.OpenBrowser
	}

	input := textinput.New()
	input.Placeholder = "Search AI tools, courses, tutorials..."
	input.Prompt = "❯ "
	input.CharLimit = 200
	input.Focus()

	results := list.New([]list.Item{}, list.NewDefaultDelegate(), 80, 16)
	results.SetShowTitle(false)
	results.SetShowHelp(false)
	results.SetShowStatusBar(false)
	results.SetFilteringEnabled(false)

	m := &Model{
		ctx:     ctx,
		deps:    deps,
		view:    InitView,
		session: session.Session{Status: session.Initializing},
		input:   input,
		results: results,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
		form:    newAuthForm(),
		rows:    filterRows(),
	}
	if deps.Session != nil {
		m.sessionCh = deps.Session.Subscribe()
	}
	return m
}

// Init restores the session, then starts listening for notices, navigation and session changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.initSession(),
		m.waitForNotice(),
		m.waitForNavigation(),
		m.waitForSession(),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-6, 10)
		m.results.SetSize(max(msg.Width-4, 20), max(msg.Height-12, 4))
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) {
			return m, tea.Quit
		}
		switch m.view {
		case SearchView:
			return m.handleSearchKeys(msg)
		case FilterView:
			return m.handleFilterKeys(msg)
		case LoginView:
			return m.handleLoginKeys(msg)
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionReady:
		m.session = msg.data.(session.Session)
		if m.view == InitView {
			m.view = SearchView
		}
		var cmds []tea.Cmd
		if q := m.deps.Search.SetQueryFromLocation(); strings.TrimSpace(q) != "" {
			m.input.SetValue(q)
			cmds = append(cmds, m.submit(q))
		}
		cmds = append(cmds, m.fetchSuggestions())
		return m, tea.Batch(cmds...)

	case MsgSessionChanged:
		m.session = msg.data.(session.Session)
		return m, m.waitForSession()

	case MsgSearchDone:
		m.inflight = max(m.inflight-1, 0)
		out := msg.data.(search.Outcome)
		if out.Kind == search.OutcomeStale {
			return m, nil
		}
		m.syncResults()
		return m, nil

	case MsgAuthDone:
		m.form.pending = false
		err, _ := msg.data.(error)
		if err == nil {
			m.form.err = ""
			return m, nil
		}
		var authErr *session.AuthError
		if errors.As(err, &authErr) {
			m.form.err = authErr.Message
		} else {
			m.form.err = err.Error()
		}
		return m, nil

	case MsgNavigate:
		cmd := m.navigate(msg.data.(session.Surface))
		return m, tea.Batch(cmd, m.waitForNavigation())

	case MsgNotice:
		m.nextToast++
		id := m.nextToast
		m.toasts = append(m.toasts, toast{id: id, notice: msg.data.(shared.Notice)})
		expire := tea.Tick(ToastTTL, func(time.Time) tea.Msg { return toastExpiredMsg(id) })
		return m, tea.Batch(expire, m.waitForNotice())

	case MsgToastExpired:
		id := msg.data.(int)
		for i, t := range m.toasts {
			if t.id == id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case MsgSuggestions:
		m.suggestions = msg.data.([]string)
		return m, nil
	}
	return m, nil
}

// navigate applies a navigation request from the session manager.
func (m *Model) navigate(to session.Surface) tea.Cmd {
	switch to {
	case session.SurfaceLogin:
		if m.view != LoginView {
			m.form.reset(modeLogin)
		}
		m.view = LoginView
		m.input.Blur()
		return nil
	default:
		m.view = SearchView
		m.form.reset(m.form.mode)
		st := m.deps.Search.State()
		if st.SignupRequired {
			m.deps.Search.DismissSignup()
		}
		if strings.TrimSpace(st.Query) != "" && st.Result == nil {
			return tea.Batch(m.input.Focus(), m.resubmit())
		}
		return m.input.Focus()
	}
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.deps.Search.State()

	if st.SignupRequired {
		switch {
		case key.Matches(msg, m.keys.signup):
			m.openLogin(modeSignup)
		case msg.String() == "l":
			m.openLogin(modeLogin)
		case key.Matches(msg, m.keys.back):
			m.deps.Search.DismissSignup()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.submit):
		return m, m.submit(m.input.Value())
	case key.Matches(msg, m.keys.next):
		return m, m.turnPage(1)
	case key.Matches(msg, m.keys.prev):
		return m, m.turnPage(-1)
	case key.Matches(msg, m.keys.up):
		m.results.CursorUp()
		return m, nil
	case key.Matches(msg, m.keys.down):
		m.results.CursorDown()
		return m, nil
	case key.Matches(msg, m.keys.filters):
		m.view = FilterView
		m.filterQuery = st.Query
		m.filtersSeen = formatter.DescribeFilters(st.Filters)
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.open):
		return m, m.openSelected()
	case key.Matches(msg, m.keys.login):
		if !m.session.IsAuthenticated() {
			m.openLogin(modeLogin)
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		if m.session.IsAuthenticated() {
			return m, m.logout()
		}
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.input.SetValue("")
		m.deps.Search.SetQuery("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.deps.Search.SetQuery(m.input.Value())
	return m, cmd
}

func (m *Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.up):
		m.cursor = (m.cursor - 1 + len(m.rows)) % len(m.rows)
	case key.Matches(msg, m.keys.down):
		m.cursor = (m.cursor + 1) % len(m.rows)
	case key.Matches(msg, m.keys.toggle):
		row := m.rows[m.cursor]
		m.deps.Search.UpdateFilters(row.toggle(m.deps.Search.Filters()))
	case key.Matches(msg, m.keys.clear):
		m.deps.Search.ClearFilters()
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.filters):
		m.view = SearchView
		changed := formatter.DescribeFilters(m.deps.Search.Filters()) != m.filtersSeen
		if changed && strings.TrimSpace(m.filterQuery) != "" {
			return m, tea.Batch(m.input.Focus(), m.resubmit())
		}
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.pending {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = SearchView
		return m, m.input.Focus()
	case key.Matches(msg, m.keys.mode):
		if m.form.mode == modeLogin {
			m.form.reset(modeSignup)
		} else {
			m.form.reset(modeLogin)
		}
		return m, nil
	case msg.String() == "shift+tab", msg.String() == "up":
		m.form.prev()
		return m, nil
	case msg.String() == "tab", msg.String() == "down":
		m.form.next()
		return m, nil
	case msg.String() == "enter":
		if m.form.focus < len(m.form.fields())-1 {
			m.form.next()
			return m, nil
		}
		return m, m.authenticate()
	}

	return m, m.form.update(msg)
}

func (m *Model) openLogin(mode authMode) {
	m.form.reset(mode)
	m.view = LoginView
	m.input.Blur()
}

func (m *Model) busy() bool {
	return m.view == InitView || m.inflight > 0 || m.form.pending
}

// syncResults copies the committed result set into the list.
func (m *Model) syncResults() {
	st := m.deps.Search.State()
	m.results.SetItems(resourceItems(st.Result))
	m.results.Select(0)
}

func (m *Model) submit(text string) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	filters := m.deps.Search.Filters()
	return m.runSearch(func(ctx context.Context) search.Outcome {
		return m.deps.Search.Submit(ctx, text, filters)
	})
}

func (m *Model) resubmit() tea.Cmd {
	return m.runSearch(m.deps.Search.Resubmit)
}

func (m *Model) turnPage(delta int) tea.Cmd {
	st := m.deps.Search.State()
	if st.Result == nil || (delta > 0 && !st.Result.HasNext) || (delta < 0 && !st.Result.HasPrev) {
		return nil
	}
	return m.runSearch(func(ctx context.Context) search.Outcome {
		var (
			out search.Outcome
			ok  bool
		)
		if delta > 0 {
			out, ok = m.deps.Search.NextPage(ctx)
		} else {
			out, ok = m.deps.Search.PrevPage(ctx)
		}
		if !ok {
			return search.Outcome{Kind: search.OutcomeStale}
		}
		return out
	})
}

func (m *Model) runSearch(run func(context.Context) search.Outcome) tea.Cmd {
	m.inflight++
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return searchDoneMsg(run(m.ctx))
	})
}

func (m *Model) authenticate() tea.Cmd {
	email, password, name := m.form.values()
	mode := m.form.mode
	m.form.pending = true
	m.form.err = ""

	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		var err error
		if mode == modeSignup {
			_, err = m.deps.Session.Signup(m.ctx, email, password, name)
		} else {
			_, err = m.deps.Session.Login(m.ctx, email, password)
		}
		return authDoneMsg(err)
	})
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		m.deps.Session.Logout(m.ctx)
		return nil
	}
}

func (m *Model) openSelected() tea.Cmd {
	item, ok := m.results.SelectedItem().(resourceItem)
	if !ok || item.resource.URL == "" {
		return nil
	}
	url := item.resource.URL
	return func() tea.Msg {
		if err := m.deps.Open(url); err != nil {
			return noticeMsg(shared.Notice{Level: shared.NoticeError, Message: fmt.Sprintf("Could not open %s", url)})
		}
		return nil
	}
}

func (m *Model) initSession() tea.Cmd {
	return func() tea.Msg {
		if m.deps.Session == nil {
			return sessionReadyMsg(session.Session{Status: session.Anonymous})
		}
		return sessionReadyMsg(m.deps.Session.Initialize(m.ctx))
	}
}

func (m *Model) fetchSuggestions() tea.Cmd {
	if m.deps.Suggest == nil {
		return nil
	}
	return func() tea.Msg {
		s, err := m.deps.Suggest(m.ctx)
		if err != nil || len(s) == 0 {
			return nil
		}
		return suggestionsMsg(s)
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	if m.deps.Notices == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case n := <-m.deps.Notices:
			return noticeMsg(n)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForNavigation() tea.Cmd {
	if m.deps.Navigator == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s := <-m.deps.Navigator:
			return navigateMsg(s)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForSession() tea.Cmd {
	if m.sessionCh == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case s, ok := <-m.sessionCh:
			if !ok {
				return nil
			}
			return sessionChangedMsg(s)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case InitView:
		body = fmt.Sprintf("%s Checking session...", m.spinner.View())
	case SearchView:
		body = m.renderSearch()
	case FilterView:
		body = m.renderFilters()
	case LoginView:
		body = m.renderLogin()
	}

	parts := []string{m.renderHeader(), body}
	if toasts := m.renderToasts(); toasts != "" {
		parts = append(parts, toasts)
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	who := "Guest"
	switch {
	case m.session.Status == session.Initializing:
		who = "…"
	case m.session.IsAuthenticated():
		who = m.session.User.DisplayName()
	}
	return styles.title.Render("lrx · learning resources") + "  " + styles.badge.Render(who)
}

func (m *Model) renderSearch() string {
	st := m.deps.Search.State()

	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(styles.help.Render("Filters: " + formatter.DescribeFilters(st.Filters)))
	b.WriteString("\n\n")

	switch {
	case st.Loading || m.inflight > 0:
		fmt.Fprintf(&b, "%s Searching...\n", m.spinner.View())
	case st.SignupRequired:
		b.WriteString(m.renderSignupModal(st.Message))
		b.WriteString("\n")
		return b.String()
	case st.Message != "":
		b.WriteString(styles.err.Render(st.Message))
		b.WriteString(styles.help.Render("  (enter to retry)"))
		b.WriteString("\n")
	case st.Result != nil && len(st.Result.Resources) == 0:
		b.WriteString(styles.warn.Render("No resources found."))
		b.WriteString("\n")
	case st.Result != nil:
		b.WriteString(m.results.View())
		b.WriteString("\n")
		pages := max(st.Result.Pages(), 1)
		line := fmt.Sprintf("Page %d of %d · %d results", st.Page, pages, st.Result.Total)
		if st.Result.RemainingSearches != nil {
			line += fmt.Sprintf(" · %d searches left", *st.Result.RemainingSearches)
		}
		b.WriteString(styles.help.Render(line))
		b.WriteString("\n")
	case len(m.suggestions) > 0:
		b.WriteString(styles.help.Render("Try: " + strings.Join(m.suggestions, ", ")))
		b.WriteString("\n")
	}

	keys := []key.Binding{m.keys.submit, m.keys.next, m.keys.prev, m.keys.filters, m.keys.open}
	if m.session.IsAuthenticated() {
		keys = append(keys, m.keys.logout)
	} else {
		keys = append(keys, m.keys.login)
	}
	keys = append(keys, m.keys.quit)
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderSignupModal(message string) string {
	if message == "" {
		message = "Sign up to keep searching."
	}
	content := fmt.Sprintf("%s\n\n%s\n\n%s",
		styles.warn.Bold(true).Render("Search limit reached"),
		message,
		styles.help.Render("s sign up · l log in · esc dismiss"),
	)
	return styles.modal.Render(content)
}

func (m *Model) renderFilters() string {
	filters := m.deps.Search.Filters()

	var b strings.Builder
	section := ""
	for i, row := range m.rows {
		if s := row.section(); s != section {
			section = s
			fmt.Fprintf(&b, "\n%s\n", styles.ok.Render(section))
		}
		line := "  " + row.label(filters)
		if i == m.cursor {
			line = styles.cursor.Render("> " + row.label(filters))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.toggle, m.keys.clear, m.keys.back}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.ok.Render(m.form.mode.String()))
	b.WriteString("\n\n")
	b.WriteString(m.form.view())

	if m.form.pending {
		fmt.Fprintf(&b, "\n%s Signing in...\n", m.spinner.View())
	} else if m.form.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.form.err))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.tab, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")), m.keys.mode, m.keys.back}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderToasts() string {
	if len(m.toasts) == 0 {
		return ""
	}
	lines := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		lines[i] = styles.Notice(t.notice)
	}
	return strings.Join(lines, "\n")
}

// Close releases the session subscription.
func (m *Model) Close() {
	if m.deps.Session != nil && m.sessionCh != nil {
		m.deps.Session.Unsubscribe(m.sessionCh)
		m.sessionCh = nil
	}
}
