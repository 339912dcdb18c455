// Chat262 TUI client.
//
// Screens
// -------
//   stateLogin    – centered login / register form
//   stateAccounts – wildcard account search, arrow keys pick a correspondent
//   stateChat     – full-screen chat with a background poller
//
// Concurrency
// -----------
//   Every client.Client call is a synchronous round trip, so each one runs
//   inside a tea.Cmd closure and reports back as a *ResultMsg on the
//   Bubbletea event loop — nothing touches the model outside Update.
//   While stateChat is active, one internal/poller goroutine wakes every
//   Client.PollInterval and pushes fresh snapshots through a size-1
//   channel; waitForPoll turns that channel into another tea.Cmd, mirroring
//   how the teacher's waitForPkt bridges its reader goroutine into Bubbletea.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chat262/internal/client"
	"chat262/internal/config"
	"chat262/internal/poller"
	"chat262/internal/store"
	"chat262/internal/wire"
)

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(purple).
			Padding(0, 2)

	labelStyle        = lipgloss.NewStyle().Foreground(gray).Width(10)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(cyan).Width(10)
	hintStyle         = lipgloss.NewStyle().Foreground(gray).Italic(true)
	errorStyle        = lipgloss.NewStyle().Foreground(red)
	successStyle      = lipgloss.NewStyle().Foreground(green)
	selectedStyle     = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	myNameStyle       = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle         = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

// ---------------------------------------------------------------------------
// Bubbletea message types
// ---------------------------------------------------------------------------

type authResultMsg struct {
	status  wire.StatusCode
	outcome client.Outcome
}

type accountsResultMsg struct {
	status    wire.StatusCode
	usernames []string
	outcome   client.Outcome
}

type sendResultMsg struct {
	status  wire.StatusCode
	outcome client.Outcome
}

type recvResultMsg struct {
	texts   []client.Text
	outcome client.Outcome
}

type deleteResultMsg struct {
	status  wire.StatusCode
	outcome client.Outcome
}

type pollUpdateMsg []client.Text

// ---------------------------------------------------------------------------
// Application state
// ---------------------------------------------------------------------------

type appState int

const (
	stateLogin appState = iota
	stateAccounts
	stateChat
)

type model struct {
	c   *client.Client
	cfg *config.Config

	state     appState
	me        string
	statusMsg string

	// login
	loginIsReg  bool
	loginFocus  int
	loginFields [2]textinput.Model

	// accounts search
	patternField  textinput.Model
	accounts      []string
	accountCursor int
	accountsFocus bool // true: cursor moves through results; false: editing pattern

	// chat
	correspondent string
	ready         bool
	viewport      viewport.Model
	chatInput     textinput.Model
	chatLines     []string
	lastTexts     int

	pollCh     chan []client.Text
	activePoll *poller.Poller

	width, height int
}

func newModel(c *client.Client, cfg *config.Config) model {
	uf := textinput.New()
	uf.Placeholder = "username"
	uf.Focus()
	uf.CharLimit = 40
	uf.Width = 32

	pf := textinput.New()
	pf.Placeholder = "password"
	pf.EchoMode = textinput.EchoPassword
	pf.EchoCharacter = '•'
	pf.CharLimit = 60
	pf.Width = 32

	pattern := textinput.New()
	pattern.Placeholder = "wildcard pattern, e.g. al*"
	pattern.SetValue("*")
	pattern.CharLimit = 40
	pattern.Width = 32

	ci := textinput.New()
	ci.Placeholder = "Type a message…"
	ci.CharLimit = 500

	return model{
		c:            c,
		cfg:          cfg,
		state:        stateLogin,
		loginFields:  [2]textinput.Model{uf, pf},
		patternField: pattern,
		chatInput:    ci,
	}
}

// ---------------------------------------------------------------------------
// Tea interface – Init
// ---------------------------------------------------------------------------

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// ---------------------------------------------------------------------------
// Tea interface – Update
// ---------------------------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case authResultMsg:
		return m.handleAuthResult(msg)

	case accountsResultMsg:
		return m.handleAccountsResult(msg)

	case sendResultMsg:
		if msg.outcome != client.Ok {
			m.appendChat(errorStyle.Render("⚠ send failed: " + msg.outcome.String()))
		} else if msg.status != wire.StatusOK {
			m.appendChat(errorStyle.Render(fmt.Sprintf("⚠ send rejected: status %d", msg.status)))
		}
		return m, nil

	case recvResultMsg:
		if msg.outcome == client.Ok {
			m.applyTexts(msg.texts)
		}
		return m, nil

	case pollUpdateMsg:
		m.applyTexts(msg)
		return m, waitForPoll(m.pollCh)

	case deleteResultMsg:
		if msg.outcome == client.Ok && msg.status == wire.StatusOK {
			m.stopPoll()
			return m, tea.Quit
		}
		m.appendChat(errorStyle.Render("⚠ account deletion failed"))
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateLogin:
			return m.handleLoginKey(msg)
		case stateAccounts:
			return m.handleAccountsKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

func (m model) vpHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

// ---------------------------------------------------------------------------
// Login screen
// ---------------------------------------------------------------------------

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyTab, tea.KeyShiftTab:
		m.loginFocus = (m.loginFocus + 1) % 2
		for i := range m.loginFields {
			if i == m.loginFocus {
				m.loginFields[i].Focus()
			} else {
				m.loginFields[i].Blur()
			}
		}
		return m, textinput.Blink

	case tea.KeyCtrlR:
		m.loginIsReg = !m.loginIsReg
		m.statusMsg = ""
		return m, nil

	case tea.KeyEnter:
		user := strings.TrimSpace(m.loginFields[0].Value())
		pass := m.loginFields[1].Value()
		if user == "" || pass == "" {
			m.statusMsg = "username and password are required"
			return m, nil
		}
		m.statusMsg = "contacting server…"
		if m.loginIsReg {
			return m, registerCmd(m.c, user, pass)
		}
		return m, loginCmd(m.c, user, pass)
	}

	var cmd tea.Cmd
	m.loginFields[m.loginFocus], cmd = m.loginFields[m.loginFocus].Update(msg)
	return m, cmd
}

func (m model) handleAuthResult(msg authResultMsg) (model, tea.Cmd) {
	if msg.outcome != client.Ok {
		m.statusMsg = "transport error: " + msg.outcome.String()
		return m, nil
	}
	switch msg.status {
	case wire.StatusOK:
		if m.loginIsReg {
			// registration succeeded; the user still needs to log in.
			m.statusMsg = successStyle.Render("registered — now log in")
			m.loginIsReg = false
			return m, nil
		}
		m.me = strings.TrimSpace(m.loginFields[0].Value())
		m.state = stateAccounts
		m.patternField.Focus()
		m.accountsFocus = false
		return m, accountsCmd(m.c, m.patternField.Value())
	case wire.StatusUserExists:
		m.statusMsg = errorStyle.Render("that username is taken")
	case wire.StatusUsernameInvalid:
		m.statusMsg = errorStyle.Render("username must be 4-40 characters with no spaces or '*'")
	case wire.StatusPasswordInvalid:
		m.statusMsg = errorStyle.Render("password must be 4-60 characters")
	case wire.StatusInvalidCredentials:
		m.statusMsg = errorStyle.Render("invalid username or password")
	default:
		m.statusMsg = errorStyle.Render(fmt.Sprintf("server returned status %d", msg.status))
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Accounts screen
// ---------------------------------------------------------------------------

func (m model) handleAccountsKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyTab:
		m.accountsFocus = !m.accountsFocus
		if !m.accountsFocus {
			m.patternField.Focus()
		} else {
			m.patternField.Blur()
		}
		return m, textinput.Blink

	case tea.KeyUp:
		if m.accountsFocus && m.accountCursor > 0 {
			m.accountCursor--
		}
		return m, nil

	case tea.KeyDown:
		if m.accountsFocus && m.accountCursor < len(m.accounts)-1 {
			m.accountCursor++
		}
		return m, nil

	case tea.KeyEnter:
		if m.accountsFocus {
			if len(m.accounts) == 0 {
				return m, nil
			}
			return m.openChat(m.accounts[m.accountCursor])
		}
		pattern := strings.TrimSpace(m.patternField.Value())
		if pattern == "" {
			m.statusMsg = errorStyle.Render("pattern must not be empty")
			return m, nil
		}
		return m, accountsCmd(m.c, pattern)
	}

	if m.accountsFocus {
		return m, nil
	}
	var cmd tea.Cmd
	m.patternField, cmd = m.patternField.Update(msg)
	return m, cmd
}

func (m model) handleAccountsResult(msg accountsResultMsg) (model, tea.Cmd) {
	if msg.outcome != client.Ok || msg.status != wire.StatusOK {
		m.statusMsg = errorStyle.Render("account search failed")
		return m, nil
	}
	accounts := append([]string(nil), msg.usernames...)
	sort.Strings(accounts)
	m.accounts = accounts
	if m.accountCursor >= len(m.accounts) {
		m.accountCursor = 0
	}
	m.statusMsg = ""
	m.accountsFocus = len(m.accounts) > 0
	if !m.accountsFocus {
		m.patternField.Focus()
	} else {
		m.patternField.Blur()
	}
	return m, nil
}

// openChat switches to stateChat for correspondent, loads its history once,
// and starts a background poller.
func (m model) openChat(correspondent string) (model, tea.Cmd) {
	m.stopPoll()
	m.correspondent = correspondent
	m.state = stateChat
	m.chatLines = nil
	m.lastTexts = 0
	m.viewport.SetContent("")
	m.chatInput.Focus()
	m.chatInput.Reset()

	m.pollCh = make(chan []client.Text, 1)
	recipient := []byte(correspondent)
	m.activePoll = poller.New(m.c, recipient, m.cfg.Client.PollInterval, func(texts []client.Text) {
		pushLatest(m.pollCh, texts)
	})
	go m.activePoll.Run()

	return m, tea.Batch(recvCmd(m.c, correspondent), waitForPoll(m.pollCh))
}

func (m *model) stopPoll() {
	if m.activePoll != nil {
		m.activePoll.Stop()
		m.activePoll = nil
	}
}

// ---------------------------------------------------------------------------
// Chat screen
// ---------------------------------------------------------------------------

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.stopPoll()
		return m, tea.Quit

	case tea.KeyCtrlB:
		m.stopPoll()
		m.state = stateAccounts
		m.accountsFocus = true
		return m, nil

	case tea.KeyCtrlX:
		m.stopPoll()
		return m, deleteCmd(m.c)

	case tea.KeyEnter:
		content := strings.TrimSpace(m.chatInput.Value())
		if content == "" {
			return m, nil
		}
		m.chatInput.Reset()
		return m, sendCmd(m.c, m.correspondent, content)

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)
	return m, cmd
}

// applyTexts replaces the rendered chat with a fresh snapshot whenever the
// text count changed, mirroring SPEC_FULL.md §4.7's count-diff redraw rule.
func (m *model) applyTexts(texts []client.Text) {
	if len(texts) == m.lastTexts {
		return
	}
	m.lastTexts = len(texts)
	lines := make([]string, 0, len(texts))
	for _, t := range texts {
		name := peerStyle.Render(m.correspondent)
		if t.Tag == store.You {
			name = myNameStyle.Render(m.me)
		}
		lines = append(lines, name+": "+string(t.Content))
	}
	m.chatLines = lines
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) appendChat(line string) {
	m.chatLines = append(m.chatLines, line)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

// ---------------------------------------------------------------------------
// Tea interface – View
// ---------------------------------------------------------------------------

func (m model) View() string {
	switch m.state {
	case stateLogin:
		return m.viewLogin()
	case stateAccounts:
		return m.viewAccounts()
	case stateChat:
		return m.viewChat()
	}
	return ""
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to server…"
	}

	mode, other := "Login", "Register"
	if m.loginIsReg {
		mode, other = "Register", "Login"
	}

	title := titleStyle.Render("  Chat262  ")

	renderField := func(label string, f textinput.Model, focused bool) string {
		lbl := labelStyle.Render(label)
		if focused {
			lbl = focusedLabelStyle.Render(label)
		}
		return lbl + "  " + f.View()
	}

	form := lipgloss.JoinVertical(lipgloss.Left,
		title,
		"",
		renderField("Username", m.loginFields[0], m.loginFocus == 0),
		renderField("Password", m.loginFields[1], m.loginFocus == 1),
		"",
		hintStyle.Render(fmt.Sprintf("Tab: switch field   Enter: %s   Ctrl+R: switch to %s", mode, other)),
		hintStyle.Render("Ctrl+C: quit"),
		"",
		m.statusMsg,
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewAccounts() string {
	if m.width == 0 {
		return "\n  Loading…"
	}

	hdr := headerStyle.Width(m.width).Render(" Chat262  ·  find a correspondent  ·  Ctrl+C: quit")

	lbl := labelStyle.Render("Pattern")
	if !m.accountsFocus {
		lbl = focusedLabelStyle.Render("Pattern")
	}
	patternLine := "  " + lbl + "  " + m.patternField.View()

	keyHint := hintStyle.Render("  Tab: switch focus   Enter: search / open chat   Up/Down: move")

	var lines []string
	if len(m.accounts) == 0 {
		lines = append(lines, hintStyle.Render("  (no matching accounts)"))
	}
	for i, name := range m.accounts {
		line := "  " + name
		if m.accountsFocus && i == m.accountCursor {
			line = "  " + selectedStyle.Render("> "+name)
		}
		lines = append(lines, line)
	}

	parts := []string{hdr, "", patternLine, keyHint, ""}
	parts = append(parts, lines...)
	if m.statusMsg != "" {
		parts = append(parts, "", m.statusMsg)
	}
	return strings.Join(parts, "\n")
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}

	hdr := headerStyle.Width(m.width).Render(fmt.Sprintf(
		" Chat262  ·  %s ↔ %s  ·  Ctrl+B: back  PgUp/Dn: scroll  Ctrl+X: delete account  Ctrl+C: quit",
		m.me, m.correspondent))

	footer := footerBorderStyle.Width(m.width - 2).Render(m.chatInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
}

// ---------------------------------------------------------------------------
// Command helpers — each wraps one synchronous client.Client round trip.
// ---------------------------------------------------------------------------

func registerCmd(c *client.Client, user, pass string) tea.Cmd {
	return func() tea.Msg {
		status, outcome := c.Register([]byte(user), []byte(pass))
		return authResultMsg{status: status, outcome: outcome}
	}
}

func loginCmd(c *client.Client, user, pass string) tea.Cmd {
	return func() tea.Msg {
		status, outcome := c.Login([]byte(user), []byte(pass))
		return authResultMsg{status: status, outcome: outcome}
	}
}

func accountsCmd(c *client.Client, pattern string) tea.Cmd {
	return func() tea.Msg {
		status, usernames, outcome := c.Accounts([]byte(pattern))
		return accountsResultMsg{status: status, usernames: usernames, outcome: outcome}
	}
}

func sendCmd(c *client.Client, recipient, text string) tea.Cmd {
	return func() tea.Msg {
		status, outcome := c.SendTxt([]byte(recipient), []byte(text))
		return sendResultMsg{status: status, outcome: outcome}
	}
}

func recvCmd(c *client.Client, sender string) tea.Cmd {
	return func() tea.Msg {
		_, texts, outcome := c.RecvTxt([]byte(sender))
		return recvResultMsg{texts: texts, outcome: outcome}
	}
}

func deleteCmd(c *client.Client) tea.Cmd {
	return func() tea.Msg {
		status, outcome := c.Delete()
		return deleteResultMsg{status: status, outcome: outcome}
	}
}

// waitForPoll returns a tea.Cmd that blocks until the poller pushes a fresh
// snapshot, bridging the background goroutine into the Bubbletea loop.
func waitForPoll(ch <-chan []client.Text) tea.Cmd {
	return func() tea.Msg {
		texts, ok := <-ch
		if !ok {
			return nil
		}
		return pollUpdateMsg(texts)
	}
}

// pushLatest drops any stale, unread snapshot before pushing the new one so
// the channel never blocks the poller's own goroutine.
func pushLatest(ch chan []client.Text, texts []client.Text) {
	for {
		select {
		case ch <- texts:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "", "server address (overrides config)")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Client.ServerAddr = *addr
	}

	c, err := client.Dial(cfg.Client.ServerAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to %s: %v\n", cfg.Client.ServerAddr, err)
		os.Exit(1)
	}
	defer c.Close()

	p := tea.NewProgram(
		newModel(c, cfg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
