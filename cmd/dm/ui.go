package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/solo-dm/internal/config"
	"github.com/jwebster45206/solo-dm/internal/session"
	"github.com/jwebster45206/solo-dm/pkg/actor"
	"github.com/jwebster45206/solo-dm/pkg/chat"
	"github.com/jwebster45206/solo-dm/pkg/dice"
	"github.com/jwebster45206/solo-dm/pkg/state"
)

const (
	AgentName       = "DM"
	PlaceHolderText = "What do you do?"
)

type lineKind int

const (
	lineNarration lineKind = iota
	linePlayer
	lineNote
	lineError
)

type transcriptLine struct {
	kind lineKind
	text string
}

// ConsoleUI is the BubbleTea model for a play session.
type ConsoleUI struct {
	ctx     context.Context
	config  *config.Config
	manager *session.Manager
	roller  *dice.Roller
	logger  *slog.Logger

	// characterName is used when starting a new adventure; empty takes the
	// name from the character sheet.
	characterName string

	// snapshot is the last copy read from the manager. It is refreshed only
	// between model calls so the panels never wait on the session lock.
	snapshot *state.GameSession

	transcript    []transcriptLine
	lastNarration string

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool
	quitting     bool

	// session selection state
	showSessionModal bool
	loadingSessions  bool
	sessions         []state.SessionSummary
	selected         int
	modalErr         error

	showQuitModal bool
	progressTick  int
}

type sessionsLoadedMsg struct {
	sessions []state.SessionSummary
	err      error
}

type sessionReadyMsg struct {
	session *state.GameSession
	err     error
}

type actionResultMsg struct {
	scene string
	err   error
}

type commandResultMsg struct {
	text string
	err  error
}

type savedMsg struct {
	err   error
	final bool
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(ctx context.Context, cfg *config.Config, mgr *session.Manager, roller *dice.Roller, characterName string, logger *slog.Logger) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = chat.MaxMessageLength
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	return ConsoleUI{
		ctx:              ctx,
		config:           cfg,
		manager:          mgr,
		roller:           roller,
		logger:           logger,
		characterName:    characterName,
		textarea:         ta,
		chatViewport:     chatVp,
		metaViewport:     viewport.New(20, 20),
		showSessionModal: true,
		loadingSessions:  true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadSessions()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showSessionModal {
		return m.updateSessionModal(msg)
	}
	if key, ok := msg.(tea.KeyMsg); ok && m.showQuitModal {
		return m.updateQuitModal(key)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.writeChatContent()
		m.writeMetadata()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m.handleInput(input)
		}

	case actionResultMsg:
		m.loading = false
		m.textarea.Focus()
		if msg.err != nil {
			m.addLine(lineError, "Error: "+msg.err.Error())
		} else {
			m.lastNarration = msg.scene
			m.addLine(lineNarration, msg.scene)
		}
		m.refreshSnapshot()
		m.writeMetadata()
		return m, textarea.Blink

	case commandResultMsg:
		m.loading = false
		m.textarea.Focus()
		m.addResult(msg.text, msg.err)
		m.refreshSnapshot()
		m.writeMetadata()
		return m, textarea.Blink

	case savedMsg:
		if msg.final {
			if msg.err != nil {
				m.logger.Error("Failed to save on quit", "error", msg.err)
			}
			return m, tea.Quit
		}
		if msg.err != nil {
			m.addLine(lineError, "Save failed: "+msg.err.Error())
		} else {
			m.addLine(lineNote, "Session saved.")
		}
		m.refreshSnapshot()
		m.writeMetadata()

	case sessionsLoadedMsg:
		if msg.err != nil {
			m.addLine(lineError, "Failed to list sessions: "+msg.err.Error())
		} else {
			m.addLine(lineNote, sessionsText(msg.sessions))
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// handleInput routes a submitted line to a console command or the DM.
func (m ConsoleUI) handleInput(input string) (tea.Model, tea.Cmd) {
	c := parseCommand(input)
	switch c.kind {
	case cmdAction:
		m.addLine(linePlayer, input)
		m.loading = true
		m.progressTick = 0
		m.textarea.Blur()
		m.writeChatContent()
		return m, tea.Batch(m.sendAction(input), progressTick())

	case cmdHelp:
		m.addLine(lineNote, helpText)

	case cmdStatus:
		info, err := m.manager.Info()
		if err != nil {
			m.addLine(lineError, err.Error())
		} else {
			m.addLine(lineNote, statusText(info, time.Now()))
		}

	case cmdQuit:
		m.showQuitModal = true

	case cmdRoll:
		text, err := rollText(m.roller, c.args)
		m.addResult(text, err)

	case cmdCheck:
		text, err := checkText(m.roller, m.character(), c.args, m.config.DefaultDC)
		m.addResult(text, err)

	case cmdSave:
		return m, m.save(false)

	case cmdSessions:
		return m, m.listSessions()

	case cmdCopy:
		if m.lastNarration == "" {
			m.addLine(lineNote, "Nothing to copy yet.")
			break
		}
		if err := clipboard.WriteAll(m.lastNarration); err != nil {
			m.addLine(lineError, "Copy failed: "+err.Error())
		} else {
			m.addLine(lineNote, "Copied the last narration to the clipboard.")
		}

	case cmdUnknown:
		m.addLine(lineError, fmt.Sprintf("Unknown command /%s. Type help for a list.", c.name))

	default:
		if c.kind.runsInBackground() {
			m.loading = true
			m.progressTick = 0
			m.textarea.Blur()
			m.writeChatContent()
			return m, tea.Batch(m.runCommand(c), progressTick())
		}
	}
	return m, nil
}

func (m ConsoleUI) runCommand(c command) tea.Cmd {
	p := playCommands{
		ctl:       m.manager,
		roller:    m.roller,
		character: m.character(),
		defaultDC: m.config.DefaultDC,
	}
	return func() tea.Msg {
		text, err := p.run(m.ctx, c)
		return commandResultMsg{text: text, err: err}
	}
}

// character returns the snapshot's character, or nil.
func (m ConsoleUI) character() *actor.Character {
	if m.snapshot == nil {
		return nil
	}
	return m.snapshot.Character
}

func (m *ConsoleUI) refreshSnapshot() {
	m.snapshot = m.manager.Current()
}

func (m *ConsoleUI) addResult(text string, err error) {
	if err != nil {
		m.addLine(lineError, err.Error())
		return
	}
	m.addLine(lineNote, text)
}

func (m *ConsoleUI) addLine(kind lineKind, text string) {
	m.transcript = append(m.transcript, transcriptLine{kind: kind, text: strings.TrimRight(text, "\n")})
	m.writeChatContent()
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

// writeChatContent rebuilds the transcript for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	width := m.chatViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("SOLO DM") + "\n\n")
	content.WriteString("Describe what your character does. Type help for commands.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, line := range m.transcript {
		switch line.kind {
		case lineNarration:
			content.WriteString(formatNarration(line.text, width) + "\n\n")
		case linePlayer:
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(line.text, width-5) + "\n\n")
		case lineNote:
			content.WriteString(noteStyle.Render(wordwrap.String(line.text, width)) + "\n\n")
		case lineError:
			content.WriteString(errorStyle.Render(wordwrap.String(line.text, width)) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")

	cur := m.snapshot
	if cur == nil {
		content.WriteString("No active session\n")
		m.metaViewport.SetContent(content.String())
		return
	}

	c := cur.Character
	content.WriteString(fmt.Sprintf("%s\n", valueOr(c.Name, "Unnamed")))
	if c.Class != "" || c.Race != "" {
		content.WriteString(strings.TrimSpace(c.Race+" "+c.Class) + "\n")
	}
	content.WriteString(fmt.Sprintf("Level %d\n\n", c.Level))
	content.WriteString(fmt.Sprintf("HP: %d/%d", c.HitPoints, c.MaxHitPoints))
	if c.TemporaryHP > 0 {
		content.WriteString(fmt.Sprintf(" (+%d)", c.TemporaryHP))
	}
	content.WriteString(fmt.Sprintf("\nAC: %d\n\n", c.ArmorClass))

	content.WriteString("Location:\n")
	content.WriteString(valueOr(cur.CurrentLocation, "Unknown") + "\n\n")

	content.WriteString("Status:\n")
	content.WriteString(fmt.Sprintf("%s, %d actions\n\n", cur.Status, len(cur.ActionsTaken)))

	if !cur.SavedAt.IsZero() {
		content.WriteString("Saved:\n")
		content.WriteString(cur.SavedAt.Local().Format("15:04:05") + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Act\n")
	content.WriteString("• help: Help\n")
	content.WriteString("• /roll 1d20\n")
	content.WriteString("• /missions\n")
	content.WriteString("• /damage, /heal\n")
	content.WriteString("• /pause, /end\n")
	content.WriteString("• Ctrl+C: Quit\n")

	m.metaViewport.SetContent(content.String())
}

// formatNarration wraps DM text and highlights short "Speaker:" prefixes.
func formatNarration(text string, width int) string {
	prefix := AgentName + ": "
	wrapped := wordwrap.String(text, width-len(prefix))
	lines := strings.Split(wrapped, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if idx := strings.Index(trimmed, ":"); idx > 0 && idx <= 20 {
			speaker := trimmed[:idx]
			if len(strings.Fields(speaker)) <= 2 {
				lines[i] = speakerStyle.Render(speaker+":") + trimmed[idx+1:]
			}
		}
	}
	return narratorStyle.Render(prefix) + strings.Join(lines, "\n")
}

func (m ConsoleUI) sendAction(input string) tea.Cmd {
	return func() tea.Msg {
		scene, err := m.manager.ProcessPlayerAction(m.ctx, input)
		return actionResultMsg{scene: scene, err: err}
	}
}

func (m ConsoleUI) save(final bool) tea.Cmd {
	return func() tea.Msg {
		if m.manager.Current() == nil {
			return savedMsg{final: final}
		}
		err := m.manager.SaveSession(m.ctx, false)
		if final && errors.Is(err, session.ErrSessionReadOnly) {
			err = nil
		}
		return savedMsg{err: err, final: final}
	}
}

func (m ConsoleUI) listSessions() tea.Cmd {
	return func() tea.Msg {
		list, err := m.manager.ListSessions(m.ctx)
		return sessionsLoadedMsg{sessions: list, err: err}
	}
}

func (m ConsoleUI) loadSessions() tea.Cmd {
	return m.listSessions()
}

func (m ConsoleUI) startSession() tea.Cmd {
	return func() tea.Msg {
		sess, err := m.manager.StartNewSession(m.ctx, m.characterName)
		return sessionReadyMsg{session: sess, err: err}
	}
}

func (m ConsoleUI) resumeSession(id string) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.manager.LoadSession(m.ctx, id)
		return sessionReadyMsg{session: sess, err: err}
	}
}

func (m ConsoleUI) deleteSession(id string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.manager.DeleteSession(m.ctx, id); err != nil {
			return sessionsLoadedMsg{err: err}
		}
		list, err := m.manager.ListSessions(m.ctx)
		return sessionsLoadedMsg{sessions: list, err: err}
	}
}

// updateSessionModal drives the start-up picker. Entry 0 starts a new
// adventure; the rest resume saved sessions, newest first.
func (m ConsoleUI) updateSessionModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionsLoadedMsg:
		m.loadingSessions = false
		m.modalErr = msg.err
		m.sessions = msg.sessions
		m.selected = min(m.selected, len(m.sessions))

	case sessionReadyMsg:
		m.loading = false
		if msg.err != nil {
			m.modalErr = msg.err
			return m, nil
		}
		m.showSessionModal = false
		m.snapshot = msg.session
		m.transcript = m.transcript[:0]
		for _, cm := range msg.session.ConversationHistory {
			switch cm.Role {
			case chat.ChatRoleUser:
				m.transcript = append(m.transcript, transcriptLine{kind: linePlayer, text: cm.Content})
			case chat.ChatRoleAgent:
				m.transcript = append(m.transcript, transcriptLine{kind: lineNarration, text: cm.Content})
				m.lastNarration = cm.Content
			}
		}
		if len(m.transcript) == 0 && msg.session.CurrentScene != "" {
			m.transcript = append(m.transcript, transcriptLine{kind: lineNarration, text: msg.session.CurrentScene})
			m.lastNarration = msg.session.CurrentScene
		}
		if msg.session.Status != state.StatusActive {
			m.transcript = append(m.transcript, transcriptLine{kind: lineNote,
				text: fmt.Sprintf("This session is %s. Actions are disabled.", msg.session.Status)})
		}
		if m.width > 0 && m.height > 0 {
			m.layout()
		}
		m.ready = true
		m.writeChatContent()
		m.writeMetadata()
		m.textarea.Focus()
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingSessions || m.loading {
			if msg.Type == tea.KeyCtrlC {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyUp:
			if m.selected > 0 {
				m.selected--
			}
		case tea.KeyDown:
			if m.selected < len(m.sessions) {
				m.selected++
			}
		case tea.KeyEnter:
			m.loading = true
			m.modalErr = nil
			if m.selected == 0 {
				return m, m.startSession()
			}
			return m, m.resumeSession(m.sessions[m.selected-1].SessionID)
		default:
			if msg.String() == "d" && m.selected > 0 {
				m.loadingSessions = true
				return m, m.deleteSession(m.sessions[m.selected-1].SessionID)
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.quitting {
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.quitting = true
		return m, m.save(true)
	case tea.KeyEsc:
		m.showQuitModal = false
	default:
		switch msg.String() {
		case "y", "Y":
			m.quitting = true
			return m, m.save(true)
		case "n", "N":
			m.showQuitModal = false
		}
	}

	if !m.showQuitModal && !m.loading {
		m.textarea.Focus()
		return m, textarea.Blink
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	if m.quitting {
		content.WriteString(noteStyle.Render("Saving your session..."))
	} else {
		content.WriteString("Your session will be saved before exiting.")
		content.WriteString("\n\n")
		content.WriteString(promptStyle.Render("Press Y to quit, N to keep playing, or Ctrl+C to force quit"))
	}

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSessionModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	switch {
	case m.loadingSessions:
		content.WriteString(modalTitleStyle.Render("Loading Sessions..."))
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Preparing Your Adventure..."))
		content.WriteString("\n\n")
		content.WriteString(noteStyle.Render("Reading campaign files and setting the scene..."))
	default:
		content.WriteString(modalTitleStyle.Render("Choose a Session"))
		content.WriteString("\n\n")

		items := make([]string, 0, len(m.sessions)+1)
		items = append(items, "Start a new adventure")
		for _, s := range m.sessions {
			items = append(items, sessionLabel(s))
		}
		for i, item := range items {
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + item))
			} else {
				content.WriteString(modalItemStyle.Render("  " + item))
			}
			content.WriteString("\n")
		}

		if m.modalErr != nil {
			content.WriteString("\n")
			content.WriteString(errorStyle.Render(wordwrap.String(m.modalErr.Error(), 60)))
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ to navigate, Enter to select, d to delete, Esc to exit"))
	}

	modal := modalStyle.Width(70).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showSessionModal {
		return m.renderSessionModal()
	}
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 0))),
			m.textarea.View(),
		),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar animates while the DM is thinking.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	usable = min(max(usable, 10), 80)

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
