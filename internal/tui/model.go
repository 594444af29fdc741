package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	foundStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	responseStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type replyMsg Reply

// Model is the Bubble Tea model for an interactive session.
type Model struct {
	ctx        context.Context
	session    *Session
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	transcript []string
	searching  bool
}

// New creates the model. ctx bounds every search it starts.
func New(ctx context.Context, session *Session) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Enter your query"
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
	m.appendLines(
		titleStyle.Render("Book RAG CLI - Interactive Mode"),
		subtleStyle.Render("Type 'exit' or 'quit' to end the session"),
		subtleStyle.Render("Type 'indexes' to list available book indexes"),
		"Available book indexes: "+strings.Join(session.Available(), ", "),
		subtleStyle.Render("Currently searching in: "+strings.Join(session.Active(), ", ")),
	)
	return m
}

// Init starts the cursor blinking.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window, spinner and search result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		iw, ih := inputStyle.GetFrameSize()
		m.viewport.Width = msg.Width
		m.viewport.Height = max(3, msg.Height-ih-3)
		m.input.Width = max(10, msg.Width-iw-3)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter && !m.searching {
			return m.submit()
		}

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case replyMsg:
		m.searching = false
		m.showReply(Reply(msg))
		m.appendLines(subtleStyle.Render("Currently searching in: " + strings.Join(m.session.Active(), ", ")))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.Reset()

	action := m.session.Handle(line)
	switch action.Kind {
	case ActionQuit:
		m.appendLines(action.Text)
		return m, tea.Quit
	case ActionPrompt:
		m.input.Placeholder = "classic-moby-dick, classic-frankenstein or all"
		m.appendLines(action.Text)
		return m, nil
	case ActionNotice:
		m.input.Placeholder = "Enter your query"
		m.appendLines(subtleStyle.Render(action.Text))
		return m, nil
	}

	m.searching = true
	m.appendLines("", titleStyle.Render("Searching for: "+action.Query+"..."))
	session, ctx, query := m.session, m.ctx, action.Query
	search := func() tea.Msg {
		return replyMsg(session.Search(ctx, query))
	}
	return m, tea.Batch(search, m.spinner.Tick)
}

func (m *Model) showReply(r Reply) {
	if r.Focused != "" {
		m.appendLines(fmt.Sprintf("Query specifically mentions %s, focusing on that index.", r.Focused))
	}
	for _, index := range r.Found {
		m.appendLines(foundStyle.Render("✓ Found relevant content in " + index))
	}

	switch {
	case r.Err != nil:
		m.appendLines(errorStyle.Render("Error: " + r.Err.Error()))
	case r.Answer == "":
		m.appendLines(r.Message)
	default:
		width := m.viewport.Width - 4
		if width < 20 {
			width = 76
		}
		m.appendLines("", titleStyle.Render("Response:"), responseStyle.Width(width).Render(r.Answer))
	}
}

func (m *Model) appendLines(lines ...string) {
	m.transcript = append(m.transcript, lines...)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.transcript, "\n"))
	m.viewport.GotoBottom()
}

// Transcript returns everything shown so far.
func (m Model) Transcript() string {
	return strings.Join(m.transcript, "\n")
}

// View renders the transcript above the input box.
func (m Model) View() string {
	status := subtleStyle.Render("enter to send, ctrl+c to quit")
	if m.searching {
		status = m.spinner.View() + " Generating response..."
	}
	return m.viewport.View() + "\n" + inputStyle.Render(m.input.View()) + "\n" + status
}
