// Package tui is an interactive terminal chat over the indexed documents.
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

	"github.com/NiteeshPutla/agentic-rag/internal/app"
)

// ChatPort is the TUI-facing subset of the application.
type ChatPort interface {
	Ask(ctx context.Context, question string) (app.AskResult, error)
	Ingest(ctx context.Context, paths []string, reset bool) (app.IngestReport, error)
}

type entry struct {
	role string // "you", "assistant", "system"
	text string
	meta string
}

type answerMsg struct {
	result app.AskResult
	err    error
}

type ingestMsg struct {
	report app.IngestReport
	err    error
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	ctx        context.Context
	service    ChatPort
	input      textinput.Model
	viewport   viewport.Model
	spinner    spinner.Model
	transcript []entry
	status     string
	busy       bool
	ready      bool
}

// New creates a chat model. ctx bounds every request the UI makes.
func New(ctx context.Context, service ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, /ingest <paths>, or quit"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		service:  service,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Ready.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and result messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, fh := transcriptStyle.GetFrameSize()
		_, qh := inputStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, input line
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-fh)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.transcript = append(m.transcript, entry{role: "system", text: msg.err.Error()})
		} else {
			m.status = "Ready."
			m.transcript = append(m.transcript, entry{
				role: "assistant",
				text: msg.result.Answer,
				meta: answerMeta(msg.result),
			})
		}
		m.refresh()
		return m, nil

	case ingestMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Ingestion failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Indexed %d documents (%d chunks).", msg.report.Documents, msg.report.Chunks)
		}
		m.transcript = append(m.transcript, entry{role: "system", text: m.status})
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.busy {
		return m, nil
	}
	m.input.SetValue("")

	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return m, tea.Quit
	}

	m.busy = true
	if paths, ok := strings.CutPrefix(line, "/ingest"); ok {
		fields := strings.Fields(paths)
		if len(fields) == 0 {
			m.busy = false
			m.status = "Usage: /ingest <path> [path...]"
			return m, nil
		}
		m.status = "Ingesting..."
		m.transcript = append(m.transcript, entry{role: "you", text: line})
		m.refresh()
		return m, tea.Batch(m.spinner.Tick, m.ingest(fields))
	}

	m.status = "Thinking..."
	m.transcript = append(m.transcript, entry{role: "you", text: line})
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, m.ask(line))
}

func (m Model) ask(question string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.service.Ask(m.ctx, question)
		return answerMsg{result: result, err: err}
	}
}

func (m Model) ingest(paths []string) tea.Cmd {
	return func() tea.Msg {
		report, err := m.service.Ingest(m.ctx, paths, false)
		return ingestMsg{report: report, err: err}
	}
}

// View renders header, transcript, input and status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Agentic RAG")
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		transcriptStyle.Render(m.viewport.View()) + "\n" +
		inputStyle.Render(m.input.View()) + "\n" +
		status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m Model) render() string {
	if len(m.transcript) == 0 {
		return metaStyle.Render("Ask a question about your documents.")
	}
	width := max(10, m.viewport.Width-2)
	var sb strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch e.role {
		case "you":
			sb.WriteString(userStyle.Render("You: "))
		case "assistant":
			sb.WriteString(assistantStyle.Render("Assistant: "))
		default:
			sb.WriteString(metaStyle.Render("* "))
		}
		sb.WriteString(lipgloss.NewStyle().Width(width).Render(e.text))
		if e.meta != "" {
			sb.WriteString("\n" + metaStyle.Render(e.meta))
		}
	}
	return sb.String()
}

func answerMeta(r app.AskResult) string {
	meta := fmt.Sprintf("attempts: %d  validated: %t", r.Attempts, r.Validated)
	if len(r.Sources) > 0 {
		meta += "  sources: " + strings.Join(r.Sources, ", ")
	}
	return meta
}

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	metaStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, service ChatPort) error {
	_, err := tea.NewProgram(New(ctx, service), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
