package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bczsl/internal/domain"
	"bczsl/internal/pipeline"
)

// Inspector is the explorer-facing subset of an inference session.
type Inspector interface {
	Len() int
	Inspect(i, k int) (*pipeline.Inspection, error)
}

// Model is the Bubble Tea model for the sample explorer.
type Model struct {
	source   Inspector
	topK     int
	input    textinput.Model
	viewport viewport.Model
	current  *pipeline.Inspection
	summary  string
	status   string
	cursor   int
	ready    bool
}

// New creates an explorer positioned on the first sample.
func New(source Inspector, summary string, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "# "
	ti.Placeholder = "Sample index, Enter to jump"
	ti.Focus()
	ti.CharLimit = 8
	vp := viewport.New(0, 0)
	m := Model{source: source, topK: topK, input: ti, viewport: vp, summary: summary}
	m.load(0)
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		n := m.source.Len()
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			i, err := strconv.Atoi(q)
			if err != nil {
				m.status = fmt.Sprintf("Not a sample index: %q", q)
				return m, nil
			}
			m.input.SetValue("")
			m.load(i)
			m.viewport.SetContent(m.renderCurrent())
			return m, nil
		case "down":
			if n > 0 {
				m.load((m.cursor + 1) % n)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		case "up":
			if n > 0 {
				m.load((m.cursor - 1 + n) % n)
				m.viewport.SetContent(m.renderCurrent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) load(i int) {
	n := m.source.Len()
	if n == 0 {
		m.current = nil
		m.status = "No samples."
		return
	}
	got, err := m.source.Inspect(i, m.topK)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.cursor = i
	m.current = got
	m.status = fmt.Sprintf("Sample %d/%d", i+1, n)
}

// View renders the explorer layout and the current sample.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Zero-Shot Explorer")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	c := m.current
	if c == nil {
		return "No sample loaded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Sample %d  true=%s\n\n", c.Index, c.TrueLabel)
	fmt.Fprintf(&b, "Seen prediction: %s\n", markMatch(c.Seen, c.TrueLabel))
	b.WriteString(renderScores(c.Probabilities, c.Seen))
	if c.ZeroShot != "" {
		fmt.Fprintf(&b, "\nZero-shot prediction: %s\n", markMatch(c.ZeroShot, c.TrueLabel))
		b.WriteString(renderScores(c.Ranking, c.ZeroShot))
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

func markMatch(pred, truth string) string {
	if pred == truth {
		return highlightStyle.Render(pred)
	}
	return pred
}

func renderScores(scores []domain.ScoredLabel, chosen string) string {
	var b strings.Builder
	for _, s := range scores {
		line := fmt.Sprintf("  %-16s %.3f", s.Label, s.Score)
		if s.Label == chosen {
			line = highlightStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
