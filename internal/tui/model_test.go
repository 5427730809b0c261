package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"bczsl/internal/domain"
	"bczsl/internal/pipeline"
)

type fakeInspector struct {
	labels []string
	calls  []int
}

func (f *fakeInspector) Len() int { return len(f.labels) }

func (f *fakeInspector) Inspect(i, k int) (*pipeline.Inspection, error) {
	f.calls = append(f.calls, i)
	if i < 0 || i >= len(f.labels) {
		return nil, errors.New("out of range")
	}
	return &pipeline.Inspection{
		Index:         i,
		TrueLabel:     f.labels[i],
		Seen:          "benign",
		Probabilities: []domain.ScoredLabel{{Label: "benign", Score: 0.9}, {Label: "malignant", Score: 0.1}},
		ZeroShot:      "malignant",
		Ranking:       []domain.ScoredLabel{{Label: "malignant", Score: 0.4}},
	}, nil
}

func TestModel_Navigation(t *testing.T) {
	src := &fakeInspector{labels: []string{"benign", "malignant", "benign"}}
	m := New(src, "summary", 3)
	if m.cursor != 0 || m.current == nil {
		t.Fatalf("initial state: cursor=%d current=%v", m.cursor, m.current)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	if m.cursor != 2 {
		t.Fatalf("up from 0 should wrap to 2, got %d", m.cursor)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	if m.cursor != 0 {
		t.Fatalf("down from 2 should wrap to 0, got %d", m.cursor)
	}
}

func TestModel_JumpByIndex(t *testing.T) {
	src := &fakeInspector{labels: []string{"a", "b", "c"}}
	m := New(src, "", 1)
	m.input.SetValue("2")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if m.cursor != 2 || m.current.TrueLabel != "c" {
		t.Fatalf("jump failed: cursor=%d current=%+v", m.cursor, m.current)
	}

	m.input.SetValue("nope")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !strings.Contains(m.status, "Not a sample index") || m.cursor != 2 {
		t.Fatalf("bad input should keep position, status=%q cursor=%d", m.status, m.cursor)
	}

	m.input.SetValue("9")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if !strings.HasPrefix(m.status, "Error:") || m.cursor != 2 {
		t.Fatalf("out of range should report error, status=%q cursor=%d", m.status, m.cursor)
	}
}

func TestModel_View(t *testing.T) {
	src := &fakeInspector{labels: []string{"benign"}}
	m := New(src, "2 classes", 2)
	if got := m.View(); got != "Loading..." {
		t.Fatalf("view before size = %q", got)
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)
	view := m.View()
	for _, want := range []string{"Zero-Shot Explorer", "2 classes", "Sample 1/1"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	body := m.renderCurrent()
	for _, want := range []string{"true=benign", "Seen prediction", "Zero-shot prediction", "malignant"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestModel_Quit(t *testing.T) {
	m := New(&fakeInspector{}, "", 1)
	if m.current != nil || m.status != "No samples." {
		t.Fatalf("empty source state: %+v %q", m.current, m.status)
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
