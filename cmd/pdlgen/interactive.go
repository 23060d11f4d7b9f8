package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/pdlgen/gen"
	"github.com/wippyai/pdlgen/interp"
	"github.com/wippyai/pdlgen/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	declStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	opStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	scope    *schema.Scope
	runtime  *interp.Runtime
	filename string
	decls    []declInfo
	ops      *gen.PacketOps
	values   []string
	input    textinput.Model
	selected int
	state    modelState
}

type declInfo struct {
	id      string
	kind    string
	summary string
}

type modelState int

const (
	stateSelectDecl modelState = iota
	stateInputBytes
	stateShowResult
)

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		state:    stateSelectDecl,
	}
}

type loadedMsg struct {
	err   error
	scope *schema.Scope
	decls []declInfo
}

type decodeResultMsg struct {
	err    error
	values []string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadSchema
}

func (m *interactiveModel) loadSchema() tea.Msg {
	f, err := os.Open(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}
	defer f.Close()

	scope, err := schema.Load(f)
	if err != nil {
		return loadedMsg{err: err}
	}

	var decls []declInfo
	for _, d := range scope.Decls() {
		if d.Kind == schema.DeclEnum {
			continue
		}
		decls = append(decls, declInfo{
			id:      d.ID,
			kind:    d.Kind.String(),
			summary: declSummary(d),
		})
	}

	return loadedMsg{scope: scope, decls: decls}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputBytes || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectDecl && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectDecl && m.selected < len(m.decls)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectDecl:
				if err := m.prepareDecl(); err != nil {
					m.err = err
					m.state = stateShowResult
					return m, nil
				}
				m.state = stateInputBytes

			case stateInputBytes:
				return m, m.decodeBytes

			case stateShowResult:
				m.state = stateSelectDecl
				m.ops = nil
				m.values = nil
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputBytes:
				m.state = stateSelectDecl
				m.ops = nil
			case stateShowResult:
				m.state = stateSelectDecl
				m.ops = nil
				m.values = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.scope = msg.scope
		m.decls = msg.decls
		m.runtime = interp.New(msg.scope)

	case decodeResultMsg:
		m.values = msg.values
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputBytes {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) prepareDecl() error {
	d := m.decls[m.selected]
	ops, err := gen.NewGenerator(m.scope).Generate(d.id)
	if err != nil {
		return err
	}
	m.ops = ops

	ti := textinput.New()
	ti.Placeholder = "hex bytes, e.g. b1 c8"
	ti.Prompt = "decode: "
	ti.Width = 48
	ti.Focus()
	m.input = ti
	return nil
}

func (m *interactiveModel) decodeBytes() tea.Msg {
	raw := strings.ReplaceAll(m.input.Value(), " ", "")
	if raw == "" {
		return decodeResultMsg{}
	}
	data, err := hex.DecodeString(raw)
	if err != nil {
		return decodeResultMsg{err: err}
	}

	values, err := m.runtime.Decode(m.decls[m.selected].id, data)
	if err != nil {
		return decodeResultMsg{err: err}
	}

	lines := make([]string, 0, len(values))
	for field, value := range values {
		lines = append(lines, fmt.Sprintf("%s = %v", field, value))
	}
	sort.Strings(lines)
	return decodeResultMsg{values: lines}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.decls) == 0 {
		return "Loading schema..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("PDL Explorer"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectDecl:
		b.WriteString("Select a declaration:\n\n")
		for i, d := range m.decls {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatDecl(d)))
			} else {
				b.WriteString(cursor + m.formatDecl(d))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter open • q quit"))

	case stateInputBytes:
		d := m.decls[m.selected]
		b.WriteString(fmt.Sprintf("%s\n\n", declStyle.Render(d.id)))
		b.WriteString(m.formatOps())
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter decode • esc back"))

	case stateShowResult:
		d := m.decls[m.selected]
		b.WriteString(fmt.Sprintf("Decoded %s:\n\n", declStyle.Render(d.id)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else if len(m.values) == 0 {
			b.WriteString(helpStyle.Render("(no input)"))
		} else {
			for _, line := range m.values {
				b.WriteString(opStyle.Render("  " + line))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatDecl(d declInfo) string {
	return declStyle.Render(d.id) + " " + kindStyle.Render(d.kind) + helpStyle.Render(d.summary)
}

func (m *interactiveModel) formatOps() string {
	var b strings.Builder
	b.WriteString(kindStyle.Render("decode:"))
	b.WriteString("\n")
	for _, op := range m.ops.Decode {
		b.WriteString(opStyle.Render("  " + op.String()))
		b.WriteString("\n")
	}
	b.WriteString(kindStyle.Render("encode:"))
	b.WriteString("\n")
	for _, op := range m.ops.Encode {
		b.WriteString(opStyle.Render("  " + op.String()))
		b.WriteString("\n")
	}
	return b.String()
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
