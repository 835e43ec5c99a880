package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bridge"
	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	cfg      *config.BridgeConfig
	logger   *zap.Logger
	eng      *engine.Engine
	bridge   *bridge.Bridge
	result   string
	ops      []opInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type opInfo struct {
	name   string
	sig    bridge.Signature
	params []paramInfo
}

type paramInfo struct {
	name    string
	witType wit.Type
	typeStr string
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(cfg *config.BridgeConfig, logger *zap.Logger) *interactiveModel {
	return &interactiveModel{
		cfg:    cfg,
		logger: logger,
		state:  stateSelectOp,
	}
}

type loadedMsg struct {
	err    error
	eng    *engine.Engine
	bridge *bridge.Bridge
	ops    []opInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadGuest
}

func (m *interactiveModel) loadGuest() tea.Msg {
	ctx := context.Background()

	eng, b, err := setup(ctx, m.cfg, m.logger)
	if err != nil {
		return loadedMsg{err: err}
	}

	var ops []opInfo
	for _, name := range b.Operations() {
		sig, _ := b.Lookup(name)
		oi := opInfo{name: name, sig: sig}
		switch sig.Kind {
		case bridge.OpText:
			oi.params = []paramInfo{{name: "input", typeStr: "text"}}
		case bridge.OpStructured:
			oi.params = []paramInfo{{name: "input", typeStr: "json"}}
		case bridge.OpNumeric:
			for i, t := range sig.Params {
				oi.params = append(oi.params, paramInfo{
					name:    fmt.Sprintf("arg%d", i),
					witType: t,
					typeStr: witTypeStr(t),
				})
			}
		}
		ops = append(ops, oi)
	}

	return loadedMsg{eng: eng, bridge: b, ops: ops}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.eng != nil {
				_ = m.eng.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOperation
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callOperation

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng
		m.bridge = msg.bridge
		m.ops = msg.ops

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callOperation() tea.Msg {
	ctx := context.Background()
	if m.bridge == nil {
		return callResultMsg{err: fmt.Errorf("guest not loaded")}
	}

	op := m.ops[m.selected]
	switch op.sig.Kind {
	case bridge.OpText:
		out, err := m.bridge.CallText(ctx, op.name, m.inputs[0].Value())
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: out}

	case bridge.OpStructured:
		var in any
		raw := m.inputs[0].Value()
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &in); err != nil {
				return callResultMsg{err: fmt.Errorf("parse input: %w", err)}
			}
		}
		out, err := m.bridge.CallStructuredAny(ctx, op.name, in)
		if err != nil {
			return callResultMsg{err: err}
		}
		pretty, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return callResultMsg{err: err}
		}
		return callResultMsg{result: string(pretty)}

	default:
		args := make([]uint64, len(m.inputs))
		for i, input := range m.inputs {
			args[i] = convertArg(input.Value(), op.params[i].witType)
		}
		results, err := m.bridge.CallNumeric(ctx, op.name, args...)
		if err != nil {
			return callResultMsg{err: err}
		}
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = strconv.FormatInt(int64(int32(r)), 10)
		}
		return callResultMsg{result: strings.Join(parts, ", ")}
	}
}

// convertArg turns a typed field value into its stack representation.
func convertArg(value string, t wit.Type) uint64 {
	switch t.(type) {
	case wit.U8, wit.U16, wit.U32:
		v, _ := strconv.ParseUint(value, 10, 32)
		return v
	case wit.S8, wit.S16, wit.S32:
		v, _ := strconv.ParseInt(value, 10, 32)
		return uint64(uint32(int32(v)))
	case wit.U64:
		v, _ := strconv.ParseUint(value, 10, 64)
		return v
	case wit.S64:
		v, _ := strconv.ParseInt(value, 10, 64)
		return uint64(v)
	case wit.Bool:
		if value == "true" || value == "1" {
			return 1
		}
		return 0
	default:
		v, _ := strconv.ParseUint(value, 10, 64)
		return v
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.ops) == 0 {
		return "Loading guest..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge Runner"))
	b.WriteString(" ")
	b.WriteString(m.cfg.Module)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select an operation to call:\n\n")
		for i, op := range m.ops {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatOp(op)))
			} else {
				b.WriteString(cursor + m.formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", opStyle.Render(op.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(op.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", opStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatOp(op opInfo) string {
	var params []string
	for _, p := range op.params {
		params = append(params, p.name+": "+typeStyle.Render(p.typeStr))
	}
	result := ""
	switch op.sig.Kind {
	case bridge.OpText:
		result = " -> " + typeStyle.Render("text")
	case bridge.OpStructured:
		result = " -> " + typeStyle.Render("json")
	case bridge.OpNumeric:
		if len(op.sig.Results) > 0 {
			var results []string
			for _, t := range op.sig.Results {
				results = append(results, typeStyle.Render(witTypeStr(t)))
			}
			result = " -> " + strings.Join(results, ", ")
		}
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func witTypeStr(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func runInteractive(cfg *config.BridgeConfig, logger *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(cfg, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
