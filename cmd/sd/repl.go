package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mgomes/sdlang/sd"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

const (
	prompt             = "sd> "
	continuationPrompt = "..> "
)

var replKeywords = []string{
	"もし", "もしくは", "違えば", "終わり", "繰り返す", "返す", "抜ける", "続ける",
	"真", "偽", "無", "それ", "あれ", "配列", "長さ",
}

type historyEntry struct {
	input   string
	output  string
	isErr   bool
	pending bool
}

// syncBuffer collects processor output between prompts.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimRight(b.buf.String(), "\n")
	b.buf.Reset()
	return s
}

// replSession keeps one processor reading from a feed in the background.
// Every entered line is written to the feed and the session waits until
// the processor asks for more text or stops on a fatal error. A stopped
// run is restarted on a fresh feed over the same processor, so bindings
// survive errors.
type replSession struct {
	cfg     sd.Config
	proc    *sd.Processor
	out     *syncBuffer
	feed    *sd.Feed
	done    chan error
	stopped bool
}

func newREPLSession(cfg sd.Config) *replSession {
	s := &replSession{out: new(syncBuffer)}
	cfg.Output = s.out
	s.cfg = cfg
	s.proc = sd.NewProcessor(cfg)
	s.start()
	return s
}

func (s *replSession) start() {
	feed := sd.NewFeed()
	done := make(chan error, 1)
	s.feed, s.done, s.stopped = feed, done, false
	proc, tracer := s.proc, s.cfg.Tracer
	go func() {
		lx := sd.NewLexer(sd.NewReader(feed))
		if tracer != nil {
			lx.SetTracer(tracer)
		}
		done <- proc.Run(context.Background(), lx)
	}()
}

// eval runs one line. A nil error with pending set means the line opened or
// continued a block that has not been closed yet.
func (s *replSession) eval(line string) (output string, pending bool, err error) {
	s.feed.Feed(terminate(line) + "\n")
	select {
	case <-s.feed.Idle():
		return s.out.take(), s.proc.Depth() > 0, nil
	case err = <-s.done:
		s.start()
		if err == nil {
			err = errors.New("session ended")
		}
		return s.out.take(), false, err
	}
}

func (s *replSession) stop() {
	if s.stopped {
		return
	}
	_ = s.feed.Close()
	<-s.done
	s.stopped = true
}

func (s *replSession) reset() {
	s.stop()
	s.proc = sd.NewProcessor(s.cfg)
	s.start()
}

func (s *replSession) vars() map[string]sd.Value {
	return s.proc.Scopes().Snapshot(0)
}

func (s *replSession) funcs() []string {
	var names []string
	for name := range s.proc.Scopes().At(0).Funcs {
		names = append(names, name)
	}
	return names
}

func terminate(line string) string {
	for _, end := range []string{"。", "？", "?"} {
		if strings.HasSuffix(line, end) {
			return line
		}
	}
	return line + "。"
}

type replModel struct {
	textInput   textinput.Model
	session     *replSession
	msgs        *messages
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showVars    bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	Tab   key.Binding
	CtrlV key.Binding
	CtrlH key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous command"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next command"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "execute"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "autocomplete"),
	),
	CtrlV: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "toggle vars"),
	),
	CtrlH: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
}

func newREPLModel(cfg sd.Config, msgs *messages) replModel {
	ti := textinput.New()
	ti.Placeholder = "文を入力..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = prompt

	return replModel{
		textInput:  ti,
		session:    newREPLSession(cfg),
		msgs:       msgs,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlV):
			m.showVars = !m.showVars
			return m, nil

		case key.Matches(msg, keys.CtrlH):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			m.history = append(m.history, m.evaluate(input))
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			if m.session.proc.Depth() > 0 {
				m.textInput.Prompt = continuationPrompt
			} else {
				m.textInput.Prompt = prompt
			}
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":vars", ":v":
		m.showVars = !m.showVars
	case ":reset", ":r":
		m.session.reset()
		m.textInput.Prompt = prompt
		m.history = append(m.history, historyEntry{
			input:  input,
			output: m.msgs.text("session_reset", nil),
		})
	case ":quit", ":q":
		m.session.stop()
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: m.msgs.text("unknown_command", map[string]any{"Command": cmd}),
			isErr:  true,
		})
	}
	return m, nil
}

// evaluate shows what the line printed, or else the statement value. A
// suppressed failure is reported from the error value left in SORE.
func (m replModel) evaluate(input string) historyEntry {
	entry := historyEntry{input: input}
	output, pending, err := m.session.eval(input)
	switch {
	case err != nil:
		entry.isErr = true
		entry.output = m.msgs.describe(err)
		if output != "" {
			entry.output = output + "\n" + entry.output
		}
	case pending:
		entry.pending = true
		entry.output = output
	case output != "":
		entry.output = output
	default:
		sore := m.session.proc.Sore()
		if sore.Kind() == sd.KindError {
			entry.isErr = true
			entry.output = m.msgs.describe(sore.Err())
		} else {
			entry.output = sore.String()
		}
	}
	return entry
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	if input == "" {
		return m
	}

	candidates := slices.Concat(m.session.proc.Builtins(), replKeywords, m.session.funcs())
	for name := range m.session.vars() {
		candidates = append(candidates, name)
	}
	completions, overlap := complete(input, candidates)

	if len(completions) == 1 {
		m.textInput.SetValue(input + strings.TrimPrefix(completions[0], overlap))
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "候補: " + strings.Join(completions, ", "),
		})
	}
	return m
}

// complete finds the candidates that continue the end of input. Japanese has
// no word breaks, so the longest tail of input that starts a candidate wins.
func complete(input string, candidates []string) ([]string, string) {
	runes := []rune(input)
	for start := 0; start < len(runes); start++ {
		tail := string(runes[start:])
		var matches []string
		for _, c := range candidates {
			if c != tail && strings.HasPrefix(c, tail) && !slices.Contains(matches, c) {
				matches = append(matches, c)
			}
		}
		if len(matches) > 0 {
			slices.Sort(matches)
			return matches, tail
		}
	}
	return nil, ""
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("さようなら\n")
	}

	var b strings.Builder

	header := headerStyle.Render("sd REPL")
	version := mutedStyle.Render("v0.1.0")
	b.WriteString(header + " " + version + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(m.width-2, 60))) + "\n\n")

	vars := m.session.vars()
	reservedLines := 8
	if m.showHelp {
		reservedLines += 10
	}
	if m.showVars {
		reservedLines += len(vars) + 3
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = len(m.history) - availableHeight
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		switch {
		case entry.isErr:
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		case entry.pending:
			if entry.output != "" {
				b.WriteString("  " + mutedStyle.Render(entry.output) + "\n")
			}
			continue
		default:
			b.WriteString("  " + resultStyle.Render("→ "+entry.output) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showVars {
		b.WriteString(renderVarsPanel(vars, m.msgs))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+v") + helpDescStyle.Render(" vars  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func renderVarsPanel(vars map[string]sd.Value, msgs *messages) string {
	if len(vars) == 0 {
		return borderStyle.Render(mutedStyle.Render(msgs.text("no_variables", nil)))
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Variables"))
	varNameStyle := lipgloss.NewStyle().Foreground(highlightColor)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("  %s = %s", varNameStyle.Render(name), vars[name].String()))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate command history"},
		{"Tab", "Autocomplete"},
		{"Enter", "Execute statement (。 is added when missing)"},
		{":help", "Toggle this help"},
		{":vars", "Toggle variables panel"},
		{":clear", "Clear history"},
		{":reset", "Reset environment"},
		{":quit", "Exit REPL"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-8s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	lang := fs.String("lang", "", "message language (ja or en)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	cfg, err := findConfig(wd)
	if err != nil {
		return err
	}
	if *lang != "" {
		cfg.Lang = *lang
	}
	msgs, err := newMessages(cfg.Lang)
	if err != nil {
		return err
	}
	// trace output would draw over the alternate screen
	cfg.Trace, cfg.TraceTokens = false, false
	return runREPL(newREPLModel(cfg.processorConfig(nil), msgs))
}

func runREPL(m replModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	m.session.stop()
	return err
}
