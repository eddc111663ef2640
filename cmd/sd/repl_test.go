package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mgomes/sdlang/sd"
)

func newTestREPL(t *testing.T) replModel {
	t.Helper()
	msgs, err := newMessages("en")
	if err != nil {
		t.Fatalf("newMessages: %v", err)
	}
	m := newREPLModel(sd.Config{}, msgs)
	t.Cleanup(m.session.stop)
	return m
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":quit")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateNonQuitCommandDoesNotReturnCmd(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":help")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)

	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
}

func TestUnknownCommandIsLocalized(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":nope")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)
	last := rm.history[len(rm.history)-1]
	if !last.isErr || last.output != "Unknown command: :nope" {
		t.Fatalf("unexpected entry: %+v", last)
	}
}

func TestEvaluateAssignmentStoresVariable(t *testing.T) {
	m := newTestREPL(t)

	entry := m.evaluate("ほげは42")
	if entry.isErr {
		t.Fatalf("unexpected eval error: %s", entry.output)
	}
	if entry.output != "42" {
		t.Fatalf("expected statement value, got %q", entry.output)
	}
	v, ok := m.session.vars()["ほげ"]
	if !ok || v.Int() != 42 {
		t.Fatalf("expected ほげ to be bound, got %v", v)
	}
}

func TestEvaluateShowsPrintedOutput(t *testing.T) {
	m := newTestREPL(t)
	m.evaluate("ほげは「世界」。")

	entry := m.evaluate("「こんにちは【ほげ】」を言う")
	if entry.isErr || entry.output != "こんにちは世界" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestEvaluateBlockSpansLines(t *testing.T) {
	m := newTestREPL(t)

	for _, line := range []string{"1から3まで繰り返す", "それを言う"} {
		entry := m.evaluate(line)
		if !entry.pending || entry.isErr {
			t.Fatalf("%s: expected pending entry, got %+v", line, entry)
		}
	}
	if m.session.proc.Depth() != 1 {
		t.Fatalf("expected one open block, got %d", m.session.proc.Depth())
	}
	entry := m.evaluate("終わり")
	if entry.pending || entry.output != "1\n2\n3" {
		t.Fatalf("unexpected block result: %+v", entry)
	}
}

func TestEvaluateSuppressedError(t *testing.T) {
	m := newTestREPL(t)

	entry := m.evaluate("1を0で割る？")
	if !entry.isErr || !strings.Contains(entry.output, "division by zero") {
		t.Fatalf("expected suppressed error to be shown, got %+v", entry)
	}
	if m.session.proc.Are().Kind() != sd.KindError {
		t.Fatalf("expected ARE to hold the error value")
	}
}

func TestEvaluateFatalErrorKeepsBindings(t *testing.T) {
	m := newTestREPL(t)
	m.evaluate("ほげは1")

	entry := m.evaluate("ぴよを言う")
	if !entry.isErr || entry.output != "line 2: undefined variable (ぴよ)" {
		t.Fatalf("unexpected error entry: %+v", entry)
	}

	entry = m.evaluate("ほげに1を足す")
	if entry.isErr || entry.output != "2" {
		t.Fatalf("session did not recover: %+v", entry)
	}
}

func TestResetClearsBindings(t *testing.T) {
	m := newTestREPL(t)
	m.evaluate("ほげは1")
	m.textInput.SetValue(":reset")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)
	if len(rm.session.vars()) != 0 {
		t.Fatalf("expected empty environment after reset")
	}
	if last := rm.history[len(rm.history)-1]; last.output != "Environment reset" {
		t.Fatalf("unexpected entry: %+v", last)
	}
}

func TestAutocompleteFinishesVerb(t *testing.T) {
	m := newTestREPL(t)
	m.evaluate("カウンタは0")

	m.textInput.SetValue("1を言")
	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "1を言う" {
		t.Fatalf("unexpected completion: %q", got)
	}

	m.textInput.SetValue("カウ")
	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "カウンタ" {
		t.Fatalf("unexpected completion: %q", got)
	}
}

func TestComplete(t *testing.T) {
	matches, overlap := complete("それを割", []string{"割る", "割った余り", "足す"})
	if overlap != "割" || len(matches) != 2 || matches[0] != "割った余り" {
		t.Fatalf("unexpected completions: %v %q", matches, overlap)
	}
	if matches, _ := complete("言う", []string{"言う"}); matches != nil {
		t.Fatalf("complete word should not match itself: %v", matches)
	}
}

func TestTerminate(t *testing.T) {
	cases := map[string]string{
		"ほげは1":   "ほげは1。",
		"ほげは1。":  "ほげは1。",
		"ほげを言う？": "ほげを言う？",
	}
	for in, want := range cases {
		if got := terminate(in); got != want {
			t.Fatalf("terminate(%q) = %q, want %q", in, got, want)
		}
	}
}
