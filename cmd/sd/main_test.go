package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgomes/sdlang/sd"
)

func TestRunCLIHelp(t *testing.T) {
	if err := runCLI([]string{"sd", "help"}); err != nil {
		t.Fatalf("runCLI help failed: %v", err)
	}
}

func TestRunCLIInvalidCommand(t *testing.T) {
	err := runCLI([]string{"sd", "unknown"})
	if err == nil {
		t.Fatalf("expected invalid command error")
	}
	if !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCLIWithoutCommand(t *testing.T) {
	err := runCLI([]string{"sd"})
	if err == nil || !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("expected invalid command error, got %v", err)
	}
}

func TestRunCommandRequiresScriptPath(t *testing.T) {
	err := runCommand(nil)
	if err == nil || !strings.Contains(err.Error(), "script path required") {
		t.Fatalf("expected missing path error, got %v", err)
	}
}

func TestRunCommandPrintsOutput(t *testing.T) {
	scriptPath := writeScript(t, "ほげは「世界」。\n「こんにちは【ほげ】」を言う。\n1から2まで繰り返す。\nそれを言う。\n終わり。")

	out, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if out != "こんにちは世界\n1\n2\n" {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestRunCommandSuppressedErrorContinues(t *testing.T) {
	scriptPath := writeScript(t, "1を0で割る？\n「続行」を言う。")

	out, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if strings.TrimSpace(out) != "続行" {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestRunCommandReportsLocalizedFatalError(t *testing.T) {
	scriptPath := writeScript(t, "「前」を言う。\n1を0で割る。\n「後」を言う。")

	cases := []struct {
		lang string
		want string
	}{
		{"en", "line 2: division by zero (割る)"},
		{"ja", "2行目: ゼロで割ることはできません (割る)"},
	}
	for _, tc := range cases {
		out, err := captureStdout(t, func() error {
			return runCommand([]string{"-lang", tc.lang, scriptPath})
		})
		if err == nil {
			t.Fatalf("%s: expected fatal error", tc.lang)
		}
		if err.Error() != tc.want {
			t.Fatalf("%s: unexpected error text %q", tc.lang, err.Error())
		}
		var re *sd.RuntimeError
		if !errors.As(err, &re) || re.Kind != sd.ErrDivisionByZero {
			t.Fatalf("%s: expected runtime error to stay reachable, got %v", tc.lang, err)
		}
		if out != "前\n" {
			t.Fatalf("%s: statements after the failure ran: %q", tc.lang, out)
		}
	}
}

func TestRunCommandLexErrorRunsNothing(t *testing.T) {
	scriptPath := writeScript(t, "「前」を言う。\nほげは「閉じない")

	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-lang", "en", scriptPath})
	})
	var le *sd.LexError
	if !errors.As(err, &le) || le.Kind != sd.LexUnterminatedString {
		t.Fatalf("expected unterminated string, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "line 2: unterminated string") {
		t.Fatalf("unexpected error text %q", err.Error())
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestRunCommandAppliesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	config := "lang = \"en\"\nrecursion-limit = 2\n"
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	sub := filepath.Join(dir, "src")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	scriptPath := filepath.Join(sub, "main.sd")
	if err := os.WriteFile(scriptPath, []byte("無限とは\n無限。\n終わり。\n無限。"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	_, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	var re *sd.RuntimeError
	if !errors.As(err, &re) || re.Kind != sd.ErrRecursion {
		t.Fatalf("expected recursion limit error, got %v", err)
	}
	if !strings.Contains(err.Error(), "recursion limit exceeded") {
		t.Fatalf("expected english message from sd.toml, got %q", err.Error())
	}
}

func TestRunCommandRejectsUnknownLanguage(t *testing.T) {
	scriptPath := writeScript(t, "ほげは1。")
	if err := runCommand([]string{"-lang", "not a tag", scriptPath}); err == nil {
		t.Fatalf("expected invalid language error")
	}
}

func writeScript(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sd")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("read stdout: %v", copyErr)
	}
	_ = r.Close()
	return buf.String(), runErr
}
