package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"
)

func TestTokensCommandYAML(t *testing.T) {
	scriptPath := writeScript(t, "ほげは42。")

	out, err := captureStdout(t, func() error {
		return tokensCommand([]string{"-format", "yaml", scriptPath})
	})
	if err != nil {
		t.Fatalf("tokensCommand failed: %v", err)
	}

	var records []tokenRecord
	if err := yaml.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("output is not yaml: %v\n%s", err, out)
	}
	want := []tokenRecord{
		{Line: 1, Type: "ASSIGNMENT", Content: "ほげ"},
		{Line: 1, Type: "VALUE", Sub: "NUMBER", Content: "42"},
		{Line: 1, Type: "EOL", Content: "。"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %v", len(want), records)
	}
	for i := range want {
		if records[i] != want[i] {
			t.Fatalf("record %d: expected %+v, got %+v", i, want[i], records[i])
		}
	}
}

func TestTokenTableAlignsWideText(t *testing.T) {
	records := []tokenRecord{
		{Line: 1, Type: "ASSIGNMENT", Content: "ほげ"},
		{Line: 1, Type: "VALUE", Sub: "STRING", Content: "「abc」"},
		{Line: 12, Type: "EOL", Content: "。"},
	}
	var buf bytes.Buffer
	if err := writeTokenTable(&buf, records); err != nil {
		t.Fatalf("writeTokenTable: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %q", buf.String())
	}
	types := []string{"TYPE", "ASSIGNMENT", "VALUE", "EOL"}
	column := -1
	for i, line := range lines {
		at := strings.Index(line, types[i])
		if at < 0 {
			t.Fatalf("row %q lacks %s", line, types[i])
		}
		width := runewidth.StringWidth(line[:at])
		if column == -1 {
			column = width
		} else if width != column {
			t.Fatalf("misaligned row %q: type column at %d, want %d", line, width, column)
		}
	}
}

func TestTokensCommandErrors(t *testing.T) {
	if err := tokensCommand(nil); err == nil || !strings.Contains(err.Error(), "script path required") {
		t.Fatalf("expected missing path error, got %v", err)
	}
	scriptPath := writeScript(t, "ほげは1。")
	if err := tokensCommand([]string{"-format", "xml", scriptPath}); err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected format error, got %v", err)
	}
	bad := writeScript(t, "「閉じない")
	_, err := captureStdout(t, func() error {
		return tokensCommand([]string{"-lang", "en", bad})
	})
	if err == nil || !strings.Contains(err.Error(), "unterminated string") {
		t.Fatalf("expected lexical error, got %v", err)
	}
}
