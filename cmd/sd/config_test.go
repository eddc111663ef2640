package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
lang = "en"
trace = true
recursion-limit = 16
step-quota = 1000
`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, err := findConfig(nested)
	if err != nil {
		t.Fatalf("findConfig: %v", err)
	}
	if cfg.Lang != "en" || !cfg.Trace || cfg.TraceTokens {
		t.Fatalf("unexpected flags: %+v", cfg)
	}
	if cfg.RecursionLimit != 16 || cfg.StepQuota != 1000 {
		t.Fatalf("unexpected limits: %+v", cfg)
	}
	want, _ := filepath.Abs(root)
	if cfg.Dir != want {
		t.Fatalf("expected dir %s, got %s", want, cfg.Dir)
	}

	pc := cfg.processorConfig(nil)
	if pc.RecursionLimit != 16 || pc.StepQuota != 1000 || pc.Tracer == nil {
		t.Fatalf("settings not carried into processor config: %+v", pc)
	}
}

func TestFindConfigWithoutFile(t *testing.T) {
	cfg, err := findConfig(t.TempDir())
	if err != nil {
		t.Fatalf("findConfig: %v", err)
	}
	if cfg.Dir != "" || cfg.Lang != "" {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if pc := cfg.processorConfig(nil); pc.Tracer != nil {
		t.Fatalf("tracing enabled without a setting")
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "lang = ", "parse error"},
		{"negative", "step-quota = -1", "must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tc.body)
			_, err := loadConfig(dir)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
		})
	}
}
