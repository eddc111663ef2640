package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mgomes/sdlang/sd"
)

const indentUnit = "  "

func fmtCommand(args []string) error {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	write := fs.Bool("w", false, "write result to source files instead of stdout")
	check := fs.Bool("check", false, "fail if any source file needs formatting")
	if err := fs.Parse(args); err != nil {
		return err
	}

	targets := fs.Args()
	if len(targets) == 0 {
		return errors.New("sd fmt: path required")
	}

	files, err := collectScriptFiles(targets)
	if err != nil {
		return err
	}

	changedCount := 0
	for _, path := range files {
		originalBytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		original := string(originalBytes)
		formatted, err := formatSource(original)
		if err != nil {
			return fmt.Errorf("format %s: %w", path, err)
		}
		changed := formatted != original
		if changed {
			changedCount++
		}

		switch {
		case *write && changed:
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
		case !*write && !*check:
			fmt.Print(formatted)
		}
	}

	if *check && changedCount > 0 {
		return fmt.Errorf("sd fmt: %d file(s) need formatting", changedCount)
	}
	return nil
}

func collectScriptFiles(targets []string) ([]string, error) {
	seen := make(map[string]struct{})
	files := make([]string, 0)
	addFile := func(path string) {
		if filepath.Ext(path) != ".sd" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", target, err)
		}
		if !info.IsDir() {
			addFile(target)
			continue
		}
		err = filepath.WalkDir(target, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if entry.IsDir() {
				return nil
			}
			addFile(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", target, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// formatSource trims trailing blanks and indents block bodies by nesting
// depth. Lines that continue a multi-line string are left untouched.
func formatSource(source string) (string, error) {
	normalized := strings.ReplaceAll(source, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	tokens, err := sd.NewLexer(sd.NewReader(strings.NewReader(normalized))).Tokens()
	if err != nil {
		return "", err
	}
	byLine := make(map[int][]sd.Token)
	for _, tok := range tokens {
		byLine[tok.Line] = append(byLine[tok.Line], tok)
	}

	lines := strings.Split(normalized, "\n")
	depth, quoted := 0, 0
	for i, line := range lines {
		inString := quoted > 0
		quoted += strings.Count(line, "「") - strings.Count(line, "」")

		indent := depth
		for j, tok := range byLine[i+1] {
			switch tok.Type {
			case sd.TokenBlockEnd:
				depth--
				if j == 0 {
					indent = depth
				}
			case sd.TokenElseIf, sd.TokenElse:
				if j == 0 {
					indent = depth - 1
				}
			case sd.TokenIf, sd.TokenLoop, sd.TokenFunctionDef:
				depth++
			}
		}
		if inString {
			continue
		}
		text := strings.Trim(line, " \t　")
		if text == "" {
			lines[i] = ""
			continue
		}
		lines[i] = strings.Repeat(indentUnit, max(indent, 0)) + text
	}

	joined := strings.Join(lines, "\n")
	joined = strings.TrimRight(joined, "\n")
	return joined + "\n", nil
}
