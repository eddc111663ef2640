package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"sort"

	"github.com/mgomes/sdlang/sd"
)

type lintWarning struct {
	Line   int
	Lexeme string
	ID     string
	// Fatal marks problems the processor would reject at run time.
	Fatal bool
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	lang := fs.String("lang", "", "message language (ja or en)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("sd analyze: script path required")
	}
	scriptPath, input, err := readScript(remaining[0])
	if err != nil {
		return err
	}
	msgs, err := newMessages(*lang)
	if err != nil {
		return err
	}

	tokens, err := sd.NewLexer(sd.NewReader(bytes.NewReader(input))).Tokens()
	if err != nil {
		return msgs.wrap(err)
	}
	warnings := analyzeTokens(tokens)
	if len(warnings) == 0 {
		fmt.Println("No issues found")
		return nil
	}

	for _, warning := range warnings {
		fmt.Printf("%s:%d: %s (%s)\n", scriptPath, max(warning.Line, 1), msgs.text(warning.ID, nil), warning.Lexeme)
	}
	return fmt.Errorf("analysis found %d issue(s)", len(warnings))
}

// splitStatements groups tokens the way the processor reads them: up to a
// terminator, or through a block header.
func splitStatements(tokens []sd.Token) [][]sd.Token {
	var out [][]sd.Token
	var cur []sd.Token
	for _, tok := range tokens {
		switch tok.Type {
		case sd.TokenEOL, sd.TokenSuppress:
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, tok)
		switch tok.Type {
		case sd.TokenComparison, sd.TokenFunctionDef, sd.TokenLoop, sd.TokenElse, sd.TokenBlockEnd:
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

type lintFrame struct {
	header     sd.Token
	terminated bool
	reported   bool
}

// analyzeTokens checks block structure and flags statements that can never
// run because an earlier 返す, 抜ける or 続ける left the block.
func analyzeTokens(tokens []sd.Token) []lintWarning {
	warnings := make([]lintWarning, 0)
	warn := func(tok sd.Token, id string, fatal bool) {
		warnings = append(warnings, lintWarning{Line: tok.Line, Lexeme: tok.Content, ID: id, Fatal: fatal})
	}
	stack := []*lintFrame{{}}
	inside := func(types ...sd.TokenType) bool {
		for i := len(stack) - 1; i > 0; i-- {
			t := stack[i].header.Type
			for _, want := range types {
				if t == want {
					return true
				}
			}
			if t == sd.TokenFunctionDef {
				return false
			}
		}
		return false
	}

	for _, st := range splitStatements(tokens) {
		first, last := st[0], st[len(st)-1]
		top := stack[len(stack)-1]
		branch := first.Type == sd.TokenBlockEnd || first.Type == sd.TokenElse || first.Type == sd.TokenElseIf
		if top.terminated && !top.reported && !branch {
			warn(first, "lint_unreachable", false)
			top.reported = true
		}

		switch {
		case first.Type == sd.TokenIf:
			stack = append(stack, &lintFrame{header: first})
		case first.Type == sd.TokenElseIf, first.Type == sd.TokenElse:
			if len(stack) == 1 || top.header.Type != sd.TokenIf {
				warn(first, "lint_branch_outside_if", true)
				continue
			}
			top.terminated, top.reported = false, false
		case first.Type == sd.TokenBlockEnd:
			if len(stack) == 1 {
				warn(first, "lint_stray_block_end", true)
				continue
			}
			stack = stack[:len(stack)-1]
		case last.Type == sd.TokenLoop, last.Type == sd.TokenFunctionDef:
			stack = append(stack, &lintFrame{header: last})
		case last.Type == sd.TokenReturn:
			if !inside(sd.TokenFunctionDef) {
				warn(last, "lint_return_outside_function", true)
			}
			top.terminated = true
		case last.Type == sd.TokenBreak, last.Type == sd.TokenNext:
			if !inside(sd.TokenLoop) {
				warn(last, "lint_loop_control_outside_loop", true)
			}
			top.terminated = true
		}
	}
	for _, frame := range stack[1:] {
		warn(frame.header, "lint_unclosed_block", true)
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Line < warnings[j].Line
	})
	return warnings
}
