package main

import (
	"embed"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/mgomes/sdlang/sd"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var localeFS embed.FS

var localeFiles = []string{
	"locales/active.ja.toml",
	"locales/active.en.toml",
}

// messages renders error kinds and REPL notices in the user's language.
type messages struct {
	localizer *i18n.Localizer
}

func newMessages(lang string) (*messages, error) {
	if lang == "" {
		lang = "ja"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(language.Japanese)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	for _, name := range localeFiles {
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return &messages{localizer: i18n.NewLocalizer(bundle, tag.String())}, nil
}

// text looks up id, falling back to the id itself.
func (m *messages) text(id string, data map[string]any) string {
	s, err := m.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
	})
	if err != nil || s == "" {
		return id
	}
	return s
}

// describe formats lexical and runtime faults as "<line>: <message> (<lexeme>)".
// Other errors keep their own text.
func (m *messages) describe(err error) string {
	var (
		id     string
		line   int
		lexeme string
	)
	var re *sd.RuntimeError
	var le *sd.LexError
	switch {
	case errors.As(err, &re):
		id, line, lexeme = re.Kind.String(), re.Line, re.Lexeme
	case errors.As(err, &le):
		id, line, lexeme = le.Kind.String(), le.Line, le.Lexeme
	default:
		return err.Error()
	}

	msg := m.text(id, nil)
	if lexeme != "" {
		msg = fmt.Sprintf("%s (%s)", msg, lexeme)
	}
	if line > 0 {
		msg = m.text("line_prefix", map[string]any{"Line": line}) + ": " + msg
	}
	return msg
}

// wrap keeps err reachable through errors.As while presenting the
// localized text.
func (m *messages) wrap(err error) error {
	return &scriptError{text: m.describe(err), err: err}
}

type scriptError struct {
	text string
	err  error
}

func (e *scriptError) Error() string { return e.text }
func (e *scriptError) Unwrap() error { return e.err }
