package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mgomes/sdlang/sd"
	"gopkg.in/yaml.v3"
)

type tokenRecord struct {
	Line    int    `yaml:"line"`
	Type    string `yaml:"type"`
	Sub     string `yaml:"sub,omitempty"`
	Content string `yaml:"content"`
}

func tokensCommand(args []string) error {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	format := fs.String("format", "table", "output format (table or yaml)")
	lang := fs.String("lang", "", "message language (ja or en)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("sd tokens: script path required")
	}
	if *format != "table" && *format != "yaml" {
		return fmt.Errorf("sd tokens: unknown format %q", *format)
	}
	_, input, err := readScript(remaining[0])
	if err != nil {
		return err
	}
	msgs, err := newMessages(*lang)
	if err != nil {
		return err
	}

	toks, err := sd.NewLexer(sd.NewReader(bytes.NewReader(input))).Tokens()
	if err != nil {
		return msgs.wrap(err)
	}
	records := make([]tokenRecord, len(toks))
	for i, tok := range toks {
		records[i] = tokenRecord{
			Line:    tok.Line,
			Type:    tok.Type.String(),
			Sub:     tok.Sub.String(),
			Content: tok.Content,
		}
	}
	if *format == "yaml" {
		return writeTokenYAML(os.Stdout, records)
	}
	return writeTokenTable(os.Stdout, records)
}

func writeTokenYAML(w io.Writer, records []tokenRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	return enc.Close()
}

// writeTokenTable prints one token per row. Content is padded by display
// width so full-width text keeps the columns aligned.
func writeTokenTable(w io.Writer, records []tokenRecord) error {
	header := tokenRecord{Type: "TYPE", Sub: "SUB", Content: "CONTENT"}
	lineW, contentW, typeW := len("LINE"), runewidth.StringWidth(header.Content), len(header.Type)
	for _, r := range records {
		lineW = max(lineW, len(strconv.Itoa(r.Line)))
		contentW = max(contentW, runewidth.StringWidth(r.Content))
		typeW = max(typeW, len(r.Type))
	}

	row := func(line, content, typ, sub string) error {
		cols := []string{
			fmt.Sprintf("%*s", lineW, line),
			runewidth.FillRight(content, contentW),
			fmt.Sprintf("%-*s", typeW, typ),
			sub,
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cols, "  "), " "))
		return err
	}
	if err := row("LINE", header.Content, header.Type, header.Sub); err != nil {
		return err
	}
	for _, r := range records {
		if err := row(strconv.Itoa(r.Line), r.Content, r.Type, r.Sub); err != nil {
			return err
		}
	}
	return nil
}
