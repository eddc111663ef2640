package main

import (
	"fmt"
	"strings"

	"github.com/mgomes/sdlang/sd"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// logTracer writes processor events to the commonlog backend on stderr.
// Statement events log at info level, tokens at debug level.
type logTracer struct {
	log commonlog.Logger
}

func newLogTracer(tokens bool) *logTracer {
	verbosity := 1
	if tokens {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
	return &logTracer{log: commonlog.GetLogger("sd.trace")}
}

func (t *logTracer) Trace(e sd.Event) {
	if e.Kind == sd.EventTokenProduced {
		t.log.Debug(formatEvent(e))
		return
	}
	t.log.Info(formatEvent(e))
}

func formatEvent(e sd.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-8s line %d", e.Kind, e.Line)
	if e.Depth > 0 {
		fmt.Fprintf(&b, " depth %d", e.Depth)
	}
	switch e.Kind {
	case sd.EventTokenProduced:
		b.WriteString(": " + e.Token.String())
	case sd.EventStatementAttempted:
		parts := make([]string, len(e.Tokens))
		for i, tok := range e.Tokens {
			parts[i] = tok.Content
		}
		b.WriteString(": " + strings.Join(parts, " "))
	case sd.EventStatementCompleted:
		b.WriteString(" => " + e.Value.String())
	case sd.EventStatementSuppressed:
		if e.Err != nil {
			b.WriteString(" !! " + e.Err.Error())
		}
	}
	return b.String()
}
