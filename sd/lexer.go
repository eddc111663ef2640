package sd

import (
	"strings"
)

type wordTable struct {
	words    map[string]bool
	prefixes map[string]bool
}

func newWordTable(words ...string) wordTable {
	t := wordTable{words: make(map[string]bool), prefixes: make(map[string]bool)}
	for _, w := range words {
		t.words[w] = true
		runes := []rune(w)
		for i := 1; i < len(runes); i++ {
			t.prefixes[string(runes[:i])] = true
		}
	}
	return t
}

const (
	particleTopic   = "は"
	particleDefine  = "とは"
	particlePossess = "の"
	particleSubject = "が"
	particleFrom    = "から"
	particleUntil   = "まで"
)

var comparators = map[string]Subtype{
	"ならば":     CmpEq,
	"でなければ":   CmpNotEq,
	"より大きければ": CmpGt,
	"より小さければ": CmpLt,
	"以上ならば":   CmpGtEq,
	"以下ならば":   CmpLtEq,
}

var particles = newWordTable(
	particleTopic, particleDefine, particlePossess, particleSubject, particleFrom, particleUntil,
	"を", "に", "で", "と", "より", "へ",
	"ならば", "でなければ", "より大きければ", "より小さければ", "以上ならば", "以下ならば",
)

const (
	keywordIf       = "もし"
	keywordElseIf   = "もしくは"
	keywordElse     = "違えば"
	keywordBlockEnd = "終わり"
)

var keywords = newWordTable(keywordIf, keywordElseIf, keywordElse, keywordBlockEnd)

var verbs = map[string]TokenType{
	"返す":   TokenReturn,
	"繰り返す": TokenLoop,
	"抜ける":  TokenBreak,
	"続ける":  TokenNext,
}

// Lexer turns reader input into tokens one statement at a time. Classifying
// the trailing lexeme of a statement depends on what came before it, so a
// whole statement is scanned before its first token is handed out.
type Lexer struct {
	r      *Reader
	tracer Tracer
	expr   bool

	queue  []Token
	term   []rune
	line   int
	quoted bool
	parts  []Token

	done bool
	err  error
}

func NewLexer(r *Reader) *Lexer {
	return &Lexer{r: r}
}

// SetTracer routes TokenProduced events to t.
func (l *Lexer) SetTracer(t Tracer) {
	l.tracer = t
}

func (l *Lexer) NextToken() (Token, bool, error) {
	for len(l.queue) == 0 {
		if l.err != nil {
			return Token{}, false, l.err
		}
		if l.done {
			return Token{}, false, nil
		}
		if err := l.scanStatement(); err != nil {
			l.err = err
			l.queue = nil
			return Token{}, false, err
		}
	}
	tok := l.queue[0]
	l.queue = l.queue[1:]
	if l.tracer != nil {
		l.tracer.Trace(Event{Kind: EventTokenProduced, Token: tok, Line: tok.Line})
	}
	return tok, true, nil
}

// Tokens drains the remaining stream.
func (l *Lexer) Tokens() ([]Token, error) {
	var out []Token
	for {
		tok, ok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, tok)
	}
}

func (l *Lexer) scanStatement() error {
	if err := l.skipSpace(); err != nil {
		return err
	}
	if !l.expr {
		line := l.r.Line()
		switch kw := l.match(keywords); kw {
		case keywordIf:
			l.emit(TokenIf, SubNone, kw, line)
		case keywordElseIf:
			l.emit(TokenElseIf, SubNone, kw, line)
		case keywordElse:
			l.emit(TokenElse, SubNone, kw, line)
			return nil
		case keywordBlockEnd:
			l.emit(TokenBlockEnd, SubNone, kw, line)
			return nil
		}
	}

	for {
		if err := l.skipSpace(); err != nil {
			return err
		}
		ch, ok := l.r.Next()
		if !ok {
			if err := l.r.Err(); err != nil {
				return err
			}
			l.done = true
			l.finish()
			return nil
		}

		switch ch {
		case '。':
			l.finish()
			if len(l.queue) > 0 {
				l.emit(TokenEOL, SubNone, string(ch), l.r.Line())
			}
			return nil
		case '？', '?':
			l.finish()
			if len(l.queue) > 0 {
				l.emit(TokenSuppress, SubNone, string(ch), l.r.Line())
			}
			return nil
		case '、', ',':
			l.argument()
			if len(l.queue) > 0 {
				l.emit(TokenComma, SubNone, string(ch), l.r.Line())
			}
		case '「':
			if err := l.readString(); err != nil {
				return err
			}
		case '」', '】', '）', ')':
			return &LexError{Kind: LexInvalidSequence, Line: l.r.Line(), Lexeme: string(ch)}
		default:
			if l.hasTerm() {
				l.r.Restore(ch)
				if p := l.match(particles); p != "" {
					end, err := l.particle(p)
					if err != nil || end {
						return err
					}
					continue
				}
				ch, _ = l.r.Next()
				if l.quoted {
					return &LexError{Kind: LexInvalidSequence, Line: l.line, Lexeme: l.termText() + string(ch)}
				}
			} else {
				l.line = l.r.Line()
			}
			l.term = append(l.term, ch)
		}
	}
}

// match consumes the longest word of table the input starts with and returns
// it. Lookahead stops as soon as no longer word can match; every rune read
// beyond the match is pushed back.
func (l *Lexer) match(table wordTable) string {
	var read []rune
	found, foundLen := "", 0
	for {
		ch, ok := l.r.Next()
		if !ok {
			break
		}
		read = append(read, ch)
		s := string(read)
		if table.words[s] {
			found, foundLen = s, len(read)
		}
		if !table.prefixes[s] {
			break
		}
	}
	for i := len(read) - 1; i >= foundLen; i-- {
		l.r.Restore(read[i])
	}
	return found
}

// particle closes the current term with p and reports whether p ends the statement.
func (l *Lexer) particle(p string) (bool, error) {
	line := l.line
	if cmp, ok := comparators[p]; ok {
		l.argument()
		l.emit(TokenComparison, cmp, p, line)
		return true, nil
	}

	switch p {
	case particlePossess, particleTopic, particleDefine:
		if len(l.parts) > 0 {
			return false, &LexError{Kind: LexInvalidSequence, Line: line, Lexeme: l.termText() + p}
		}
	}

	switch p {
	case particlePossess:
		l.emit(TokenPossessive, SubNone, l.takeTerm(), line)
	case particleTopic:
		if l.afterPossessive() {
			term := l.takeTerm()
			l.emit(TokenAttribute, AttributeType(term), term, line)
		} else {
			l.emit(TokenAssignment, SubNone, l.takeTerm(), line)
		}
	case particleDefine:
		l.emit(TokenFunctionDef, SubNone, l.takeTerm(), line)
		return true, nil
	default:
		l.argument()
		l.emit(TokenParticle, SubNone, p, line)
	}
	return false, nil
}

// argument emits the current term as an operand.
func (l *Lexer) argument() {
	if len(l.parts) > 0 {
		l.queue = append(l.queue, l.parts...)
		l.parts = nil
		l.quoted = false
		return
	}
	if len(l.term) == 0 {
		return
	}
	line := l.line
	possessed := l.afterPossessive()
	term := l.takeTerm()
	switch {
	case possessed:
		l.emit(TokenProperty, PropertyType(term), term, line)
	case ValueType(term) != SubNone:
		l.emit(TokenValue, ValueType(term), term, line)
	default:
		l.emit(TokenVariable, SubNone, term, line)
	}
}

// finish classifies the trailing term of a statement.
func (l *Lexer) finish() {
	if !l.hasTerm() {
		return
	}
	if len(l.parts) > 0 || l.expr || l.afterPossessive() {
		l.argument()
		return
	}
	term := string(l.term)
	if ValueType(term) != SubNone || (l.assigning() && !l.hasParticle()) {
		l.argument()
		return
	}
	line := l.line
	l.takeTerm()
	if tt, ok := verbs[term]; ok {
		l.emit(tt, SubNone, term, line)
		return
	}
	l.emit(TokenFunctionCall, SubNone, term, line)
}

func (l *Lexer) readString() error {
	line := l.r.Line()
	if l.hasTerm() {
		return &LexError{Kind: LexInvalidSequence, Line: line, Lexeme: l.termText() + "「"}
	}
	l.line = line

	var sb strings.Builder
	var parts []Token
	interpolated := false
	for {
		ch, ok := l.r.Next()
		if !ok {
			return &LexError{Kind: LexUnterminatedString, Line: line, Lexeme: "「" + sb.String()}
		}
		switch ch {
		case '\\':
			next, ok := l.r.Next()
			if !ok {
				return &LexError{Kind: LexUnterminatedString, Line: line, Lexeme: "「" + sb.String()}
			}
			switch next {
			case '」', '\\', '【':
				sb.WriteRune(next)
			case 'n':
				sb.WriteRune('\n')
			default:
				sb.WriteRune('\\')
				sb.WriteRune(next)
			}
		case '」':
			l.quoted = true
			if !interpolated {
				l.term = []rune("「" + sb.String() + "」")
				return nil
			}
			if sb.Len() > 0 {
				parts = append(parts, Token{Type: TokenValue, Sub: ValString, Content: "「" + sb.String() + "」", Line: line})
			}
			l.parts = parts
			return nil
		case '【':
			interpolated = true
			if sb.Len() > 0 {
				parts = append(parts, Token{Type: TokenValue, Sub: ValString, Content: "「" + sb.String() + "」", Line: line})
				sb.Reset()
			}
			inner, err := l.interpolate(l.r.Line())
			if err != nil {
				return err
			}
			parts = append(parts, Token{Type: TokenInterpOpen, Content: "【", Line: line})
			parts = append(parts, inner...)
			parts = append(parts, Token{Type: TokenInterpClose, Content: "】", Line: line})
		default:
			sb.WriteRune(ch)
		}
	}
}

// interpolate lexes the text up to the closing bracket with a fresh
// expression-mode lexer.
func (l *Lexer) interpolate(line int) ([]Token, error) {
	var sb strings.Builder
	// closers of the strings and nested interpolations still open
	var open []rune
	for {
		ch, ok := l.r.Next()
		if !ok {
			return nil, &LexError{Kind: LexUnterminatedInterpolation, Line: line, Lexeme: "【" + sb.String()}
		}
		inString := len(open) > 0 && open[len(open)-1] == '」'
		switch {
		case ch == '】' && len(open) == 0:
			sub := &Lexer{r: NewReader(strings.NewReader(sb.String())), expr: true}
			sub.r.line = line
			return sub.Tokens()
		case ch == '\\' && inString:
			sb.WriteRune(ch)
			if ch, ok = l.r.Next(); !ok {
				continue
			}
		case ch == '「' && !inString:
			open = append(open, '」')
		case ch == '【' && inString:
			open = append(open, '】')
		case len(open) > 0 && ch == open[len(open)-1]:
			open = open[:len(open)-1]
		}
		sb.WriteRune(ch)
	}
}

func (l *Lexer) skipSpace() error {
	for {
		ch, ok := l.r.Next()
		if !ok {
			return nil
		}
		switch ch {
		case ' ', '\t', '\r', '\n', '　':
		case '※':
			for {
				c, ok := l.r.Next()
				if !ok || c == '\n' {
					break
				}
			}
		case '（', '(':
			if err := l.skipComment(ch); err != nil {
				return err
			}
		default:
			l.r.Restore(ch)
			return nil
		}
	}
}

func (l *Lexer) skipComment(open rune) error {
	line := l.r.Line()
	closing := '）'
	if open == '(' {
		closing = ')'
	}
	var sb strings.Builder
	for {
		ch, ok := l.r.Next()
		if !ok {
			return &LexError{Kind: LexUnterminatedComment, Line: line, Lexeme: string(open) + sb.String()}
		}
		if ch == closing {
			return nil
		}
		sb.WriteRune(ch)
	}
}

func (l *Lexer) emit(tt TokenType, sub Subtype, content string, line int) {
	l.queue = append(l.queue, Token{Type: tt, Sub: sub, Content: content, Line: line})
}

func (l *Lexer) hasTerm() bool {
	return len(l.term) > 0 || len(l.parts) > 0
}

func (l *Lexer) takeTerm() string {
	term := string(l.term)
	l.term = l.term[:0]
	l.quoted = false
	return term
}

func (l *Lexer) termText() string {
	if len(l.parts) > 0 {
		return "「…」"
	}
	return string(l.term)
}

func (l *Lexer) afterPossessive() bool {
	return len(l.queue) > 0 && l.queue[len(l.queue)-1].Type == TokenPossessive
}

func (l *Lexer) assigning() bool {
	for _, tok := range l.queue {
		if tok.Type == TokenAssignment || tok.Type == TokenAttribute {
			return true
		}
	}
	return false
}

func (l *Lexer) hasParticle() bool {
	for _, tok := range l.queue {
		if tok.Type == TokenParticle {
			return true
		}
	}
	return false
}
