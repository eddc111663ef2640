package sd

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
)

// Config tunes a Processor. Zero values select the defaults.
type Config struct {
	Output         io.Writer
	Tracer         Tracer
	RecursionLimit int
	StepQuota      int
}

// Processor executes token streams statement by statement. SORE and ARE are
// owned by the instance; separate processors never observe each other.
type Processor struct {
	config   Config
	scopes   *Scopes
	cur      int
	sore     Value
	are      Value
	depth    atomic.Int32
	calls    int
	loops    int
	steps    int
	ctx      context.Context
	builtins map[string]builtin
}

// NewProcessor constructs a Processor with sane defaults and registers built-ins.
func NewProcessor(cfg Config) *Processor {
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	if cfg.RecursionLimit <= 0 {
		cfg.RecursionLimit = 64
	}
	if cfg.StepQuota < 0 {
		cfg.StepQuota = 0
	}
	p := &Processor{
		config: cfg,
		scopes: NewScopes(),
		sore:   NewNull(),
		are:    NewNull(),
	}
	p.builtins = defaultBuiltins()
	return p
}

func (p *Processor) Sore() Value { return p.sore.Copy() }
func (p *Processor) Are() Value  { return p.are.Copy() }

func (p *Processor) Scopes() *Scopes {
	return p.scopes
}

// Depth reports how many blocks are open in the statement stream being read.
// It is safe to call from other goroutines.
func (p *Processor) Depth() int {
	return int(p.depth.Load())
}

// Run executes statements from src in order until the stream ends or a fatal
// error occurs. Bindings persist across calls.
func (p *Processor) Run(ctx context.Context, src TokenSource) error {
	p.ctx = ctx
	p.steps = 0
	defer func() {
		p.ctx = nil
		p.depth.Store(0)
	}()
	return p.runSource(src)
}

// Exec lexes the whole of src before running it, so a lexical error leaves
// every statement unexecuted.
func (p *Processor) Exec(ctx context.Context, src io.Reader) error {
	lx := NewLexer(NewReader(src))
	if p.config.Tracer != nil {
		lx.SetTracer(p.config.Tracer)
	}
	tokens, err := lx.Tokens()
	if err != nil {
		return err
	}
	return p.Run(ctx, NewTokenSlice(tokens))
}

type statement struct {
	tokens   []Token
	suppress bool
	line     int
}

func (p *Processor) runSource(src TokenSource) error {
	for {
		st, ok, err := readStatement(src)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := p.execStatement(st, src); err != nil {
			return err
		}
	}
}

// readStatement groups tokens up to a terminator, a suppression marker, or a
// block header.
func readStatement(src TokenSource) (statement, bool, error) {
	var st statement
	for {
		tok, ok, err := src.NextToken()
		if err != nil {
			return st, false, err
		}
		if !ok {
			return st, len(st.tokens) > 0, nil
		}
		switch tok.Type {
		case TokenEOL:
			if len(st.tokens) > 0 {
				return st, true, nil
			}
			continue
		case TokenSuppress:
			if len(st.tokens) > 0 {
				st.suppress = true
				return st, true, nil
			}
			continue
		}
		if len(st.tokens) == 0 {
			st.line = tok.Line
		}
		st.tokens = append(st.tokens, tok)
		switch tok.Type {
		case TokenComparison, TokenFunctionDef, TokenLoop, TokenElse, TokenBlockEnd:
			return st, true, nil
		}
	}
}

func (p *Processor) execStatement(st statement, src TokenSource) error {
	if err := p.step(); err != nil {
		return at(err, st.line)
	}
	p.trace(Event{Kind: EventStatementAttempted, Tokens: st.tokens, Line: st.line})

	v, produced, err := p.evalStatement(st, src)
	if err != nil {
		if isControlSignal(err) {
			return err
		}
		var re *RuntimeError
		if st.suppress && errors.As(err, &re) && re.Suppressible() {
			at(re, st.line)
			p.sore = NewError(re)
			p.are = p.sore
			p.trace(Event{Kind: EventStatementSuppressed, Tokens: st.tokens, Value: p.sore, Err: re, Line: st.line})
			return nil
		}
		return at(err, st.line)
	}
	if produced {
		p.sore = v
	}
	p.trace(Event{Kind: EventStatementCompleted, Tokens: st.tokens, Value: v, Line: st.line})
	return nil
}

// evalStatement dispatches on the statement shape. produced is false for
// block headers, which leave SORE untouched.
func (p *Processor) evalStatement(st statement, src TokenSource) (Value, bool, error) {
	toks := st.tokens
	first, last := toks[0], toks[len(toks)-1]

	switch first.Type {
	case TokenIf:
		return p.execIf(st, src)
	case TokenElseIf, TokenElse:
		return NewNull(), false, newError(ErrSyntax, first.Line, first.Content, "branch without %s", keywordIf)
	case TokenBlockEnd:
		return NewNull(), false, newError(ErrSyntax, first.Line, first.Content, "no open block")
	}

	switch last.Type {
	case TokenFunctionDef:
		return p.execDefine(st, src)
	case TokenLoop:
		return p.execLoop(st, src)
	case TokenComparison:
		return NewNull(), false, newError(ErrSyntax, last.Line, last.Content, "condition without %s", keywordIf)
	case TokenReturn:
		v, err := p.execReturn(toks)
		return v, true, err
	case TokenBreak, TokenNext:
		if len(toks) != 1 {
			return NewNull(), false, newError(ErrSyntax, last.Line, last.Content, "unexpected arguments")
		}
		if p.loops == 0 {
			return NewNull(), false, newError(ErrSyntax, last.Line, last.Content, "outside of a loop")
		}
		if last.Type == TokenBreak {
			return NewNull(), false, errLoopBreak
		}
		return NewNull(), false, errLoopNext
	}

	var (
		v   Value
		err error
	)
	switch {
	case first.Type == TokenAssignment:
		v, err = p.execAssign(toks)
	case first.Type == TokenPossessive && hasType(toks, TokenAttribute):
		v, err = p.execAttribute(toks)
	default:
		v, err = p.evalValue(toks)
	}
	return v, true, err
}

func (p *Processor) execAssign(toks []Token) (Value, error) {
	target := toks[0]
	if ValueType(target.Content) != SubNone {
		return NewNull(), newError(ErrSyntax, target.Line, target.Content, "cannot assign to a literal")
	}
	if len(toks) == 1 {
		return NewNull(), newError(ErrSyntax, target.Line, target.Content, "missing value")
	}
	v, err := p.evalValue(toks[1:])
	if err != nil {
		return NewNull(), err
	}
	p.scopes.Set(p.cur, target.Content, v)
	return v.Copy(), nil
}

func (p *Processor) step() error {
	p.steps++
	if p.config.StepQuota > 0 && p.steps > p.config.StepQuota {
		return newError(ErrStepQuota, 0, "", "exceeded %d statements", p.config.StepQuota)
	}
	if p.ctx != nil {
		select {
		case <-p.ctx.Done():
			return p.ctx.Err()
		default:
		}
	}
	return nil
}

func (p *Processor) trace(e Event) {
	if p.config.Tracer == nil {
		return
	}
	e.Depth = p.scopes.Len() - 1
	p.config.Tracer.Trace(e)
}

func hasType(toks []Token, tt TokenType) bool {
	for _, tok := range toks {
		if tok.Type == tt {
			return true
		}
	}
	return false
}
