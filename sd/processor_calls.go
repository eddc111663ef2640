package sd

import "errors"

// arg is an evaluated call argument with the particle that followed it.
// Trailing arguments without a particle carry an empty one.
type arg struct {
	value    Value
	particle string
}

func findArg(args []arg, particle string) (Value, bool) {
	for _, a := range args {
		if a.particle == particle {
			return a.value, true
		}
	}
	return NewNull(), false
}

// evalArgs splits toks at top-level particles and evaluates each segment.
func (p *Processor) evalArgs(toks []Token) ([]arg, error) {
	var args []arg
	start, interp := 0, 0
	for i, tok := range toks {
		switch tok.Type {
		case TokenInterpOpen:
			interp++
		case TokenInterpClose:
			interp--
		case TokenParticle:
			if interp > 0 {
				continue
			}
			if i == start {
				return nil, newError(ErrSyntax, tok.Line, tok.Content, "particle without an argument")
			}
			v, err := p.evalExpr(toks[start:i])
			if err != nil {
				return nil, err
			}
			args = append(args, arg{value: v, particle: tok.Content})
			start = i + 1
		}
	}
	if start < len(toks) {
		v, err := p.evalExpr(toks[start:])
		if err != nil {
			return nil, err
		}
		args = append(args, arg{value: v})
	}
	return args, nil
}

// call evaluates 「…を…で名前」: toks ends with the callee name. User
// definitions shadow built-ins.
func (p *Processor) call(toks []Token) (Value, error) {
	callee := toks[len(toks)-1]
	argToks := toks[:len(toks)-1]

	fn, home, lookupErr := p.scopes.Function(p.cur, callee.Content)
	b, isBuiltin := p.builtins[callee.Content]
	if lookupErr != nil && !isBuiltin {
		// a bare name that is not callable reads the variable
		if len(argToks) == 0 {
			if v, err := p.scopes.Get(p.cur, callee.Content); err == nil {
				return v, nil
			}
		}
		return NewNull(), newError(ErrUndefinedFunction, callee.Line, callee.Content, "")
	}

	args, err := p.evalArgs(argToks)
	if err != nil {
		return NewNull(), err
	}
	if lookupErr == nil {
		return p.invoke(fn, home, callee, args)
	}
	v, err := b(p, args)
	if err != nil {
		var re *RuntimeError
		if errors.As(err, &re) && re.Lexeme == "" {
			re.Lexeme = callee.Content
		}
		return NewNull(), at(err, callee.Line)
	}
	return v, nil
}

// invoke runs a cloned definition in an isolated frame that starts from a
// snapshot of the defining scope's variables.
func (p *Processor) invoke(fn *Scope, home int, callee Token, args []arg) (Value, error) {
	if len(args) != len(fn.Params) {
		return NewNull(), newError(ErrArity, callee.Line, callee.Content, "expected %d arguments, got %d", len(fn.Params), len(args))
	}
	if p.calls >= p.config.RecursionLimit {
		return NewNull(), newError(ErrRecursion, callee.Line, callee.Content, "limit %d exceeded", p.config.RecursionLimit)
	}

	fn.Kind = ScopeIsolated
	fn.Parent = home
	for name, v := range p.scopes.Snapshot(home) {
		fn.Vars[name] = v
	}
	for i, v := range bindParams(fn.Params, args) {
		fn.Vars[fn.Params[i].Name] = v
	}

	saved, savedLoops := p.cur, p.loops
	p.cur = p.scopes.Enter(fn)
	p.calls++
	p.loops = 0
	defer func() {
		p.scopes.Pop()
		p.cur = saved
		p.loops = savedLoops
		p.calls--
	}()

	err := p.runSource(NewTokenSlice(fn.Body))
	var ret *returnSignal
	switch {
	case errors.As(err, &ret):
		return ret.value, nil
	case err != nil:
		return NewNull(), err
	}
	return p.sore.Copy(), nil
}

// bindParams matches arguments to parameters by particle first and fills the
// rest in source order. len(args) must equal len(params).
func bindParams(params []Param, args []arg) []Value {
	out := make([]Value, len(params))
	assigned := make([]bool, len(params))
	used := make([]bool, len(args))
	for i, prm := range params {
		for j, a := range args {
			if !used[j] && a.particle == prm.Particle {
				out[i] = a.value
				assigned[i], used[j] = true, true
				break
			}
		}
	}
	j := 0
	for i := range params {
		if assigned[i] {
			continue
		}
		for used[j] {
			j++
		}
		out[i] = args[j].value
		used[j] = true
	}
	return out
}

// execReturn handles 「Xを返す」 and a bare 返す, which returns SORE.
func (p *Processor) execReturn(toks []Token) (Value, error) {
	ret := toks[len(toks)-1]
	if p.calls == 0 {
		return NewNull(), newError(ErrSyntax, ret.Line, ret.Content, "outside of a function")
	}
	rest := toks[:len(toks)-1]
	if n := len(rest); n > 0 && rest[n-1].Type == TokenParticle {
		rest = rest[:n-1]
	}
	v := p.sore.Copy()
	if len(rest) > 0 {
		var err error
		if v, err = p.evalValue(rest); err != nil {
			return NewNull(), err
		}
	}
	return v, &returnSignal{value: v}
}
