package sd

import "errors"

// collectBlock reads raw tokens up to the 終わり that closes the block whose
// header was just read. Nested headers are tracked by depth.
func (p *Processor) collectBlock(src TokenSource, header Token) ([]Token, error) {
	depth := 1
	p.depth.Add(1)
	defer func() {
		p.depth.Add(int32(-depth))
	}()

	var body []Token
	for {
		tok, ok, err := src.NextToken()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError(ErrSyntax, header.Line, header.Content, "missing %s", keywordBlockEnd)
		}
		switch tok.Type {
		case TokenIf, TokenLoop, TokenFunctionDef:
			depth++
			p.depth.Add(1)
		case TokenBlockEnd:
			depth--
			p.depth.Add(-1)
			if depth == 0 {
				return body, nil
			}
		}
		body = append(body, tok)
	}
}

// runBlock executes body in a fresh transparent scope.
func (p *Processor) runBlock(body []Token) error {
	saved := p.cur
	p.cur = p.scopes.Push(ScopeTransparent, saved)
	defer func() {
		p.scopes.Pop()
		p.cur = saved
	}()
	return p.runSource(NewTokenSlice(body))
}

type branch struct {
	cond []Token
	body []Token
}

// splitBranches cuts a conditional body at its top-level もしくは and 違えば.
// The else branch has a nil condition.
func splitBranches(cond []Token, body []Token) ([]branch, error) {
	branches := []branch{{cond: cond}}
	cur := &branches[0]
	depth := 0
	for i := 0; i < len(body); i++ {
		tok := body[i]
		if depth == 0 && (tok.Type == TokenElseIf || tok.Type == TokenElse) {
			if branches[len(branches)-1].cond == nil {
				return nil, newError(ErrSyntax, tok.Line, tok.Content, "branch after %s", keywordElse)
			}
			next := branch{}
			if tok.Type == TokenElseIf {
				end := i + 1
				for end < len(body) && body[end].Type != TokenComparison {
					end++
				}
				if end == len(body) {
					return nil, newError(ErrSyntax, tok.Line, tok.Content, "missing condition")
				}
				next.cond = body[i+1 : end+1]
				i = end
			}
			branches = append(branches, next)
			cur = &branches[len(branches)-1]
			continue
		}
		switch tok.Type {
		case TokenIf, TokenLoop, TokenFunctionDef:
			depth++
		case TokenBlockEnd:
			depth--
		}
		cur.body = append(cur.body, tok)
	}
	return branches, nil
}

func (p *Processor) execIf(st statement, src TokenSource) (Value, bool, error) {
	header := st.tokens[0]
	if len(st.tokens) < 2 || st.tokens[len(st.tokens)-1].Type != TokenComparison {
		return NewNull(), false, newError(ErrSyntax, header.Line, header.Content, "missing condition")
	}
	body, err := p.collectBlock(src, header)
	if err != nil {
		return NewNull(), false, err
	}
	branches, err := splitBranches(st.tokens[1:], body)
	if err != nil {
		return NewNull(), false, err
	}
	for _, br := range branches {
		if br.cond != nil {
			ok, err := p.evalCondition(br.cond)
			if err != nil {
				return NewNull(), false, err
			}
			if !ok {
				continue
			}
		}
		return NewNull(), false, p.runBlock(br.body)
	}
	return NewNull(), false, nil
}

// execLoop runs 「AからBまで繰り返す」 over the inclusive range, setting SORE to
// the counter at the start of every pass, or loops until 抜ける without arguments.
func (p *Processor) execLoop(st statement, src TokenSource) (Value, bool, error) {
	header := st.tokens[len(st.tokens)-1]
	body, err := p.collectBlock(src, header)
	if err != nil {
		return NewNull(), false, err
	}

	bounded := len(st.tokens) > 1
	var from, to int64
	if bounded {
		args, err := p.evalArgs(st.tokens[:len(st.tokens)-1])
		if err != nil {
			return NewNull(), false, err
		}
		start, okStart := findArg(args, particleFrom)
		end, okEnd := findArg(args, particleUntil)
		if !okStart || !okEnd || len(args) != 2 {
			return NewNull(), false, newError(ErrSyntax, header.Line, header.Content, "expected %s and %s", particleFrom, particleUntil)
		}
		if start.Kind() != KindInt || end.Kind() != KindInt {
			return NewNull(), false, newError(ErrTypeMismatch, header.Line, header.Content, "loop bounds must be integers")
		}
		from, to = start.Int(), end.Int()
	}

	p.loops++
	defer func() { p.loops-- }()

	if bounded && from > to {
		return NewNull(), false, nil
	}
	// i stops at to rather than passing it, so a bound of MaxInt64 cannot wrap.
	for i := from; ; i++ {
		if bounded {
			p.sore = NewInt(i)
		}
		err := p.runBlock(body)
		switch {
		case errors.Is(err, errLoopBreak):
			return NewNull(), false, nil
		case errors.Is(err, errLoopNext):
		case err != nil:
			return NewNull(), false, err
		default:
			if err := p.step(); err != nil {
				return NewNull(), false, at(err, header.Line)
			}
		}
		if bounded && i == to {
			return NewNull(), false, nil
		}
	}
}

// execDefine stores 「AとBを名前とは ... 終わり」. Parameters are variable and
// particle pairs.
func (p *Processor) execDefine(st statement, src TokenSource) (Value, bool, error) {
	header := st.tokens[len(st.tokens)-1]
	body, err := p.collectBlock(src, header)
	if err != nil {
		return NewNull(), false, err
	}
	if ValueType(header.Content) != SubNone {
		return NewNull(), false, newError(ErrSyntax, header.Line, header.Content, "cannot define a literal")
	}

	rest := st.tokens[:len(st.tokens)-1]
	if len(rest)%2 != 0 {
		return NewNull(), false, newError(ErrSyntax, header.Line, header.Content, "malformed parameter list")
	}
	params := make([]Param, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		name, part := rest[i], rest[i+1]
		if name.Type != TokenVariable || part.Type != TokenParticle {
			return NewNull(), false, newError(ErrSyntax, name.Line, name.Content, "malformed parameter list")
		}
		params = append(params, Param{Name: name.Content, Particle: part.Content})
	}
	p.scopes.DefineFunction(p.cur, header.Content, params, body)
	return NewNull(), false, nil
}
