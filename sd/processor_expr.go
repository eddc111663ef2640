package sd

import (
	"strings"
	"unicode/utf8"
)

// evalValue evaluates the right-hand side of a statement, which is either a
// call ending in a verb or a plain expression.
func (p *Processor) evalValue(toks []Token) (Value, error) {
	if toks[len(toks)-1].Type == TokenFunctionCall {
		return p.call(toks)
	}
	return p.evalExpr(toks)
}

// evalExpr evaluates an operand. Top-level commas build a list.
func (p *Processor) evalExpr(toks []Token) (Value, error) {
	if len(toks) == 0 {
		return NewNull(), newError(ErrSyntax, 0, "", "missing expression")
	}
	var items [][]Token
	start, interp := 0, 0
	for i, tok := range toks {
		switch tok.Type {
		case TokenInterpOpen:
			interp++
		case TokenInterpClose:
			interp--
		case TokenComma:
			if interp == 0 {
				items = append(items, toks[start:i])
				start = i + 1
			}
		}
	}
	if items == nil {
		return p.evalTerm(toks)
	}
	items = append(items, toks[start:])

	values := make([]Value, 0, len(items))
	for _, item := range items {
		if len(item) == 0 {
			continue
		}
		v, err := p.evalTerm(item)
		if err != nil {
			return NewNull(), err
		}
		values = append(values, v)
	}
	return NewArray(ArrayFromList(values)), nil
}

func (p *Processor) evalTerm(toks []Token) (Value, error) {
	first := toks[0]
	if hasType(toks, TokenInterpOpen) {
		return p.interpolate(toks)
	}
	if len(toks) == 1 {
		switch first.Type {
		case TokenValue:
			return p.literal(first)
		case TokenVariable:
			v, err := p.scopes.Get(p.cur, first.Content)
			return v, at(err, first.Line)
		}
	}
	if first.Type == TokenPossessive {
		return p.readProperty(toks)
	}
	return NewNull(), newError(ErrSyntax, first.Line, first.Content, "unexpected %s", first.Type)
}

// interpolate concatenates string segments and the stringified values of
// embedded expressions.
func (p *Processor) interpolate(toks []Token) (Value, error) {
	var sb strings.Builder
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Type {
		case TokenValue:
			v, err := p.literal(tok)
			if err != nil {
				return NewNull(), err
			}
			sb.WriteString(v.String())
		case TokenInterpOpen:
			depth, end := 1, i+1
			for ; end < len(toks); end++ {
				if toks[end].Type == TokenInterpOpen {
					depth++
				} else if toks[end].Type == TokenInterpClose {
					depth--
					if depth == 0 {
						break
					}
				}
			}
			if end == len(toks) {
				return NewNull(), newError(ErrSyntax, tok.Line, tok.Content, "unbalanced interpolation")
			}
			if end > i+1 {
				v, err := p.evalOperand(toks[i+1 : end])
				if err != nil {
					return NewNull(), err
				}
				sb.WriteString(v.String())
			}
			i = end
		default:
			return NewNull(), newError(ErrSyntax, tok.Line, tok.Content, "unexpected %s in string", tok.Type)
		}
	}
	return NewString(sb.String()), nil
}

func (p *Processor) literal(tok Token) (Value, error) {
	switch tok.Sub {
	case ValNumber:
		v, err := parseNumber(tok.Content)
		if err != nil {
			return NewNull(), newError(ErrSyntax, tok.Line, tok.Content, "%v", err)
		}
		return v, nil
	case ValString:
		return NewString(unquote(tok.Content)), nil
	case ValTrue:
		return NewBool(true), nil
	case ValFalse:
		return NewBool(false), nil
	case ValNull:
		return NewNull(), nil
	case ValSore:
		return p.sore.Copy(), nil
	case ValAre:
		return p.are.Copy(), nil
	case ValArray:
		return NewArray(NewSdArray()), nil
	default:
		return NewNull(), newError(ErrSyntax, tok.Line, tok.Content, "not a value")
	}
}

func unquote(lexeme string) string {
	return strings.TrimSuffix(strings.TrimPrefix(lexeme, "「"), "」")
}

// operand resolves the owner of a possessive: a literal or a variable.
func (p *Processor) operand(tok Token) (Value, error) {
	if sub := ValueType(tok.Content); sub != SubNone {
		return p.literal(Token{Type: TokenValue, Sub: sub, Content: tok.Content, Line: tok.Line})
	}
	v, err := p.scopes.Get(p.cur, tok.Content)
	return v, at(err, tok.Line)
}

// readProperty walks 「AのBのC」: every possessive after the first names a
// key of the value before it, and the trailing property names the last one.
func (p *Processor) readProperty(toks []Token) (Value, error) {
	owner, err := p.operand(toks[0])
	if err != nil {
		return NewNull(), err
	}
	for _, tok := range toks[1:] {
		sub := tok.Sub
		switch tok.Type {
		case TokenPossessive:
			sub = PropertyType(tok.Content)
		case TokenProperty:
		default:
			return NewNull(), newError(ErrSyntax, tok.Line, tok.Content, "unexpected %s", tok.Type)
		}
		if owner, err = p.property(owner, sub, tok); err != nil {
			return NewNull(), err
		}
	}
	return owner, nil
}

func (p *Processor) property(owner Value, sub Subtype, tok Token) (Value, error) {
	if sub == PropLength {
		switch owner.Kind() {
		case KindArray:
			return NewInt(int64(owner.Array().Len())), nil
		case KindString:
			return NewInt(int64(utf8.RuneCountInString(owner.String()))), nil
		default:
			return NewNull(), newError(ErrTypeMismatch, tok.Line, tok.Content, "%s has no length", owner.Kind())
		}
	}
	key, err := p.key(sub, tok)
	if err != nil {
		return NewNull(), err
	}
	switch owner.Kind() {
	case KindArray:
		v, _ := owner.Array().Get(key)
		return v.Copy(), nil
	case KindString:
		runes := []rune(owner.String())
		if key.Named || key.Num < 0 || key.Num >= int64(len(runes)) {
			return NewNull(), nil
		}
		return NewString(string(runes[key.Num])), nil
	default:
		return NewNull(), newError(ErrTypeMismatch, tok.Line, tok.Content, "%s has no keys", owner.Kind())
	}
}

// key turns a property or attribute lexeme into an array key.
func (p *Processor) key(sub Subtype, tok Token) (Key, error) {
	var v Value
	switch sub {
	case PropIndexed, AttrIndexed:
		n, err := parseNumber(SanitizeIndex(tok.Content))
		if err != nil {
			return Key{}, newError(ErrSyntax, tok.Line, tok.Content, "%v", err)
		}
		return IndexKey(n.Int()), nil
	case PropNamed, AttrNamed:
		return NameKey(unquote(tok.Content)), nil
	case PropSore, AttrSore:
		v = p.sore
	case PropAre, AttrAre:
		v = p.are
	default:
		var err error
		if v, err = p.scopes.Get(p.cur, tok.Content); err != nil {
			return Key{}, at(err, tok.Line)
		}
	}
	k, ok := keyFromValue(v)
	if !ok {
		return Key{}, newError(ErrTypeMismatch, tok.Line, tok.Content, "%s cannot be a key", v.Kind())
	}
	return k, nil
}

// execAttribute stores into 「Aの鍵は…」. The owner variable is replaced by an
// updated copy; an unbound owner starts out as an empty array.
func (p *Processor) execAttribute(toks []Token) (Value, error) {
	owner, attr := toks[0], toks[1]
	if attr.Type != TokenAttribute {
		return NewNull(), newError(ErrSyntax, attr.Line, attr.Content, "nested assignment target")
	}
	if ReadOnly(attr.Sub) {
		return NewNull(), newError(ErrReadOnly, attr.Line, attr.Content, "")
	}
	if ValueType(owner.Content) != SubNone {
		return NewNull(), newError(ErrSyntax, owner.Line, owner.Content, "cannot assign into a literal")
	}
	if len(toks) == 2 {
		return NewNull(), newError(ErrSyntax, attr.Line, attr.Content, "missing value")
	}

	key, err := p.key(attr.Sub, attr)
	if err != nil {
		return NewNull(), err
	}
	v, err := p.evalValue(toks[2:])
	if err != nil {
		return NewNull(), err
	}

	arr := NewSdArray()
	if cur, err := p.scopes.Get(p.cur, owner.Content); err == nil {
		if cur.Kind() != KindArray {
			return NewNull(), newError(ErrTypeMismatch, owner.Line, owner.Content, "%s has no keys", cur.Kind())
		}
		arr = cur.Array()
	}
	arr.Set(key, v.Copy())
	p.scopes.Set(p.cur, owner.Content, NewArray(arr))
	return v, nil
}
