package sd

import (
	"cmp"
	"strings"
)

// evalCondition evaluates 「AがBならば」 or 「Aならば」. cond ends with the
// comparison token. The left side may be a call, as in 「AをBで割った余りが0ならば」.
func (p *Processor) evalCondition(cond []Token) (bool, error) {
	op := cond[len(cond)-1]
	body := cond[:len(cond)-1]
	if len(body) == 0 {
		return false, newError(ErrSyntax, op.Line, op.Content, "missing operand")
	}

	split := -1
	for i := len(body) - 1; i >= 0; i-- {
		if body[i].Type == TokenParticle && body[i].Content == particleSubject {
			split = i
			break
		}
	}

	if split < 0 {
		v, err := p.evalOperand(body)
		if err != nil {
			return false, err
		}
		switch op.Sub {
		case CmpEq:
			return v.Truthy(), nil
		case CmpNotEq:
			return !v.Truthy(), nil
		default:
			return false, newError(ErrSyntax, op.Line, op.Content, "comparison needs two operands")
		}
	}

	if split == 0 || split == len(body)-1 {
		return false, newError(ErrSyntax, op.Line, op.Content, "missing operand")
	}
	left, err := p.evalOperand(body[:split])
	if err != nil {
		return false, err
	}
	right, err := p.evalExpr(body[split+1:])
	if err != nil {
		return false, err
	}
	return compareValues(op, left, right)
}

// evalOperand evaluates an expression, or a call when particles are present.
// Conditions and interpolations use it; their lexemes never end in a verb token.
func (p *Processor) evalOperand(toks []Token) (Value, error) {
	if hasType(toks, TokenParticle) {
		callee := toks[len(toks)-1]
		if callee.Type != TokenVariable {
			return NewNull(), newError(ErrSyntax, callee.Line, callee.Content, "expected a verb")
		}
		call := append(append([]Token(nil), toks[:len(toks)-1]...), Token{Type: TokenFunctionCall, Content: callee.Content, Line: callee.Line})
		return p.call(call)
	}
	return p.evalExpr(toks)
}

func compareValues(op Token, left, right Value) (bool, error) {
	switch op.Sub {
	case CmpEq:
		return left.Equal(right), nil
	case CmpNotEq:
		return !left.Equal(right), nil
	}

	order, ok := orderValues(left, right)
	if !ok {
		return false, newError(ErrTypeMismatch, op.Line, op.Content, "cannot order %s and %s", left.Kind(), right.Kind())
	}
	switch op.Sub {
	case CmpGt:
		return order > 0, nil
	case CmpLt:
		return order < 0, nil
	case CmpGtEq:
		return order >= 0, nil
	case CmpLtEq:
		return order <= 0, nil
	default:
		return false, newError(ErrSyntax, op.Line, op.Content, "unknown comparison")
	}
}

// orderValues compares numbers numerically and strings lexicographically.
func orderValues(left, right Value) (int, bool) {
	switch {
	case left.Kind() == KindInt && right.Kind() == KindInt:
		return cmp.Compare(left.Int(), right.Int()), true
	case left.isNumeric() && right.isNumeric():
		return cmp.Compare(left.Float(), right.Float()), true
	case left.Kind() == KindString && right.Kind() == KindString:
		return strings.Compare(left.String(), right.String()), true
	default:
		return 0, false
	}
}
