package sd

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

type builtin func(p *Processor, args []arg) (Value, error)

func defaultBuiltins() map[string]builtin {
	return map[string]builtin{
		"足す":    builtinAdd,
		"引く":    builtinSubtract,
		"掛ける":   builtinMultiply,
		"割る":    builtinDivide,
		"割った余り": builtinModulo,
		"言う":    builtinSay,
		"繋げる":   builtinJoin,
		"押し込む":  builtinPush,
	}
}

// Builtins lists the verbs available without a definition, sorted.
func (p *Processor) Builtins() []string {
	return slices.Sorted(maps.Keys(p.builtins))
}

// roles orders args by the particles that mark each role, falling back to
// source order for unmarked ones.
func roles(args []arg, particles ...string) ([]Value, error) {
	if len(args) != len(particles) {
		return nil, newError(ErrArity, 0, "", "expected %d arguments, got %d", len(particles), len(args))
	}
	params := make([]Param, len(particles))
	for i, particle := range particles {
		params[i] = Param{Particle: particle}
	}
	return bindParams(params, args), nil
}

func builtinAdd(_ *Processor, args []arg) (Value, error) {
	vals, err := roles(args, "に", "を")
	if err != nil {
		return NewNull(), err
	}
	return addValues(vals[0], vals[1])
}

func builtinSubtract(_ *Processor, args []arg) (Value, error) {
	vals, err := roles(args, particleFrom, "を")
	if err != nil {
		return NewNull(), err
	}
	return subtractValues(vals[0], vals[1])
}

func builtinMultiply(_ *Processor, args []arg) (Value, error) {
	vals, err := roles(args, "に", "を")
	if err != nil {
		return NewNull(), err
	}
	return multiplyValues(vals[0], vals[1])
}

func builtinDivide(_ *Processor, args []arg) (Value, error) {
	vals, err := roles(args, "を", "で")
	if err != nil {
		return NewNull(), err
	}
	return divideValues(vals[0], vals[1])
}

func builtinModulo(_ *Processor, args []arg) (Value, error) {
	vals, err := roles(args, "を", "で")
	if err != nil {
		return NewNull(), err
	}
	return moduloValues(vals[0], vals[1])
}

func builtinSay(p *Processor, args []arg) (Value, error) {
	vals, err := roles(args, "を")
	if err != nil {
		return NewNull(), err
	}
	fmt.Fprintln(p.config.Output, vals[0].String())
	return vals[0], nil
}

func builtinJoin(_ *Processor, args []arg) (Value, error) {
	if len(args) == 0 {
		return NewNull(), newError(ErrArity, 0, "", "expected at least 1 argument")
	}
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.value.String())
	}
	return NewString(sb.String()), nil
}

func builtinPush(_ *Processor, args []arg) (Value, error) {
	vals, err := roles(args, "に", "を")
	if err != nil {
		return NewNull(), err
	}
	if vals[0].Kind() != KindArray {
		return NewNull(), newError(ErrTypeMismatch, 0, "", "cannot push onto %s", vals[0].Kind())
	}
	arr := vals[0].Array().Clone()
	arr.Append(vals[1].Copy())
	return NewArray(arr), nil
}

func addValues(left, right Value) (Value, error) {
	switch {
	case left.Kind() == KindInt && right.Kind() == KindInt:
		return NewInt(left.Int() + right.Int()), nil
	case left.isNumeric() && right.isNumeric():
		return NewFloat(left.Float() + right.Float()), nil
	case left.Kind() == KindString && right.Kind() == KindString:
		return NewString(left.String() + right.String()), nil
	case left.Kind() == KindArray:
		arr := left.Array().Clone()
		arr.Append(right.Copy())
		return NewArray(arr), nil
	default:
		return NewNull(), mismatch("add", left, right)
	}
}

func subtractValues(left, right Value) (Value, error) {
	switch {
	case left.Kind() == KindInt && right.Kind() == KindInt:
		return NewInt(left.Int() - right.Int()), nil
	case left.isNumeric() && right.isNumeric():
		return NewFloat(left.Float() - right.Float()), nil
	default:
		return NewNull(), mismatch("subtract", left, right)
	}
}

func multiplyValues(left, right Value) (Value, error) {
	switch {
	case left.Kind() == KindInt && right.Kind() == KindInt:
		return NewInt(left.Int() * right.Int()), nil
	case left.isNumeric() && right.isNumeric():
		return NewFloat(left.Float() * right.Float()), nil
	default:
		return NewNull(), mismatch("multiply", left, right)
	}
}

// divideValues keeps integer results when the division is exact.
func divideValues(left, right Value) (Value, error) {
	if !left.isNumeric() || !right.isNumeric() {
		return NewNull(), mismatch("divide", left, right)
	}
	if right.Float() == 0 {
		return NewNull(), newError(ErrDivisionByZero, 0, "", "")
	}
	if left.Kind() == KindInt && right.Kind() == KindInt && left.Int()%right.Int() == 0 {
		return NewInt(left.Int() / right.Int()), nil
	}
	return NewFloat(left.Float() / right.Float()), nil
}

func moduloValues(left, right Value) (Value, error) {
	if !left.isNumeric() || !right.isNumeric() {
		return NewNull(), mismatch("take the remainder of", left, right)
	}
	if right.Float() == 0 {
		return NewNull(), newError(ErrDivisionByZero, 0, "", "")
	}
	if left.Kind() == KindInt && right.Kind() == KindInt {
		return NewInt(left.Int() % right.Int()), nil
	}
	return NewFloat(math.Mod(left.Float(), right.Float())), nil
}

func mismatch(op string, left, right Value) *RuntimeError {
	return newError(ErrTypeMismatch, 0, "", "cannot %s %s and %s", op, left.Kind(), right.Kind())
}
