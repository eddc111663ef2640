package sd

import (
	"fmt"
	"strconv"
	"strings"
)

type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindError
)

type Value struct {
	kind ValueKind
	data any
}

func NewNull() Value                 { return Value{kind: KindNull} }
func NewBool(b bool) Value           { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value           { return Value{kind: KindInt, data: i} }
func NewFloat(f float64) Value       { return Value{kind: KindFloat, data: f} }
func NewString(s string) Value       { return Value{kind: KindString, data: s} }
func NewArray(a *SdArray) Value      { return Value{kind: KindArray, data: a} }
func NewError(e *RuntimeError) Value { return Value{kind: KindError, data: e} }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) Bool() bool {
	b, _ := v.data.(bool)
	return b
}

func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.data.(int64)
	case KindFloat:
		return int64(v.data.(float64))
	default:
		return 0
	}
}

func (v Value) Float() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.data.(int64))
	case KindFloat:
		return v.data.(float64)
	default:
		return 0
	}
}

func (v Value) Array() *SdArray {
	a, _ := v.data.(*SdArray)
	return a
}

func (v Value) Err() *RuntimeError {
	e, _ := v.data.(*RuntimeError)
	return e
}

func (v Value) isNumeric() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// Copy returns a value that shares no mutable state with v.
func (v Value) Copy() Value {
	if v.kind == KindArray {
		return NewArray(v.Array().Clone())
	}
	return v
}

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindError:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "無"
	case KindBool:
		if v.Bool() {
			return "真"
		}
		return "偽"
	case KindInt:
		return strconv.FormatInt(v.data.(int64), 10)
	case KindFloat:
		return strconv.FormatFloat(v.data.(float64), 'f', -1, 64)
	case KindString:
		return v.data.(string)
	case KindArray:
		return v.Array().String()
	case KindError:
		return fmt.Sprintf("error(%s)", v.Err().Kind)
	default:
		return fmt.Sprintf("<%v>", v.kind)
	}
}

func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull, KindError:
		return false
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.data.(int64) != 0
	case KindFloat:
		return v.data.(float64) != 0
	case KindString:
		return v.data.(string) != ""
	case KindArray:
		return v.Array().Len() > 0
	default:
		return true
	}
}

func (v Value) Equal(other Value) bool {
	if v.isNumeric() && other.isNumeric() {
		if v.kind == KindInt && other.kind == KindInt {
			return v.Int() == other.Int()
		}
		return v.Float() == other.Float()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool() == other.Bool()
	case KindString:
		return v.data.(string) == other.data.(string)
	case KindArray:
		return v.Array().Equal(other.Array())
	case KindError:
		return v.Err().Kind == other.Err().Kind
	default:
		return false
	}
}

// parseNumber converts a numeric lexeme, full-width or not, into an int or float value.
func parseNumber(lexeme string) (Value, error) {
	norm := NormalizeNumber(lexeme)
	if strings.Contains(norm, ".") {
		f, err := strconv.ParseFloat(norm, 64)
		if err != nil {
			return NewNull(), err
		}
		return NewFloat(f), nil
	}
	i, err := strconv.ParseInt(norm, 10, 64)
	if err != nil {
		return NewNull(), err
	}
	return NewInt(i), nil
}

// keyFromValue maps a runtime value onto an array key.
func keyFromValue(v Value) (Key, bool) {
	switch v.kind {
	case KindInt:
		return IndexKey(v.Int()), true
	case KindFloat:
		f := v.Float()
		if f != float64(int64(f)) {
			return Key{}, false
		}
		return IndexKey(int64(f)), true
	case KindString:
		return NameKey(v.String()), true
	default:
		return Key{}, false
	}
}
