package sd

import "fmt"

// TokenType identifies the lexical category of a token.
type TokenType int

const (
	TokenEOL TokenType = iota
	TokenSuppress
	TokenComma

	TokenAssignment
	TokenAttribute
	TokenPossessive
	TokenProperty
	TokenValue
	TokenVariable
	TokenParticle
	TokenComparison

	TokenFunctionDef
	TokenFunctionCall
	TokenReturn
	TokenIf
	TokenElseIf
	TokenElse
	TokenLoop
	TokenBreak
	TokenNext
	TokenBlockEnd

	TokenInterpOpen
	TokenInterpClose
)

func (t TokenType) String() string {
	switch t {
	case TokenEOL:
		return "EOL"
	case TokenSuppress:
		return "SUPPRESS"
	case TokenComma:
		return "COMMA"
	case TokenAssignment:
		return "ASSIGNMENT"
	case TokenAttribute:
		return "ATTRIBUTE"
	case TokenPossessive:
		return "POSSESSIVE"
	case TokenProperty:
		return "PROPERTY"
	case TokenValue:
		return "VALUE"
	case TokenVariable:
		return "VARIABLE"
	case TokenParticle:
		return "PARTICLE"
	case TokenComparison:
		return "COMPARISON"
	case TokenFunctionDef:
		return "FUNCTION_DEF"
	case TokenFunctionCall:
		return "FUNCTION_CALL"
	case TokenReturn:
		return "RETURN"
	case TokenIf:
		return "IF"
	case TokenElseIf:
		return "ELSE_IF"
	case TokenElse:
		return "ELSE"
	case TokenLoop:
		return "LOOP"
	case TokenBreak:
		return "BREAK"
	case TokenNext:
		return "NEXT"
	case TokenBlockEnd:
		return "BLOCK_END"
	case TokenInterpOpen:
		return "INTERP_OPEN"
	case TokenInterpClose:
		return "INTERP_CLOSE"
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// Subtype refines a token with the classification an oracle assigned to it.
type Subtype int

const (
	SubNone Subtype = iota

	ValNumber
	ValString
	ValTrue
	ValFalse
	ValNull
	ValSore
	ValAre
	ValArray

	PropLength
	PropIndexed
	PropNamed
	PropSore
	PropAre
	PropVariable

	AttrLength
	AttrIndexed
	AttrNamed
	AttrSore
	AttrAre
	AttrVariable

	CmpEq
	CmpNotEq
	CmpGt
	CmpLt
	CmpGtEq
	CmpLtEq
)

func (s Subtype) String() string {
	switch s {
	case SubNone:
		return ""
	case ValNumber:
		return "NUMBER"
	case ValString:
		return "STRING"
	case ValTrue:
		return "TRUE"
	case ValFalse:
		return "FALSE"
	case ValNull:
		return "NULL"
	case ValSore:
		return "SORE"
	case ValAre:
		return "ARE"
	case ValArray:
		return "ARRAY"
	case PropLength, AttrLength:
		return "LENGTH"
	case PropIndexed, AttrIndexed:
		return "INDEXED_KEY"
	case PropNamed, AttrNamed:
		return "NAMED_KEY"
	case PropSore, AttrSore:
		return "SORE_KEY"
	case PropAre, AttrAre:
		return "ARE_KEY"
	case PropVariable, AttrVariable:
		return "VARIABLE_KEY"
	case CmpEq:
		return "EQ"
	case CmpNotEq:
		return "NOT_EQ"
	case CmpGt:
		return "GT"
	case CmpLt:
		return "LT"
	case CmpGtEq:
		return "GT_EQ"
	case CmpLtEq:
		return "LT_EQ"
	default:
		return fmt.Sprintf("sub(%d)", int(s))
	}
}

// Token captures lexical information for the processor.
type Token struct {
	Type    TokenType
	Sub     Subtype
	Content string
	Line    int
}

func (t Token) String() string {
	if t.Sub == SubNone {
		return fmt.Sprintf("%s(%s)", t.Type, t.Content)
	}
	return fmt.Sprintf("%s:%s(%s)", t.Type, t.Sub, t.Content)
}

// TokenSource yields tokens one at a time. ok is false once the stream is exhausted.
type TokenSource interface {
	NextToken() (tok Token, ok bool, err error)
}

type tokenSlice struct {
	tokens []Token
	pos    int
}

// NewTokenSlice replays an already lexed token sequence.
func NewTokenSlice(tokens []Token) TokenSource {
	return &tokenSlice{tokens: tokens}
}

func (s *tokenSlice) NextToken() (Token, bool, error) {
	if s.pos >= len(s.tokens) {
		return Token{}, false, nil
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, true, nil
}
