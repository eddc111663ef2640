package sd

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Oracles classify raw lexemes. They hold no state and are shared by the
// lexer and the processor.

var (
	numberPattern  = regexp.MustCompile(`^[-+]?[0-9]+(\.[0-9]+)?$`)
	indexedPattern = regexp.MustCompile(`^([0-9]+)(つ目|個目|番目)$`)
)

var lengthWords = map[string]bool{
	"長さ":  true,
	"大きさ": true,
	"数":   true,
	"個数":  true,
	"要素数": true,
}

const (
	soreWord  = "それ"
	areWord   = "あれ"
	arrayWord = "配列"
)

// NormalizeNumber folds full-width digits, signs and decimal points to ASCII.
func NormalizeNumber(lexeme string) string {
	return width.Narrow.String(lexeme)
}

func isStringLiteral(lexeme string) bool {
	return strings.HasPrefix(lexeme, "「") && strings.HasSuffix(lexeme, "」") && len(lexeme) >= len("「」")
}

// ValueType classifies a lexeme as a literal. SubNone marks a plain identifier.
func ValueType(lexeme string) Subtype {
	switch {
	case numberPattern.MatchString(NormalizeNumber(lexeme)):
		return ValNumber
	case isStringLiteral(lexeme):
		return ValString
	}
	switch lexeme {
	case "真":
		return ValTrue
	case "偽":
		return ValFalse
	case "無":
		return ValNull
	case soreWord:
		return ValSore
	case areWord:
		return ValAre
	case arrayWord:
		return ValArray
	}
	return SubNone
}

// PropertyType classifies the key following a possessive in a read.
func PropertyType(lexeme string) Subtype {
	switch {
	case lengthWords[lexeme]:
		return PropLength
	case indexedPattern.MatchString(NormalizeNumber(lexeme)):
		return PropIndexed
	case isStringLiteral(lexeme):
		return PropNamed
	case lexeme == soreWord:
		return PropSore
	case lexeme == areWord:
		return PropAre
	default:
		return PropVariable
	}
}

// AttributeType classifies the key following a possessive in an assignment target.
func AttributeType(lexeme string) Subtype {
	switch PropertyType(lexeme) {
	case PropLength:
		return AttrLength
	case PropIndexed:
		return AttrIndexed
	case PropNamed:
		return AttrNamed
	case PropSore:
		return AttrSore
	case PropAre:
		return AttrAre
	default:
		return AttrVariable
	}
}

// ReadOnly reports whether writes to a key of the given subtype must be rejected.
func ReadOnly(sub Subtype) bool {
	return sub == PropLength || sub == AttrLength
}

// SanitizeIndex strips the counter suffix from an indexed key, leaving ASCII digits.
func SanitizeIndex(lexeme string) string {
	m := indexedPattern.FindStringSubmatch(NormalizeNumber(lexeme))
	if m == nil {
		return lexeme
	}
	return m[1]
}
