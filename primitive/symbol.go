package primitive

import (
	"strings"
	"unicode/utf8"
)

// SymbolCodeLen is the fixed length of a symbol identification code.
const SymbolCodeLen = 15

// NoSymbolCode is the code of a node without an assigned symbol.
var NoSymbolCode = strings.Repeat("-", SymbolCodeLen)

// ParseSymbolCode trims s and checks that exactly SymbolCodeLen characters
// remain.
func ParseSymbolCode(s string) (string, error) {
	code := strings.TrimSpace(s)
	if n := utf8.RuneCountInString(code); n != SymbolCodeLen {
		return "", parseErr("symbol code", s, "need 15 characters")
	}
	return code, nil
}
