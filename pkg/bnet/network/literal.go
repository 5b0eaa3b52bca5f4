package network

import (
	"strings"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
)

// Literal pairs a variable with a truth value.
// It is written as the variable symbol followed by "t" or "f", e.g. "Bt".
type Literal struct {
	Var   string
	Value bool
}

// True returns the literal v=true
func True(v string) Literal { return Literal{Var: v, Value: true} }

// False returns the literal v=false
func False(v string) Literal { return Literal{Var: v, Value: false} }

func (l Literal) String() string {
	if l.Value {
		return l.Var + "t"
	}
	return l.Var + "f"
}

// ParseLiteral parses a token such as "Bt" or "JohnCallsf".
// The last character is the truth marker, everything before it is the symbol.
func ParseLiteral(token string) (Literal, error) {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return Literal{}, &internalerr.InvalidQueryError{
			Literal: token,
			Reason:  "expected a variable symbol followed by t or f",
		}
	}

	name, marker := token[:len(token)-1], token[len(token)-1]
	switch marker {
	case 't':
		return True(name), nil
	case 'f':
		return False(name), nil
	default:
		return Literal{}, &internalerr.InvalidQueryError{
			Literal: token,
			Reason:  "truth marker must be t or f",
		}
	}
}

// ParseLiterals parses every token, stopping at the first error
func ParseLiterals(tokens []string) ([]Literal, error) {
	out := make([]Literal, 0, len(tokens))
	for _, tok := range tokens {
		lit, err := ParseLiteral(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, lit)
	}
	return out, nil
}

// Assignment is an ordered set of literals with unique variables.
// A complete assignment covers every network variable exactly once.
type Assignment []Literal

// Vars returns the variable symbols in assignment order
func (a Assignment) Vars() []string {
	vars := make([]string, len(a))
	for i, lit := range a {
		vars[i] = lit.Var
	}
	return vars
}

// Value returns the truth value assigned to v
func (a Assignment) Value(v string) (value, ok bool) {
	for _, lit := range a {
		if lit.Var == v {
			return lit.Value, true
		}
	}
	return false, false
}

// Index maps each variable to its value.
func (a Assignment) Index() map[string]bool {
	idx := make(map[string]bool, len(a))
	for _, lit := range a {
		idx[lit.Var] = lit.Value
	}
	return idx
}

// Clone returns a copy that shares no backing array with a
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	copy(out, a)
	return out
}

func (a Assignment) String() string {
	parts := make([]string, len(a))
	for i, lit := range a {
		parts[i] = lit.String()
	}
	return strings.Join(parts, " ")
}
