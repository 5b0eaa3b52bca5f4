package query

import (
	"fmt"
	"strings"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

// Given separates query literals from evidence literals
const Given = "given"

// Request is a parsed query: P(Query | Evidence)
type Request struct {
	Query    []network.Literal
	Evidence []network.Literal
}

// HasEvidence reports whether the request conditions on anything
func (r Request) HasEvidence() bool {
	return len(r.Evidence) > 0
}

// String renders the request the way it was typed, e.g. "Jt Mt given Bt"
func (r Request) String() string {
	var b strings.Builder
	writeLiterals(&b, r.Query)
	if r.HasEvidence() {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Given)
		b.WriteByte(' ')
		writeLiterals(&b, r.Evidence)
	}
	return b.String()
}

// Parse splits tokens on the "given" keyword and parses each side.
// A trailing "given" with nothing after it means no evidence.
func Parse(tokens []string) (Request, error) {
	var req Request
	seenGiven := false

	for _, tok := range tokens {
		if tok == Given {
			if seenGiven {
				return Request{}, &internalerr.InvalidQueryError{Literal: tok, Reason: "keyword repeated"}
			}
			seenGiven = true
			continue
		}

		lit, err := network.ParseLiteral(tok)
		if err != nil {
			return Request{}, err
		}
		if seenGiven {
			req.Evidence = append(req.Evidence, lit)
		} else {
			req.Query = append(req.Query, lit)
		}
	}

	return req, nil
}

// ParseLine parses a whitespace separated query line
func ParseLine(line string) (Request, error) {
	return Parse(strings.Fields(line))
}

// Format renders an answer as "P ( Jt Mt given Bt ) = 0.592242590000000"
func Format(req Request, p float64, precision int) string {
	expr := req.String()
	if expr != "" {
		expr += " "
	}
	return fmt.Sprintf("P ( %s) = %.*f", expr, precision, p)
}

func writeLiterals(b *strings.Builder, lits []network.Literal) {
	for i, lit := range lits {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(lit.String())
	}
}
