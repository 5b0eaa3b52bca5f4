package query

import (
	"errors"
	"testing"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

func TestParseSplitsOnGiven(t *testing.T) {
	req, err := ParseLine("Jt Mt given Bt Ef")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}

	wantQuery := []network.Literal{network.True("J"), network.True("M")}
	wantEvidence := []network.Literal{network.True("B"), network.False("E")}

	if len(req.Query) != len(wantQuery) || req.Query[0] != wantQuery[0] || req.Query[1] != wantQuery[1] {
		t.Errorf("query = %v, want %v", req.Query, wantQuery)
	}
	if len(req.Evidence) != len(wantEvidence) || req.Evidence[0] != wantEvidence[0] || req.Evidence[1] != wantEvidence[1] {
		t.Errorf("evidence = %v, want %v", req.Evidence, wantEvidence)
	}
	if !req.HasEvidence() {
		t.Error("expected evidence")
	}
}

func TestParseWithoutGiven(t *testing.T) {
	req, err := Parse([]string{"Bt"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(req.Query) != 1 || req.HasEvidence() {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestParseTrailingGivenMeansNoEvidence(t *testing.T) {
	req, err := ParseLine("At given")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if req.HasEvidence() {
		t.Errorf("expected no evidence, got %v", req.Evidence)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"repeated given", "At given Bt given Et"},
		{"bad marker", "Ax"},
		{"too short", "t"},
		{"bad evidence", "At given B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if err == nil {
				t.Fatalf("expected error for %q", tt.line)
			}
			var qe *internalerr.InvalidQueryError
			if !errors.As(err, &qe) {
				t.Errorf("expected InvalidQueryError, got %T: %v", err, err)
			}
			if !errors.Is(err, internalerr.ErrInvalidQuery) {
				t.Errorf("expected ErrInvalidQuery, got %v", err)
			}
		})
	}
}

func TestRequestString(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Bt", "Bt"},
		{"Jt   Mt given Bt", "Jt Mt given Bt"},
		{"given Bt", "given Bt"},
		{"At given", "At"},
		{"", ""},
	}

	for _, tt := range tests {
		req, err := ParseLine(tt.line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", tt.line, err)
		}
		if got := req.String(); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	req, _ := ParseLine("Jt Mt given Bt")

	if got, want := Format(req, 0.59224259, 6), "P ( Jt Mt given Bt ) = 0.592243"; got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}

	single, _ := ParseLine("Bt")
	if got, want := Format(single, 0.001, 15), "P ( Bt ) = 0.001000000000000"; got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}

	if got, want := Format(Request{}, 1, 1), "P ( ) = 1.0"; got != want {
		t.Errorf("Format empty = %q, want %q", got, want)
	}
}
