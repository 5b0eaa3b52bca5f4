package network

import (
	"errors"
	"strings"
	"testing"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
)

func alarmDefinition() Definition {
	return Definition{
		Variables: []string{"B", "E", "A", "J", "M"},
		Parents: map[string][]string{
			"A": {"B", "E"},
			"J": {"A"},
			"M": {"A"},
		},
		Entries: []Entry{
			{Child: True("B"), P: 0.001},
			{Child: False("B"), P: 0.999},
			{Child: True("E"), P: 0.002},
			{Child: False("E"), P: 0.998},
			{Child: True("A"), Given: []Literal{True("B"), True("E")}, P: 0.95},
			{Child: False("A"), Given: []Literal{True("B"), True("E")}, P: 0.05},
			{Child: True("A"), Given: []Literal{True("B"), False("E")}, P: 0.94},
			{Child: False("A"), Given: []Literal{True("B"), False("E")}, P: 0.06},
			{Child: True("A"), Given: []Literal{False("B"), True("E")}, P: 0.29},
			{Child: False("A"), Given: []Literal{False("B"), True("E")}, P: 0.71},
			{Child: True("A"), Given: []Literal{False("B"), False("E")}, P: 0.001},
			{Child: False("A"), Given: []Literal{False("B"), False("E")}, P: 0.999},
			{Child: True("J"), Given: []Literal{True("A")}, P: 0.9},
			{Child: False("J"), Given: []Literal{True("A")}, P: 0.1},
			{Child: True("J"), Given: []Literal{False("A")}, P: 0.05},
			{Child: False("J"), Given: []Literal{False("A")}, P: 0.95},
			{Child: True("M"), Given: []Literal{True("A")}, P: 0.7},
			{Child: False("M"), Given: []Literal{True("A")}, P: 0.3},
			{Child: True("M"), Given: []Literal{False("A")}, P: 0.01},
			{Child: False("M"), Given: []Literal{False("A")}, P: 0.99},
		},
	}
}

func mustAlarm(t *testing.T) *Network {
	t.Helper()
	n, err := New(alarmDefinition())
	if err != nil {
		t.Fatalf("New(alarm): %v", err)
	}
	return n
}

func TestNewAlarm(t *testing.T) {
	n := mustAlarm(t)

	if n.Len() != 5 {
		t.Errorf("expected 5 variables, got %d", n.Len())
	}
	if got := strings.Join(n.Variables(), ""); got != "BEAJM" {
		t.Errorf("expected declaration order BEAJM, got %s", got)
	}
	if !n.Has("A") || n.Has("X") {
		t.Error("Has reported wrong membership")
	}
}

func TestParentsOf(t *testing.T) {
	n := mustAlarm(t)

	if got := n.ParentsOf("A"); len(got) != 2 || got[0] != "B" || got[1] != "E" {
		t.Errorf("expected A parents [B E], got %v", got)
	}
	if got := n.ParentsOf("B"); len(got) != 0 {
		t.Errorf("root B should have no parents, got %v", got)
	}
	if got := n.ParentsOf("X"); got != nil {
		t.Errorf("unknown variable should have nil parents, got %v", got)
	}

	// Callers must not be able to mutate the network
	p := n.ParentsOf("A")
	p[0] = "Z"
	if n.ParentsOf("A")[0] != "B" {
		t.Error("ParentsOf leaked internal slice")
	}
}

func TestLookupCPT(t *testing.T) {
	n := mustAlarm(t)

	p, err := n.LookupCPT(True("B"), nil)
	if err != nil || p != 0.001 {
		t.Errorf("P(Bt) = %v, %v; want 0.001", p, err)
	}

	p, err = n.LookupCPT(True("A"), []Literal{False("B"), True("E")})
	if err != nil || p != 0.29 {
		t.Errorf("P(At|Bf,Et) = %v, %v; want 0.29", p, err)
	}
}

func TestLookupCPTParentOrderIndependent(t *testing.T) {
	n := mustAlarm(t)

	a, err := n.LookupCPT(True("A"), []Literal{True("B"), False("E")})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	b, err := n.LookupCPT(True("A"), []Literal{False("E"), True("B")})
	if err != nil {
		t.Fatalf("lookup reversed: %v", err)
	}
	if a != b || a != 0.94 {
		t.Errorf("parent order changed result: %v vs %v", a, b)
	}
}

func TestLookupCPTMissing(t *testing.T) {
	n := mustAlarm(t)

	cases := []struct {
		name    string
		child   Literal
		parents []Literal
	}{
		{"unknown variable", True("X"), nil},
		{"missing parent literal", True("A"), []Literal{True("B")}},
		{"non-parent literal", True("J"), []Literal{True("B")}},
		{"duplicate parent", True("A"), []Literal{True("B"), False("B")}},
		{"parents on root", True("B"), []Literal{True("E")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := n.LookupCPT(tc.child, tc.parents)
			var missing *internalerr.MissingEntryError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingEntryError, got %v", err)
			}
			if !errors.Is(err, internalerr.ErrMissingEntry) {
				t.Error("MissingEntryError should unwrap to ErrMissingEntry")
			}
		})
	}
}

func TestLookupCPTMissingRow(t *testing.T) {
	def := Definition{
		Variables: []string{"R"},
		Entries:   []Entry{{Child: True("R"), P: 0.4}},
	}
	n, err := New(def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = n.LookupCPT(False("R"), nil)
	var missing *internalerr.MissingEntryError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingEntryError, got %v", err)
	}
	if missing.Key != "Rf" {
		t.Errorf("expected key Rf, got %q", missing.Key)
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
	}{
		{"no variables", Definition{}},
		{"empty name", Definition{Variables: []string{""}}},
		{"duplicate variable", Definition{Variables: []string{"A", "A"}}},
		{"unknown child in parent map", Definition{
			Variables: []string{"A"},
			Parents:   map[string][]string{"Z": {"A"}},
		}},
		{"unknown parent", Definition{
			Variables: []string{"A"},
			Parents:   map[string][]string{"A": {"Z"}},
		}},
		{"self parent", Definition{
			Variables: []string{"A"},
			Parents:   map[string][]string{"A": {"A"}},
		}},
		{"duplicate parent", Definition{
			Variables: []string{"A", "B"},
			Parents:   map[string][]string{"A": {"B", "B"}},
		}},
		{"cycle", Definition{
			Variables: []string{"A", "B", "C"},
			Parents:   map[string][]string{"A": {"C"}, "B": {"A"}, "C": {"B"}},
		}},
		{"probability out of range", Definition{
			Variables: []string{"A"},
			Entries:   []Entry{{Child: True("A"), P: 1.5}},
		}},
		{"entry for unknown variable", Definition{
			Variables: []string{"A"},
			Entries:   []Entry{{Child: True("Q"), P: 0.5}},
		}},
		{"entry with wrong parents", Definition{
			Variables: []string{"A", "B"},
			Parents:   map[string][]string{"B": {"A"}},
			Entries:   []Entry{{Child: True("B"), P: 0.5}},
		}},
		{"duplicate entry", Definition{
			Variables: []string{"A"},
			Entries: []Entry{
				{Child: True("A"), P: 0.5},
				{Child: True("A"), P: 0.6},
			},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.def)
			if !errors.Is(err, internalerr.ErrInvalidNetwork) {
				t.Fatalf("expected ErrInvalidNetwork, got %v", err)
			}
		})
	}
}

func TestNewCycleMessage(t *testing.T) {
	_, err := New(Definition{
		Variables: []string{"A", "B"},
		Parents:   map[string][]string{"A": {"B"}, "B": {"A"}},
	})
	if err == nil || !strings.Contains(err.Error(), "A -> B -> A") {
		t.Errorf("expected cycle path in error, got %v", err)
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	n := mustAlarm(t)

	again, err := New(n.Definition())
	if err != nil {
		t.Fatalf("New(Definition()): %v", err)
	}

	for _, e := range alarmDefinition().Entries {
		want, _ := n.LookupCPT(e.Child, e.Given)
		got, err := again.LookupCPT(e.Child, e.Given)
		if err != nil {
			t.Fatalf("lookup %v after round trip: %v", e.Child, err)
		}
		if got != want {
			t.Errorf("%v: got %v, want %v", e.Child, got, want)
		}
	}

	if len(n.Definition().Entries) != 20 {
		t.Errorf("expected 20 entries, got %d", len(n.Definition().Entries))
	}
}

func TestTopologicalOrder(t *testing.T) {
	n, err := New(Definition{
		Variables: []string{"M", "A", "B"},
		Parents:   map[string][]string{"M": {"A"}, "A": {"B"}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := strings.Join(n.TopologicalOrder(), ""); got != "BAM" {
		t.Errorf("expected BAM, got %s", got)
	}
}

func TestAuditClean(t *testing.T) {
	n := mustAlarm(t)
	if issues := n.Audit(1e-9); len(issues) != 0 {
		t.Errorf("alarm network should audit clean, got %v", issues)
	}
}

func TestAuditFindsProblems(t *testing.T) {
	n, err := New(Definition{
		Variables: []string{"A", "B"},
		Parents:   map[string][]string{"B": {"A"}},
		Entries: []Entry{
			{Child: True("A"), P: 0.3},
			{Child: False("A"), P: 0.6},
			{Child: True("B"), Given: []Literal{True("A")}, P: 0.5},
			{Child: False("B"), Given: []Literal{True("A")}, P: 0.5},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	issues := n.Audit(1e-9)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %v", issues)
	}
	if issues[0].Kind != IssueRowSum || issues[0].Variable != "A" {
		t.Errorf("expected row sum issue on A, got %v", issues[0])
	}
	if issues[1].Kind != IssueMissingRow || issues[1].Variable != "B" {
		t.Errorf("expected missing row on B, got %v", issues[1])
	}
	if !strings.Contains(issues[1].String(), "B | Af") {
		t.Errorf("unexpected issue text %q", issues[1].String())
	}
}
