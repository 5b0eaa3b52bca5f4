package enumerate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

func TestEnumerateEmpty(t *testing.T) {
	got, err := Enumerate(nil)
	if err != nil {
		t.Fatalf("Enumerate(nil): %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("empty input should yield exactly one assignment, got %d", len(got))
	}
	if len(got[0]) != 0 {
		t.Errorf("the single assignment should be empty, got %v", got[0])
	}
}

func TestEnumerateCountAndDistinct(t *testing.T) {
	for n := 0; n <= 8; n++ {
		vars := make([]string, n)
		for i := range vars {
			vars[i] = fmt.Sprintf("V%d", i)
		}

		got, err := Enumerate(vars)
		if err != nil {
			t.Fatalf("Enumerate(%d vars): %v", n, err)
		}
		if uint64(len(got)) != Count(n) {
			t.Fatalf("n=%d: expected %d assignments, got %d", n, Count(n), len(got))
		}

		seen := make(map[string]bool, len(got))
		for _, a := range got {
			if len(a) != n {
				t.Fatalf("n=%d: assignment %v has %d literals", n, a, len(a))
			}
			for i, lit := range a {
				if lit.Var != vars[i] {
					t.Fatalf("n=%d: literal %d is %s, want variable %s", n, i, lit, vars[i])
				}
			}
			key := a.String()
			if seen[key] {
				t.Fatalf("n=%d: duplicate assignment %s", n, key)
			}
			seen[key] = true
		}
	}
}

// Decoding each assignment back to a bit pattern must reconstruct every
// row of the truth table exactly once.
func TestEnumerateTruthTableRoundTrip(t *testing.T) {
	vars := []string{"A", "B", "C", "D"}
	got, err := Enumerate(vars)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	rows := make(map[int]int)
	for _, a := range got {
		row := 0
		for _, lit := range a {
			row <<= 1
			if lit.Value {
				row |= 1
			}
		}
		rows[row]++
	}

	for row := 0; row < 16; row++ {
		if rows[row] != 1 {
			t.Errorf("truth table row %04b seen %d times", row, rows[row])
		}
	}
}

func TestEnumerateOrder(t *testing.T) {
	got, err := Enumerate([]string{"A", "B"})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}

	want := []string{"At Bt", "At Bf", "Af Bt", "Af Bf"}
	for i, a := range got {
		if a.String() != want[i] {
			t.Errorf("assignment %d = %q, want %q", i, a.String(), want[i])
		}
	}
}

func TestEnumerateIndependentSlices(t *testing.T) {
	got, err := Enumerate([]string{"A", "B"})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	got[0][0] = network.False("A")
	if got[1][0] != network.True("A") {
		t.Error("assignments share backing storage")
	}
}

func TestEachStopsEarly(t *testing.T) {
	calls := 0
	err := Each([]string{"A", "B", "C"}, func(network.Assignment) bool {
		calls++
		return calls < 3
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected walk to stop after 3 calls, got %d", calls)
	}
}

func TestEnumerateTooLarge(t *testing.T) {
	vars := make([]string, MaxVariables+1)
	for i := range vars {
		vars[i] = fmt.Sprintf("V%d", i)
	}

	if _, err := Enumerate(vars); !errors.Is(err, internalerr.ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if err := Each(vars, func(network.Assignment) bool { return true }); !errors.Is(err, internalerr.ErrTooLarge) {
		t.Errorf("Each: expected ErrTooLarge, got %v", err)
	}
}

func TestEnumerateCapsPrealloc(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{4, 16},
		{16, maxPrealloc},
		{17, maxPrealloc},
		{MaxVariables, maxPrealloc},
	}
	for _, tt := range tests {
		if got := capacity(tt.n); got != tt.want {
			t.Errorf("capacity(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}

	vars := make([]string, 4)
	for i := range vars {
		vars[i] = fmt.Sprintf("V%d", i)
	}
	got, err := Enumerate(vars)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(got) != 16 || cap(got) != 16 {
		t.Errorf("expected 16 assignments in a 16 slot slice, got len %d cap %d", len(got), cap(got))
	}
}
