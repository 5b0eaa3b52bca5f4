package enumerate

import (
	"fmt"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

// MaxVariables caps exact enumeration at 2^30 assignments
const MaxVariables = 30

// maxPrealloc bounds the capacity Enumerate reserves up front
const maxPrealloc = 1 << 16

// Enumerate returns every truth assignment over vars: 2^N assignments,
// literals in the order of vars, true before false.
//
// Pattern i assigns vars[j] = false when bit (N-1-j) of i is set, so the
// first variable varies slowest. An empty vars yields one empty assignment.
func Enumerate(vars []string) ([]network.Assignment, error) {
	if err := checkSize(vars); err != nil {
		return nil, err
	}

	out := make([]network.Assignment, 0, capacity(len(vars)))
	err := Each(vars, func(a network.Assignment) bool {
		out = append(out, a)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Each streams the same sequence as Enumerate without holding it in memory.
// Each assignment passed to fn is freshly allocated. Returning false stops
// the walk.
func Each(vars []string, fn func(network.Assignment) bool) error {
	if err := checkSize(vars); err != nil {
		return err
	}

	n := len(vars)
	total := uint64(1) << uint(n)
	for pattern := uint64(0); pattern < total; pattern++ {
		a := make(network.Assignment, n)
		for j, v := range vars {
			bit := uint64(1) << uint(n-1-j)
			a[j] = network.Literal{Var: v, Value: pattern&bit == 0}
		}
		if !fn(a) {
			return nil
		}
	}
	return nil
}

// Count returns the number of assignments over n variables
func Count(n int) uint64 {
	return uint64(1) << uint(n)
}

// capacity is the up front allocation for n variables
func capacity(n int) int {
	return int(min(Count(n), maxPrealloc))
}

func checkSize(vars []string) error {
	if len(vars) > MaxVariables {
		return fmt.Errorf("%w: %d variables (max %d)", internalerr.ErrTooLarge, len(vars), MaxVariables)
	}
	return nil
}
