package joint

import (
	"github.com/cognicore/bnet/pkg/bnet/enumerate"
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

// Hidden returns the variables of all that fixed does not mention,
// in the order of all.
//
// fixed must name only variables from all, each at most once; otherwise
// an *internalerr.InvalidQueryError is returned.
func Hidden(fixed network.Assignment, all []string) ([]string, error) {
	known := make(map[string]bool, len(all))
	for _, v := range all {
		known[v] = true
	}

	mentioned := make(map[string]bool, len(fixed))
	for _, lit := range fixed {
		if !known[lit.Var] {
			return nil, &internalerr.InvalidQueryError{Literal: lit.String(), Reason: "unknown variable"}
		}
		if mentioned[lit.Var] {
			return nil, &internalerr.InvalidQueryError{Literal: lit.String(), Reason: "variable specified more than once"}
		}
		mentioned[lit.Var] = true
	}

	hidden := make([]string, 0, len(all)-len(mentioned))
	for _, v := range all {
		if !mentioned[v] {
			hidden = append(hidden, v)
		}
	}
	return hidden, nil
}

// Build returns every complete assignment over all that agrees with fixed:
// 2^|hidden| assignments, each fixed's literals followed by one
// enumeration of the hidden variables.
func Build(fixed network.Assignment, all []string) ([]network.Assignment, error) {
	var out []network.Assignment
	err := Each(fixed, all, func(a network.Assignment) bool {
		out = append(out, a)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Each streams the assignments Build would return
func Each(fixed network.Assignment, all []string, fn func(network.Assignment) bool) error {
	hidden, err := Hidden(fixed, all)
	if err != nil {
		return err
	}

	return enumerate.Each(hidden, func(h network.Assignment) bool {
		full := make(network.Assignment, 0, len(fixed)+len(h))
		full = append(full, fixed...)
		full = append(full, h...)
		return fn(full)
	})
}
