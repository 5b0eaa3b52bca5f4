package evaluate

import (
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/joint"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

// Model is the read-only view of a network the evaluator needs.
// *network.Network satisfies it.
type Model interface {
	Variables() []string
	ParentsOf(v string) []string
	LookupCPT(child network.Literal, parents []network.Literal) (float64, error)
}

// JointProbability returns the probability of one complete assignment:
// the product over every variable of P(value | parent values).
//
// Parent values are read directly from the assignment. A variable missing
// from the assignment is reported as an invalid query.
func JointProbability(a network.Assignment, m Model) (float64, error) {
	return newLayout(m).product(a)
}

// MarginalProbability sums JointProbability over every complete assignment
// consistent with fixed. The result is the exact probability of fixed.
func MarginalProbability(fixed network.Assignment, m Model) (float64, error) {
	sum, _, err := Marginal(fixed, m)
	return sum, err
}

// Marginal is MarginalProbability that also reports the number of joint
// terms summed.
func Marginal(fixed network.Assignment, m Model) (sum float64, terms int, err error) {
	l := newLayout(m)

	var evalErr error
	err = joint.Each(fixed, l.vars, func(a network.Assignment) bool {
		p, e := l.product(a)
		if e != nil {
			evalErr = e
			return false
		}
		sum += p
		terms++
		return true
	})
	if err != nil {
		return 0, 0, err
	}
	if evalErr != nil {
		return 0, 0, evalErr
	}
	return sum, terms, nil
}

// layout is the variable order and parent lists of a model, read once
// and shared by every term of a sum
type layout struct {
	m       Model
	vars    []string
	parents [][]string
	given   []network.Literal // scratch, sized to the widest parent list
}

func newLayout(m Model) *layout {
	vars := m.Variables()
	l := &layout{m: m, vars: vars, parents: make([][]string, len(vars))}

	widest := 0
	for i, v := range vars {
		l.parents[i] = m.ParentsOf(v)
		widest = max(widest, len(l.parents[i]))
	}
	l.given = make([]network.Literal, widest)
	return l
}

func (l *layout) product(a network.Assignment) (float64, error) {
	values := a.Index()

	p := 1.0
	for i, v := range l.vars {
		val, ok := values[v]
		if !ok {
			return 0, &internalerr.InvalidQueryError{Literal: v, Reason: "assignment is not complete"}
		}

		given := l.given[:len(l.parents[i])]
		for j, parent := range l.parents[i] {
			pv, ok := values[parent]
			if !ok {
				return 0, &internalerr.InvalidQueryError{Literal: parent, Reason: "assignment is not complete"}
			}
			given[j] = network.Literal{Var: parent, Value: pv}
		}

		entry, err := l.m.LookupCPT(network.Literal{Var: v, Value: val}, given)
		if err != nil {
			return 0, err
		}
		p *= entry
	}

	return p, nil
}
