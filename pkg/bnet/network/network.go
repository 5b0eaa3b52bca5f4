package network

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
)

// MaxParents bounds the parent set of a single variable.
// CPT rows are indexed by a bitmask over the declared parents.
const MaxParents = 63

// Entry is one CPT row: P(Child | Given)
type Entry struct {
	Child Literal
	Given []Literal // must cover exactly the child's declared parents, any order
	P     float64
}

// Definition is the external shape of a network: ordered variables,
// parent map (omitted child = root) and CPT entries.
type Definition struct {
	Variables []string
	Parents   map[string][]string
	Entries   []Entry
}

// cptKey identifies a CPT row structurally.
// Bit i of row is the value of the i-th declared parent.
type cptKey struct {
	value bool
	row   uint64
}

type node struct {
	parents     []string
	parentIndex map[string]int
	cpt         map[cptKey]float64
}

// Network is an immutable Bayesian network over boolean variables.
// All methods are safe for concurrent use.
type Network struct {
	order []string
	nodes map[string]*node
}

// New validates a definition and builds the network
func New(def Definition) (*Network, error) {
	if len(def.Variables) == 0 {
		return nil, invalid("no variables declared")
	}

	n := &Network{
		order: make([]string, 0, len(def.Variables)),
		nodes: make(map[string]*node, len(def.Variables)),
	}

	for _, v := range def.Variables {
		if v == "" {
			return nil, invalid("empty variable name")
		}
		if _, dup := n.nodes[v]; dup {
			return nil, invalid("variable %q declared twice", v)
		}
		n.nodes[v] = &node{
			parentIndex: make(map[string]int),
			cpt:         make(map[cptKey]float64),
		}
		n.order = append(n.order, v)
	}

	children := make([]string, 0, len(def.Parents))
	for child := range def.Parents {
		children = append(children, child)
	}
	sort.Strings(children)
	for _, child := range children {
		if _, ok := n.nodes[child]; !ok {
			return nil, invalid("parent map names unknown variable %q", child)
		}
	}

	for _, v := range n.order {
		nd := n.nodes[v]
		parents := def.Parents[v]
		if len(parents) > MaxParents {
			return nil, invalid("variable %q has %d parents (max %d)", v, len(parents), MaxParents)
		}
		for i, p := range parents {
			if p == v {
				return nil, invalid("variable %q is its own parent", v)
			}
			if _, ok := n.nodes[p]; !ok {
				return nil, invalid("variable %q has unknown parent %q", v, p)
			}
			if _, dup := nd.parentIndex[p]; dup {
				return nil, invalid("variable %q lists parent %q twice", v, p)
			}
			nd.parentIndex[p] = i
		}
		nd.parents = append([]string(nil), parents...)
	}

	if cycle := n.findCycle(); cycle != nil {
		return nil, invalid("cycle: %s", strings.Join(cycle, " -> "))
	}

	for _, e := range def.Entries {
		if math.IsNaN(e.P) || e.P < 0 || e.P > 1 {
			return nil, invalid("entry %s: probability %v outside [0,1]", formatKey(e.Child, e.Given), e.P)
		}
		nd, ok := n.nodes[e.Child.Var]
		if !ok {
			return nil, invalid("entry %s: unknown variable %q", formatKey(e.Child, e.Given), e.Child.Var)
		}
		row, err := nd.row(e.Given)
		if err != nil {
			return nil, invalid("entry %s: %v", formatKey(e.Child, e.Given), err)
		}
		key := cptKey{value: e.Child.Value, row: row}
		if _, dup := nd.cpt[key]; dup {
			return nil, invalid("entry %s: defined twice", formatKey(e.Child, e.Given))
		}
		nd.cpt[key] = e.P
	}

	return n, nil
}

// Variables returns the variable symbols in declaration order
func (n *Network) Variables() []string {
	return append([]string(nil), n.order...)
}

// Len returns the number of variables
func (n *Network) Len() int { return len(n.order) }

// Has reports whether v is a network variable
func (n *Network) Has(v string) bool {
	_, ok := n.nodes[v]
	return ok
}

// ParentsOf returns v's parents in declared order; empty for roots and
// unknown variables.
func (n *Network) ParentsOf(v string) []string {
	nd, ok := n.nodes[v]
	if !ok {
		return nil
	}
	return append([]string(nil), nd.parents...)
}

// LookupCPT returns P(child | parents). The parent literals must cover
// exactly the child's declared parents; their order does not matter.
func (n *Network) LookupCPT(child Literal, parents []Literal) (float64, error) {
	nd, ok := n.nodes[child.Var]
	if !ok {
		return 0, &internalerr.MissingEntryError{Key: formatKey(child, parents)}
	}
	row, err := nd.row(parents)
	if err != nil {
		return 0, &internalerr.MissingEntryError{Key: formatKey(child, parents)}
	}
	p, ok := nd.cpt[cptKey{value: child.Value, row: row}]
	if !ok {
		return 0, &internalerr.MissingEntryError{Key: formatKey(child, parents)}
	}
	return p, nil
}

// Definition exports the network in its external shape.
// Entries are ordered by variable, then parent row, true before false.
func (n *Network) Definition() Definition {
	def := Definition{
		Variables: n.Variables(),
		Parents:   make(map[string][]string),
	}

	for _, v := range n.order {
		nd := n.nodes[v]
		if len(nd.parents) > 0 {
			def.Parents[v] = append([]string(nil), nd.parents...)
		}

		keys := make([]cptKey, 0, len(nd.cpt))
		for k := range nd.cpt {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].row != keys[j].row {
				return keys[i].row < keys[j].row
			}
			return keys[i].value && !keys[j].value
		})

		for _, k := range keys {
			def.Entries = append(def.Entries, Entry{
				Child: Literal{Var: v, Value: k.value},
				Given: nd.givenForRow(k.row),
				P:     nd.cpt[k],
			})
		}
	}

	return def
}

// TopologicalOrder returns the variables with every parent before its
// children. Ties keep declaration order.
func (n *Network) TopologicalOrder() []string {
	indegree := make(map[string]int, len(n.order))
	children := make(map[string][]string, len(n.order))
	for _, v := range n.order {
		indegree[v] = len(n.nodes[v].parents)
		for _, p := range n.nodes[v].parents {
			children[p] = append(children[p], v)
		}
	}

	out := make([]string, 0, len(n.order))
	placed := make(map[string]bool, len(n.order))
	for len(out) < len(n.order) {
		for _, v := range n.order {
			if placed[v] || indegree[v] > 0 {
				continue
			}
			placed[v] = true
			out = append(out, v)
			for _, c := range children[v] {
				indegree[c]--
			}
			break
		}
	}
	return out
}

// row maps parent literals to the CPT row index
func (nd *node) row(given []Literal) (uint64, error) {
	if len(given) != len(nd.parents) {
		return 0, fmt.Errorf("expected literals for parents [%s], got %d", strings.Join(nd.parents, ","), len(given))
	}

	var row, seen uint64
	for _, lit := range given {
		idx, ok := nd.parentIndex[lit.Var]
		if !ok {
			return 0, fmt.Errorf("%q is not a parent", lit.Var)
		}
		bit := uint64(1) << uint(idx)
		if seen&bit != 0 {
			return 0, fmt.Errorf("parent %q given twice", lit.Var)
		}
		seen |= bit
		if lit.Value {
			row |= bit
		}
	}
	return row, nil
}

func (nd *node) givenForRow(row uint64) []Literal {
	if len(nd.parents) == 0 {
		return nil
	}
	given := make([]Literal, len(nd.parents))
	for i, p := range nd.parents {
		given[i] = Literal{Var: p, Value: row&(uint64(1)<<uint(i)) != 0}
	}
	return given
}

// findCycle returns one cycle through the parent graph, or nil
func (n *Network) findCycle() []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(n.order))
	var stack []string

	var visit func(v string) []string
	visit = func(v string) []string {
		state[v] = inProgress
		stack = append(stack, v)
		for _, p := range n.nodes[v].parents {
			switch state[p] {
			case inProgress:
				for i, s := range stack {
					if s == p {
						return append(append([]string(nil), stack[i:]...), p)
					}
				}
			case unvisited:
				if cycle := visit(p); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[v] = done
		return nil
	}

	for _, v := range n.order {
		if state[v] == unvisited {
			if cycle := visit(v); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// formatKey renders a CPT key for messages, e.g. "At|Bt,Ef"
func formatKey(child Literal, given []Literal) string {
	if len(given) == 0 {
		return child.String()
	}
	parts := make([]string, len(given))
	for i, lit := range given {
		parts[i] = lit.String()
	}
	return child.String() + "|" + strings.Join(parts, ",")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidNetwork, fmt.Sprintf(format, args...))
}
