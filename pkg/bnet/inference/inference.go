package inference

import "github.com/cognicore/bnet/pkg/bnet/network"

// Engine answers probability queries over a Bayesian network
// This interface allows swapping implementations (exact enumeration, variable elimination, etc.)
type Engine interface {
	// Query returns P(query | evidence), or P(query) when evidence is empty
	// Example: Query([Jt Mt], [Bt])
	Query(query, evidence []network.Literal) (float64, error)

	// Marginal returns the probability of a partial assignment
	Marginal(fixed network.Assignment) (float64, error)

	// Explain answers the query and reports how the answer was computed
	Explain(query, evidence []network.Literal) (Explanation, error)
}

// Explanation breaks a conditional query into its two marginals
type Explanation struct {
	Query    network.Assignment
	Evidence network.Assignment

	NumeratorHidden   []string // variables summed out for P(query, evidence)
	DenominatorHidden []string // variables summed out for P(evidence)
	NumeratorTerms    int
	DenominatorTerms  int

	Numerator   float64
	Denominator float64 // 1 when there is no evidence
	Probability float64
}
