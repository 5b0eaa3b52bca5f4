package enumeration

import (
	"go.uber.org/zap"

	"github.com/cognicore/bnet/pkg/bnet/evaluate"
	"github.com/cognicore/bnet/pkg/bnet/inference"
	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/joint"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

// Engine answers queries by enumerating the full joint distribution.
// It holds no mutable state; concurrent queries are safe.
type Engine struct {
	net    *network.Network
	logger *zap.Logger
}

var _ inference.Engine = (*Engine)(nil)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for per-query debug output
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an enumeration engine over n
func New(n *network.Network, opts ...Option) *Engine {
	e := &Engine{
		net:    n,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Network returns the network the engine queries
func (e *Engine) Network() *network.Network { return e.net }

// Marginal returns the probability of fixed
func (e *Engine) Marginal(fixed network.Assignment) (float64, error) {
	return evaluate.MarginalProbability(fixed, e.net)
}

// Query returns P(query | evidence).
// With no evidence it is P(query); otherwise
// P(query ∪ evidence) / P(evidence).
func (e *Engine) Query(query, evidence []network.Literal) (float64, error) {
	ex, err := e.Explain(query, evidence)
	if err != nil {
		return 0, err
	}
	return ex.Probability, nil
}

// Explain answers the query and records both marginals
func (e *Engine) Explain(query, evidence []network.Literal) (inference.Explanation, error) {
	if err := e.validate(query, evidence); err != nil {
		return inference.Explanation{}, err
	}

	q := network.Assignment(query).Clone()
	ev := network.Assignment(evidence).Clone()

	ex := inference.Explanation{
		Query:    q,
		Evidence: ev,
	}

	if len(ev) == 0 {
		p, terms, err := evaluate.Marginal(q, e.net)
		if err != nil {
			return inference.Explanation{}, err
		}
		ex.NumeratorHidden, _ = joint.Hidden(q, e.net.Variables())
		ex.NumeratorTerms = terms
		ex.Numerator = p
		ex.Denominator = 1
		ex.Probability = p
		e.logQuery(ex)
		return ex, nil
	}

	union := make(network.Assignment, 0, len(q)+len(ev))
	union = append(union, q...)
	union = append(union, ev...)

	num, numTerms, err := evaluate.Marginal(union, e.net)
	if err != nil {
		return inference.Explanation{}, err
	}
	den, denTerms, err := evaluate.Marginal(ev, e.net)
	if err != nil {
		return inference.Explanation{}, err
	}
	if den == 0 {
		return inference.Explanation{}, &internalerr.DivisionByZeroError{Evidence: ev.String()}
	}

	ex.NumeratorHidden, _ = joint.Hidden(union, e.net.Variables())
	ex.DenominatorHidden, _ = joint.Hidden(ev, e.net.Variables())
	ex.NumeratorTerms = numTerms
	ex.DenominatorTerms = denTerms
	ex.Numerator = num
	ex.Denominator = den
	ex.Probability = num / den
	e.logQuery(ex)
	return ex, nil
}

// validate rejects unknown variables and any variable named twice,
// within or across query and evidence
func (e *Engine) validate(query, evidence []network.Literal) error {
	seen := make(map[string]string, len(query)+len(evidence))

	check := func(lit network.Literal, role string) error {
		if !e.net.Has(lit.Var) {
			return &internalerr.InvalidQueryError{Literal: lit.String(), Reason: "unknown variable"}
		}
		if prev, dup := seen[lit.Var]; dup {
			reason := "variable specified more than once in " + role
			if prev != role {
				reason = "variable appears in both query and evidence"
			}
			return &internalerr.InvalidQueryError{Literal: lit.String(), Reason: reason}
		}
		seen[lit.Var] = role
		return nil
	}

	for _, lit := range query {
		if err := check(lit, "query"); err != nil {
			return err
		}
	}
	for _, lit := range evidence {
		if err := check(lit, "evidence"); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) logQuery(ex inference.Explanation) {
	e.logger.Debug("query evaluated",
		zap.String("query", ex.Query.String()),
		zap.String("evidence", ex.Evidence.String()),
		zap.Int("numerator_terms", ex.NumeratorTerms),
		zap.Int("denominator_terms", ex.DenominatorTerms),
		zap.Float64("probability", ex.Probability))
}
