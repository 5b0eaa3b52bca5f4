package network

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
)

// maxAuditParents caps the rows Audit walks per variable (2^k rows)
const maxAuditParents = 20

// IssueKind classifies an audit finding
type IssueKind string

const (
	IssueMissingRow IssueKind = "missing_row"
	IssueRowSum     IssueKind = "row_sum"
	IssueTooWide    IssueKind = "too_wide"
)

// Issue is a data problem found by Audit.
// The engine never enforces these; lookups on missing rows fail at query time.
type Issue struct {
	Kind     IssueKind
	Variable string
	Given    []Literal
	Sum      float64
}

func (i Issue) String() string {
	given := make([]string, len(i.Given))
	for j, lit := range i.Given {
		given[j] = lit.String()
	}
	cond := ""
	if len(given) > 0 {
		cond = " | " + strings.Join(given, ",")
	}

	switch i.Kind {
	case IssueMissingRow:
		return fmt.Sprintf("%s%s: missing entry", i.Variable, cond)
	case IssueRowSum:
		return fmt.Sprintf("%s%s: P(t)+P(f) = %g, want 1", i.Variable, cond, i.Sum)
	case IssueTooWide:
		return fmt.Sprintf("%s: too many parents to audit", i.Variable)
	default:
		return fmt.Sprintf("%s%s: %s", i.Variable, cond, i.Kind)
	}
}

// Audit checks that every parent combination has both a true and a false
// entry and that the two sum to 1 within tolerance.
func (n *Network) Audit(tolerance float64) []Issue {
	var issues []Issue

	for _, v := range n.TopologicalOrder() {
		nd := n.nodes[v]
		if len(nd.parents) > maxAuditParents {
			issues = append(issues, Issue{Kind: IssueTooWide, Variable: v})
			continue
		}

		rows := uint64(1) << uint(len(nd.parents))
		for row := uint64(0); row < rows; row++ {
			given := nd.givenForRow(row)

			pt, errT := n.LookupCPT(True(v), given)
			pf, errF := n.LookupCPT(False(v), given)
			if isMissing(errT) || isMissing(errF) {
				issues = append(issues, Issue{Kind: IssueMissingRow, Variable: v, Given: given})
				continue
			}

			if sum := pt + pf; math.Abs(sum-1) > tolerance {
				issues = append(issues, Issue{Kind: IssueRowSum, Variable: v, Given: given, Sum: sum})
			}
		}
	}

	return issues
}

func isMissing(err error) bool {
	return errors.Is(err, internalerr.ErrMissingEntry)
}
