package evaluator

import (
	"strings"

	dErrors "molecule/pkg/domain-errors"
)

// Transform applies a record's flags to a raw module verdict.
// Pure: no I/O, no side effects.
//
//	reverse flips the raw verdict first
//	an allow-list passes on a (possibly flipped) true, a deny-list on false
func Transform(raw, allowList, reverse bool) bool {
	adjusted := raw != reverse
	if allowList {
		return adjusted
	}
	return !adjusted
}

// Aggregator folds per-policy outcomes into one decision. Outcomes are
// consumed in selection order; the fold stops at the first absorbing value.
type Aggregator interface {
	Name() string
	// Identity is the result over zero outcomes.
	Identity() bool
	// Absorbing is the outcome that settles the fold on its own.
	Absorbing() bool
}

type all struct{}

func (all) Name() string    { return "all" }
func (all) Identity() bool  { return true }
func (all) Absorbing() bool { return false }

type anyOf struct{}

func (anyOf) Name() string    { return "any" }
func (anyOf) Identity() bool  { return false }
func (anyOf) Absorbing() bool { return true }

var (
	// All passes only when every enabled policy passes (logical AND).
	All Aggregator = all{}
	// Any passes when at least one enabled policy passes (logical OR).
	Any Aggregator = anyOf{}
)

// ParseAggregator maps a configuration value onto a strategy.
func ParseAggregator(s string) (Aggregator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "and":
		return All, nil
	case "any", "or":
		return Any, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown aggregation %q (want all or any)", s)
	}
}

// Aggregate folds outcomes with agg, stopping at the first absorbing value.
func Aggregate(agg Aggregator, outcomes []bool) bool {
	f := newFold(agg)
	for _, o := range outcomes {
		if f.add(o) {
			break
		}
	}
	return f.result
}

// fold is the incremental form of Aggregate. Evaluate drives it one policy
// at a time so it can stop querying modules once the result is settled.
type fold struct {
	agg     Aggregator
	result  bool
	settled bool
}

func newFold(agg Aggregator) fold {
	return fold{agg: agg, result: agg.Identity()}
}

// add records one outcome and reports whether the result is now settled.
// Outcomes after settlement are ignored.
func (f *fold) add(outcome bool) bool {
	if !f.settled && outcome == f.agg.Absorbing() {
		f.result = outcome
		f.settled = true
	}
	return f.settled
}
