package evaluator

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"molecule/pkg/domain"
)

// PolicyStatus describes what happened to one selected policy during a check.
type PolicyStatus string

const (
	PolicyPassed   PolicyStatus = "passed"
	PolicyFailed   PolicyStatus = "failed"
	PolicyDisabled PolicyStatus = "disabled"
	// PolicyNotEvaluated marks policies after the outcome was settled.
	PolicyNotEvaluated PolicyStatus = "not_evaluated"
)

// PolicyOutcome is one entry of a decision trace.
type PolicyOutcome struct {
	ID           domain.PolicyID
	Name         string
	ModuleRef    common.Address
	AllowList    bool
	ReverseLogic bool
	// Verdict is the module's raw answer; meaningful for passed and failed.
	Verdict bool
	Status  PolicyStatus
}

// Result is a decision with its per-policy trace in selection order.
type Result struct {
	Address     common.Address
	Passed      bool
	Aggregation string
	Policies    []PolicyOutcome
	EvaluatedAt time.Time
}
