// Package cel provides a logic module whose verdict is a CEL expression over
// the queried address.
package cel

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/cel-go/cel"

	dErrors "molecule/pkg/domain-errors"
)

// Module evaluates a compiled boolean expression. Variables:
//
//	address        checksummed hex string, e.g. "0xAbC..."
//	address_bytes  the 20 raw bytes
type Module struct {
	expr string
	prg  cel.Program
}

// New compiles expr. Expressions that do not produce a bool are rejected here
// rather than at verdict time.
func New(expr string) (*Module, error) {
	if expr == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "expression is required")
	}
	env, err := cel.NewEnv(
		cel.Variable("address", cel.StringType),
		cel.Variable("address_bytes", cel.BytesType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, dErrors.Wrap(issues.Err(), dErrors.CodeValidation, "compile expression")
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, dErrors.Newf(dErrors.CodeValidation, "expression must evaluate to bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "build program")
	}
	return &Module{expr: expr, prg: prg}, nil
}

func (m *Module) Expr() string {
	return m.expr
}

// Verdict returns false when evaluation fails so the answer stays total.
func (m *Module) Verdict(addr common.Address) bool {
	out, _, err := m.prg.Eval(map[string]any{
		"address":       addr.Hex(),
		"address_bytes": addr.Bytes(),
	})
	if err != nil {
		return false
	}
	v, ok := out.Value().(bool)
	return ok && v
}
