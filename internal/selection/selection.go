// Package selection holds the ordered set of policy ids a caller evaluates
// against. A Selection is immutable; Context owns the current one for a
// session and replaces it atomically.
package selection

import (
	"context"
	"slices"

	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
	"molecule/pkg/platform/dedupe"
)

// Registry resolves policy ids. Only the not-found code is interpreted.
type Registry interface {
	Get(ctx context.Context, id domain.PolicyID) (*models.Record, error)
}

// Selection is an ordered set of policy ids. The zero value is empty.
type Selection struct {
	ids []domain.PolicyID
}

// IDs returns a copy in selection order.
func (s Selection) IDs() []domain.PolicyID {
	return slices.Clone(s.ids)
}

func (s Selection) Len() int {
	return len(s.ids)
}

func (s Selection) IsEmpty() bool {
	return len(s.ids) == 0
}

// Select validates every id against the registry and builds a selection in
// caller order, keeping the first occurrence of repeated ids. The first id
// without a record fails with CodeLogicIDNotFound.
func Select(ctx context.Context, registry Registry, ids []domain.PolicyID) (Selection, error) {
	unique := dedupe.Ordered(ids)
	for _, id := range unique {
		if _, err := registry.Get(ctx, id); err != nil {
			if id.IsNil() || dErrors.HasCode(err, dErrors.CodeNotFound) {
				return Selection{}, models.NewLogicIDNotFound(id)
			}
			return Selection{}, err
		}
	}
	return Selection{ids: unique}, nil
}

// Of builds a selection without registry validation. Callers that resolve
// ids at evaluation time use it for stateless checks.
func Of(ids ...domain.PolicyID) Selection {
	return Selection{ids: dedupe.Ordered(ids)}
}
