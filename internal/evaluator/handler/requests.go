package handler

import (
	"github.com/ethereum/go-ethereum/common"

	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

const maxSelectionSize = 256

// SelectRequest is the body for PUT /sessions/{id}/selection.
type SelectRequest struct {
	IDs []uint64 `json:"ids"`

	parsed []domain.PolicyID
}

func (r *SelectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	ids, err := parseIDs(r.IDs)
	if err != nil {
		return err
	}
	r.parsed = ids
	return nil
}

// CheckRequest is the body for the stateless POST /check.
type CheckRequest struct {
	IDs     []uint64 `json:"ids"`
	Address string   `json:"address"`

	parsedIDs     []domain.PolicyID
	parsedAddress common.Address
}

func (r *CheckRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	ids, err := parseIDs(r.IDs)
	if err != nil {
		return err
	}
	addr, err := domain.ParseAddress(r.Address)
	if err != nil {
		return err
	}
	r.parsedIDs = ids
	r.parsedAddress = addr
	return nil
}

func parseIDs(values []uint64) ([]domain.PolicyID, error) {
	if len(values) > maxSelectionSize {
		return nil, dErrors.Newf(dErrors.CodeValidation, "at most %d policy ids per selection", maxSelectionSize)
	}
	return domain.ParsePolicyIDs(values)
}
