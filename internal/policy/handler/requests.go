package handler

import (
	"unicode/utf8"

	"molecule/internal/policy/models"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

const maxBatchSize = 500

// AddPolicyRequest is the body for POST /admin/policies and one entry of a batch.
type AddPolicyRequest struct {
	ID           uint64 `json:"id"`
	Module       string `json:"module"`
	AllowList    bool   `json:"allow_list"`
	Name         string `json:"name"`
	ReverseLogic bool   `json:"reverse_logic"`

	parsed models.AddLogicRequest
}

func (r *AddPolicyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	id, err := domain.NewPolicyID(r.ID)
	if err != nil {
		return err
	}
	ref, err := domain.ParseAddress(r.Module)
	if err != nil {
		return err
	}
	if len(r.Name) > models.MaxNameLen {
		return dErrors.Newf(dErrors.CodeValidation, "name must be at most %d bytes", models.MaxNameLen)
	}
	if !utf8.ValidString(r.Name) {
		return dErrors.New(dErrors.CodeValidation, "name must be valid UTF-8")
	}
	r.parsed = models.AddLogicRequest{
		ID:           id,
		ModuleRef:    ref,
		IsAllowList:  r.AllowList,
		Name:         r.Name,
		ReverseLogic: r.ReverseLogic,
	}
	return nil
}

type AddPolicyBatchRequest struct {
	Policies []AddPolicyRequest `json:"policies"`

	parsed []models.AddLogicRequest
}

func (r *AddPolicyBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Policies) > maxBatchSize {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d policies per batch", maxBatchSize)
	}
	r.parsed = make([]models.AddLogicRequest, 0, len(r.Policies))
	for i := range r.Policies {
		if err := r.Policies[i].Validate(); err != nil {
			return err
		}
		r.parsed = append(r.parsed, r.Policies[i].parsed)
	}
	return nil
}

// RemovePolicyBatchRequest is the body for POST /admin/policies/batch-delete.
type RemovePolicyBatchRequest struct {
	IDs []uint64 `json:"ids"`

	parsed []domain.PolicyID
}

func (r *RemovePolicyBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.IDs) > maxBatchSize {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d ids per batch", maxBatchSize)
	}
	ids, err := domain.ParsePolicyIDs(r.IDs)
	if err != nil {
		return err
	}
	r.parsed = ids
	return nil
}

type SetStatusRequest struct {
	Enabled *bool `json:"enabled"`
}

func (r *SetStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Enabled == nil {
		return dErrors.New(dErrors.CodeValidation, "enabled is required")
	}
	return nil
}
