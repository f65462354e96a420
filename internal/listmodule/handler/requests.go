package handler

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

const maxBatchAddresses = 1000

// CreateListRequest is the body for POST /admin/lists.
type CreateListRequest struct {
	Name string `json:"name"`
	// Ref optionally pins the list address; a fresh one is derived otherwise.
	Ref string `json:"ref,omitempty"`

	parsedRef *common.Address
}

func (r *CreateListRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Ref != "" {
		ref, err := domain.ParseAddress(r.Ref)
		if err != nil {
			return err
		}
		r.parsedRef = &ref
	}
	return nil
}

// UpdateListRequest is the body for the add and remove endpoints.
type UpdateListRequest struct {
	Addresses []string `json:"addresses"`

	parsed []common.Address
}

func (r *UpdateListRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Addresses) > maxBatchAddresses {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d addresses per batch", maxBatchAddresses)
	}
	addrs, err := domain.ParseAddresses(r.Addresses)
	if err != nil {
		return err
	}
	r.parsed = addrs
	return nil
}
