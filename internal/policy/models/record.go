package models

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"

	"molecule/internal/logic"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

const MaxNameLen = 256

// Record binds a policy id to a deployed logic module and the flags that
// shape how its verdict is read.
//
// Invariants:
//   - ID is positive and unique within a registry
//   - ModuleRef names a module that was deployed when the record was created
//   - Enabled is true on creation unless the request asks otherwise;
//     disabling keeps the record
//   - Name is stored exactly as given and must be valid UTF-8
type Record struct {
	ID           domain.PolicyID
	ModuleRef    common.Address
	Module       logic.Module
	IsAllowList  bool
	Name         string
	ReverseLogic bool
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AddLogicRequest carries the fields a caller supplies for registration.
type AddLogicRequest struct {
	ID           domain.PolicyID
	ModuleRef    common.Address
	IsAllowList  bool
	Name         string
	ReverseLogic bool
	// Disabled registers the record already excluded from checks.
	Disabled bool
}

// NewRecord validates and builds a record, enabled unless req.Disabled.
func NewRecord(req AddLogicRequest, module logic.Module, now time.Time) (*Record, error) {
	if req.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "policy id must be positive")
	}
	if module == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "logic module is required")
	}
	if len(req.Name) > MaxNameLen {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "name must be at most %d bytes", MaxNameLen)
	}
	if !utf8.ValidString(req.Name) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name must be valid UTF-8")
	}
	return &Record{
		ID:           req.ID,
		ModuleRef:    req.ModuleRef,
		Module:       module,
		IsAllowList:  req.IsAllowList,
		Name:         req.Name,
		ReverseLogic: req.ReverseLogic,
		Enabled:      !req.Disabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Clone returns a copy safe to hand outside the store. The module handle is
// shared.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// SetEnabled flips the status and stamps UpdatedAt.
func (r *Record) SetEnabled(enabled bool, now time.Time) {
	r.Enabled = enabled
	r.UpdatedAt = now
}

// logicIDNotFound carries the id a selection or check could not resolve.
type logicIDNotFound struct {
	id domain.PolicyID
}

func (e *logicIDNotFound) Error() string {
	return fmt.Sprintf("policy %s", e.id)
}

// NewLogicIDNotFound reports a selected id that has no record.
func NewLogicIDNotFound(id domain.PolicyID) error {
	return dErrors.Wrap(&logicIDNotFound{id: id}, dErrors.CodeLogicIDNotFound, "logic id not found")
}

// MissingLogicID extracts the offending id from a LogicIDNotFound error.
func MissingLogicID(err error) (domain.PolicyID, bool) {
	var target *logicIDNotFound
	if errors.As(err, &target) {
		return target.id, true
	}
	return 0, false
}
