package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "molecule/pkg/domain-errors"
)

// PolicyID identifies a policy record. Zero is never a valid id.
type PolicyID uint64

// maxPolicyIDLen bounds textual ids before parsing.
const maxPolicyIDLen = 20

// ParsePolicyID parses a positive decimal policy id.
func ParsePolicyID(s string) (PolicyID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "policy id is required")
	}
	if len(s) > maxPolicyIDLen {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "policy id is too long")
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "policy id must be a positive integer")
	}
	return NewPolicyID(v)
}

// NewPolicyID validates a numeric id.
func NewPolicyID(v uint64) (PolicyID, error) {
	if v == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "policy id must be positive")
	}
	return PolicyID(v), nil
}

// ParsePolicyIDs parses every id, failing on the first invalid one.
func ParsePolicyIDs(values []uint64) ([]PolicyID, error) {
	ids := make([]PolicyID, 0, len(values))
	for _, v := range values {
		id, err := NewPolicyID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (id PolicyID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// IsNil reports whether the id is the zero value.
func (id PolicyID) IsNil() bool {
	return id == 0
}

// SessionID identifies a caller-scoped selection session.
type SessionID uuid.UUID

// NewSessionID returns a fresh random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID parses a non-nil UUID session id.
func ParseSessionID(s string) (SessionID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id must not be nil")
	}
	return SessionID(parsed), nil
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}
