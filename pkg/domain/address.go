package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	dErrors "molecule/pkg/domain-errors"
)

// ParseAddress parses a 0x-prefixed (or bare) 40 hex digit account address.
// Unlike common.HexToAddress it never silently truncates or pads input.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, dErrors.Newf(dErrors.CodeInvalidInput, "invalid address %q", truncate(s))
	}
	return common.HexToAddress(s), nil
}

// ParseAddresses parses every element, preserving order and duplicates.
func ParseAddresses(values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, v := range values {
		addr, err := ParseAddress(v)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// NewModuleRef derives a fresh module address for a newly deployed module.
func NewModuleRef() common.Address {
	id := uuid.New()
	return common.BytesToAddress(id[:])
}

func truncate(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
