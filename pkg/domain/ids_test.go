package domain

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "molecule/pkg/domain-errors"
)

// TestParsePolicyID_Invariants validates the parsing invariant:
// "policy ids are positive integers"
func TestParsePolicyID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePolicyID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParsePolicyID("0")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative and non-numeric", func(t *testing.T) {
		for _, input := range []string{"-1", "one", "1.5", " 1"} {
			_, err := ParsePolicyID(input)
			require.Error(t, err, input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), input)
		}
	})

	t.Run("accepts positive integer", func(t *testing.T) {
		id, err := ParsePolicyID("42")
		require.NoError(t, err)
		assert.Equal(t, PolicyID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestParsePolicyIDs(t *testing.T) {
	ids, err := ParsePolicyIDs([]uint64{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []PolicyID{3, 1, 2}, ids)

	_, err = ParsePolicyIDs([]uint64{1, 0})
	require.Error(t, err)
}

func TestParseSessionID(t *testing.T) {
	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSessionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round trips", func(t *testing.T) {
		id := NewSessionID()
		parsed, err := ParseSessionID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.False(t, parsed.IsNil())
	})
}

// TestParseAddress_SecurityInvariants validates trust boundary rules for addresses.
func TestParseAddress_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE policy_records;--", true},
		{"Too short", "0x1234", true},
		{"Too long", "0x" + strings.Repeat("a", 41), true},
		{"Non hex", "0x" + strings.Repeat("g", 40), true},
		{"Empty string", "", true},
		{"Whitespace only", "   ", true},
		{"Oversized input", strings.Repeat("a", 1000), true},

		{"Lowercase with prefix", "0x" + strings.Repeat("ab", 20), false},
		{"Uppercase with prefix", "0x" + strings.Repeat("AB", 20), false},
		{"Without prefix", strings.Repeat("cd", 20), false},
		{"Zero address", "0x0000000000000000000000000000000000000000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestParseAddress_CaseInsensitive(t *testing.T) {
	lower, err := ParseAddress("0x" + strings.Repeat("ab", 20))
	require.NoError(t, err)
	upper, err := ParseAddress("0x" + strings.Repeat("AB", 20))
	require.NoError(t, err)
	assert.Equal(t, lower, upper)
}

func TestParseAddresses_PreservesOrderAndDuplicates(t *testing.T) {
	a := "0x" + strings.Repeat("11", 20)
	b := "0x" + strings.Repeat("22", 20)

	addrs, err := ParseAddresses([]string{b, a, b})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress(b), common.HexToAddress(a), common.HexToAddress(b)}, addrs)

	_, err = ParseAddresses([]string{a, "nope"})
	require.Error(t, err)
}

func TestNewModuleRef_Unique(t *testing.T) {
	assert.NotEqual(t, NewModuleRef(), NewModuleRef())
	assert.NotEqual(t, common.Address{}, NewModuleRef())
}
