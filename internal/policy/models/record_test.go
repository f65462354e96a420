package models

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molecule/internal/logic"
	"molecule/pkg/domain"
	dErrors "molecule/pkg/domain-errors"
)

var always = logic.Func(func(common.Address) bool { return true })

func TestNewRecord(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	ref := common.HexToAddress("0x01")

	t.Run("enabled on creation", func(t *testing.T) {
		r, err := NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref, IsAllowList: true, Name: "aml"}, always, now)
		require.NoError(t, err)
		assert.True(t, r.Enabled)
		assert.Equal(t, now, r.CreatedAt)
		assert.Equal(t, now, r.UpdatedAt)
		assert.Equal(t, ref, r.ModuleRef)
	})

	t.Run("invariants", func(t *testing.T) {
		_, err := NewRecord(AddLogicRequest{ID: 0, ModuleRef: ref}, always, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref}, nil, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		_, err = NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref, Name: strings.Repeat("n", MaxNameLen+1)}, always, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("name is stored verbatim", func(t *testing.T) {
		r, err := NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref, Name: "  kyc\t"}, always, now)
		require.NoError(t, err)
		assert.Equal(t, "  kyc\t", r.Name)
	})

	t.Run("invalid UTF-8 name is rejected", func(t *testing.T) {
		_, err := NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref, Name: "ky\xffc"}, always, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("disabled on request", func(t *testing.T) {
		r, err := NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref, Disabled: true}, always, now)
		require.NoError(t, err)
		assert.False(t, r.Enabled)
	})

	t.Run("names need not be unique or meaningful", func(t *testing.T) {
		a, err := NewRecord(AddLogicRequest{ID: 1, ModuleRef: ref, Name: "same"}, always, now)
		require.NoError(t, err)
		b, err := NewRecord(AddLogicRequest{ID: 2, ModuleRef: ref, Name: "same"}, always, now)
		require.NoError(t, err)
		assert.Equal(t, a.Name, b.Name)
	})
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r, err := NewRecord(AddLogicRequest{ID: 3, ModuleRef: common.HexToAddress("0x02")}, always, time.Now())
	require.NoError(t, err)

	c := r.Clone()
	c.SetEnabled(false, time.Now())
	assert.True(t, r.Enabled)
	assert.False(t, c.Enabled)
	assert.Nil(t, (*Record)(nil).Clone())
}

func TestMissingLogicID(t *testing.T) {
	err := NewLogicIDNotFound(domain.PolicyID(42))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeLogicIDNotFound))
	assert.Contains(t, err.Error(), "logic id not found")

	id, ok := MissingLogicID(fmt.Errorf("select: %w", err))
	require.True(t, ok)
	assert.Equal(t, domain.PolicyID(42), id)

	_, ok = MissingLogicID(dErrors.New(dErrors.CodeNotFound, "policy not found"))
	assert.False(t, ok)
}
