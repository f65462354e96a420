package logic

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "molecule/pkg/domain-errors"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func onlyAlice() Module {
	return Func(func(addr common.Address) bool { return addr == alice })
}

func TestFunc_Verdict(t *testing.T) {
	m := onlyAlice()
	assert.True(t, m.Verdict(alice))
	assert.False(t, m.Verdict(bob))
}

func TestDirectory(t *testing.T) {
	t.Run("deploy and lookup", func(t *testing.T) {
		d := NewDirectory()
		ref, err := d.DeployNew(onlyAlice())
		require.NoError(t, err)

		m, ok := d.Lookup(ref)
		require.True(t, ok)
		assert.True(t, m.Verdict(alice))
		assert.Equal(t, []common.Address{ref}, d.Refs())
	})

	t.Run("rejects redeploy at same address", func(t *testing.T) {
		d := NewDirectory()
		ref := common.HexToAddress("0x01")
		require.NoError(t, d.Deploy(ref, onlyAlice()))

		err := d.Deploy(ref, onlyAlice())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects nil module and zero address", func(t *testing.T) {
		d := NewDirectory()
		assert.True(t, dErrors.HasCode(d.Deploy(common.HexToAddress("0x01"), nil), dErrors.CodeValidation))
		assert.True(t, dErrors.HasCode(d.Deploy(common.Address{}, onlyAlice()), dErrors.CodeValidation))
	})

	t.Run("remove", func(t *testing.T) {
		d := NewDirectory()
		ref, err := d.DeployNew(onlyAlice())
		require.NoError(t, err)

		assert.True(t, d.Remove(ref))
		assert.False(t, d.Remove(ref))
		_, ok := d.Lookup(ref)
		assert.False(t, ok)
	})

	t.Run("refs are sorted", func(t *testing.T) {
		d := NewDirectory()
		hi := common.HexToAddress("0xff")
		lo := common.HexToAddress("0x01")
		require.NoError(t, d.Deploy(hi, onlyAlice()))
		require.NoError(t, d.Deploy(lo, onlyAlice()))
		assert.Equal(t, []common.Address{lo, hi}, d.Refs())
	})
}
