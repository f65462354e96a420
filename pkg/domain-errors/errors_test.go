package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load policy")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeInternal))
	assert.Equal(t, "failed to load policy: connection reset", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
}

func TestHasCode(t *testing.T) {
	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("select: %w", New(CodeLogicIDNotFound, "logic id not found"))
		assert.True(t, HasCode(err, CodeLogicIDNotFound))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "policy not found")
		outer := Wrap(inner, CodeLogicIDNotFound, "logic id not found")
		assert.True(t, HasCode(outer, CodeLogicIDNotFound))
		assert.Equal(t, CodeLogicIDNotFound, CodeOf(outer))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestNewf(t *testing.T) {
	err := Newf(CodeDuplicateID, "policy id %d already registered", 7)
	assert.Equal(t, "policy id 7 already registered", err.Error())
	assert.True(t, Is(err, CodeDuplicateID))
}
