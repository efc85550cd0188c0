package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerr "github.com/KirkDiggler/grimoire/internal/errors"
)

func TestWrap_PreservesCode(t *testing.T) {
	base := gerr.NotFoundf("spell %q not found", "wish").WithMeta("spell_id", "wish")

	wrapped := gerr.Wrap(base, "lookup failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, gerr.CodeNotFound, wrapped.Code)
	assert.True(t, gerr.IsNotFound(wrapped))
	assert.Equal(t, "wish", gerr.GetMeta(wrapped)["spell_id"])
	assert.Equal(t, `lookup failed: spell "wish" not found`, wrapped.Error())
}

func TestWrap_ForeignErrorIsUnknown(t *testing.T) {
	wrapped := gerr.Wrap(stderrors.New("boom"), "redis")

	assert.True(t, gerr.Is(wrapped, gerr.CodeUnknown))
	assert.ErrorContains(t, wrapped, "boom")
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, gerr.Wrap(nil, "nothing"))
	assert.Nil(t, gerr.Wrapf(nil, "nothing %d", 1))
	assert.Nil(t, gerr.WrapWithCode(nil, gerr.CodeInternal, "nothing"))
}

func TestWrapWithCode(t *testing.T) {
	wrapped := gerr.WrapWithCode(stderrors.New("eof"), gerr.CodeInternal, "decode")

	assert.True(t, gerr.Is(wrapped, gerr.CodeInternal))
	assert.False(t, gerr.IsInvalidArgument(wrapped))
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors builds nil", func(t *testing.T) {
		assert.NoError(t, gerr.NewValidationBuilder().Build())
	})

	t.Run("fields are sorted and coded", func(t *testing.T) {
		err := gerr.NewValidationBuilder().
			Fieldf("recover", "exceeds budget of %d", 2).
			RequiredField("hit_dice").
			Build()

		require.Error(t, err)
		assert.True(t, gerr.IsInvalidArgument(err))
		assert.Equal(t, "validation failed: hit_dice: is required; recover: exceeds budget of 2", err.Error())

		fields, ok := gerr.GetMeta(err)["validation_errors"].(map[string][]string)
		require.True(t, ok)
		assert.Len(t, fields, 2)
	})
}
