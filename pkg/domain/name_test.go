package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "effigy/pkg/domain-errors"
)

// TestParseName_Invariants validates the naming invariant:
// "no empty name and no all-zero name is ever accepted".
func TestParseName_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseName("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects whitespace-only input", func(t *testing.T) {
		_, err := ParseName("   \t")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects input over the fixed width", func(t *testing.T) {
		_, err := ParseName(strings.Repeat("a", NameSize+1))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects interior NUL bytes", func(t *testing.T) {
		// "a" and "a\x00b" must not both reserve names that render as
		// prefix-trimmed lookalikes.
		for _, input := range []string{"a\x00b", "a\x00", "\x00a", "\x00\x00"} {
			_, err := ParseName(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		}
	})

	t.Run("accepts a name at exactly the fixed width", func(t *testing.T) {
		name, err := ParseName(strings.Repeat("b", NameSize))
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("b", NameSize), name.String())
	})

	t.Run("round-trips with zero padding stripped", func(t *testing.T) {
		name, err := ParseName("Alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice", name.String())
		assert.False(t, name.IsZero())
	})

	t.Run("zero value is the sentinel", func(t *testing.T) {
		var n Name
		assert.True(t, n.IsZero())
	})
}

func TestParseRecordID(t *testing.T) {
	t.Run("rejects empty segment", func(t *testing.T) {
		_, err := ParseRecordID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects negative values", func(t *testing.T) {
		_, err := ParseRecordID("-1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts zero", func(t *testing.T) {
		id, err := ParseRecordID("0")
		require.NoError(t, err)
		assert.Equal(t, RecordID(0), id)
	})
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"minter", "pauser", "admin"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}

	_, err := ParseRole("burner")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
