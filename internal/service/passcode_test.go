package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode_DigitsOnly(t *testing.T) {
	for _, length := range []int{4, 6, 8, 10} {
		code, err := GenerateCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Empty(t, strings.Trim(code, "0123456789"), "код должен состоять только из цифр: %q", code)
	}
}

func TestGenerateCode_InvalidLength(t *testing.T) {
	_, err := GenerateCode(0)
	assert.Error(t, err)

	_, err = GenerateCode(19)
	assert.Error(t, err)
}

func TestGenerateCode_CoversAllDigits(t *testing.T) {
	seen := make(map[rune]bool)
	for i := 0; i < 200 && len(seen) < 10; i++ {
		code, err := GenerateCode(6)
		require.NoError(t, err)
		for _, r := range code {
			seen[r] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestPasscodeGenerator_HashAndMatch(t *testing.T) {
	g := NewPasscodeGenerator(6, "secret")

	hash := g.Hash("012345")
	assert.Equal(t, hash, g.Hash("012345"), "хеш должен быть детерминированным")
	assert.NotContains(t, hash, "012345")
	assert.Len(t, hash, 64)

	assert.True(t, g.Matches("012345", hash))
	assert.False(t, g.Matches("012346", hash))
	assert.False(t, g.Matches("", hash))
}

func TestPasscodeGenerator_SecretChangesHash(t *testing.T) {
	a := NewPasscodeGenerator(6, "secret-a")
	b := NewPasscodeGenerator(6, "secret-b")

	assert.NotEqual(t, a.Hash("123456"), b.Hash("123456"))
	assert.False(t, b.Matches("123456", a.Hash("123456")))
}

func TestPasscodeGenerator_Generate(t *testing.T) {
	g := NewPasscodeGenerator(8, "secret")
	code, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, code, 8)
	assert.Equal(t, 8, g.Length())
}
