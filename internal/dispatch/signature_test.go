package dispatch

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignKnownVector(t *testing.T) {
	got := Sign("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestSignDeterministic(t *testing.T) {
	body := []byte(`{"event":"lead.created","id":"x"}`)

	first := Sign("s3cr3t", body)
	second := Sign("s3cr3t", body)
	assert.Equal(t, first, second)

	raw, err := hex.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestSignChangesWithEveryByte(t *testing.T) {
	body := []byte(`{"event":"lead.created","id":"x"}`)
	base := Sign("s3cr3t", body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.NotEqual(t, base, Sign("s3cr3t", mutated), "byte %d", i)
	}

	assert.NotEqual(t, base, Sign("other", body))
}
