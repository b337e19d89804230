package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestIsStable(t *testing.T) {
	a := Digest([]byte("invoice_id,currency\nINV-1,EUR"))
	b := Digest([]byte("invoice_id,currency\nINV-1,EUR"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "hex sha-256")

	c := Digest([]byte("invoice_id,currency\nINV-1,USD"))
	assert.NotEqual(t, a, c, "one changed byte must change the digest")
}

func TestMatcher(t *testing.T) {
	data := []byte("some file bytes")
	m := NewMatcher(Digest(data))

	ok, err := m.Match(data)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match([]byte("different bytes"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewMatcher("").Match(data)
	assert.Error(t, err)
}
