package krypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Save12sttm/Vaulto/krypto"
)

func TestRandomIndexRejectsBiasedTail(t *testing.T) {
	// For n=88 the largest multiple below 256 is 176; 200 and 176 must be
	// discarded and 11 used.
	r := bytes.NewReader([]byte{200, 176, 11})
	idx, err := krypto.RandomIndex(r, 88)
	require.NoError(t, err)
	assert.Equal(t, 11, idx)
	assert.Equal(t, 0, r.Len())
}

func TestRandomIndexMapsAcceptedByte(t *testing.T) {
	r := bytes.NewReader([]byte{175})
	idx, err := krypto.RandomIndex(r, 88)
	require.NoError(t, err)
	assert.Equal(t, 175%88, idx)
}

func TestRandomIndexLargeBound(t *testing.T) {
	r := bytes.NewReader([]byte{0x00, 0x00, 0x01, 0x2c})
	idx, err := krypto.RandomIndex(r, 1000)
	require.NoError(t, err)
	assert.Equal(t, 300, idx)
}

func TestRandomIndexErrors(t *testing.T) {
	_, err := krypto.RandomIndex(nil, 0)
	assert.Error(t, err)

	_, err = krypto.RandomIndex(bytes.NewReader(nil), 10)
	assert.Error(t, err)

	idx, err := krypto.RandomIndex(bytes.NewReader(nil), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestRandomIndexCoversRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 2000; i++ {
		idx, err := krypto.RandomIndex(nil, 10)
		require.NoError(t, err)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 10)
		seen[idx] = true
	}
	assert.Len(t, seen, 10)
}

func TestWipe(t *testing.T) {
	buf := []byte{1, 2, 3}
	krypto.Wipe(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
}
