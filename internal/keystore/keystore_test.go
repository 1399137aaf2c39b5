package keystore_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Save12sttm/Vaulto/internal/keystore"
	"github.com/Save12sttm/Vaulto/krypto"
)

func TestMemoryKeyRoundTrip(t *testing.T) {
	ks := keystore.New(keystore.NewMemoryBackend(), zap.NewNop())

	key, err := ks.Key(keystore.DefaultAlias)
	require.NoError(t, err)
	assert.Equal(t, keystore.DefaultAlias, key.Alias())

	payload, err := key.Encrypt([]byte("hunter2"))
	require.NoError(t, err)
	assert.Len(t, payload.IV, krypto.IVSize)

	got, err := key.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), got)
}

func TestKeyIsCachedPerAlias(t *testing.T) {
	ks := keystore.New(keystore.NewMemoryBackend(), nil)

	a, err := ks.Key("one")
	require.NoError(t, err)
	again, err := ks.Key("one")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := ks.Key("two")
	require.NoError(t, err)

	payload, err := a.Encrypt([]byte("secret"))
	require.NoError(t, err)
	_, err = b.Decrypt(payload)
	assert.ErrorIs(t, err, krypto.ErrAuthenticationFailed)
}

func TestFileBackendPersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()

	first, err := keystore.Open("file", dir, zap.NewNop())
	require.NoError(t, err)
	key, err := first.Key(keystore.DefaultAlias)
	require.NoError(t, err)
	payload, err := key.Encrypt([]byte("persist me"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, keystore.DefaultAlias+".key"))
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
	assert.Equal(t, int64(krypto.KeySize), info.Size())

	second, err := keystore.Open("file", dir, zap.NewNop())
	require.NoError(t, err)
	key2, err := second.Key(keystore.DefaultAlias)
	require.NoError(t, err)
	got, err := key2.Decrypt(payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("persist me"), got)
}

func TestFileBackendRejectsCorruptKey(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.key"), []byte("short"), 0o600))

	ks, err := keystore.Open("file", dir, nil)
	require.NoError(t, err)
	_, err = ks.Key("broken")
	assert.Error(t, err)
}

func TestInvalidAliases(t *testing.T) {
	ks := keystore.New(keystore.NewMemoryBackend(), nil)
	for _, alias := range []string{"", "  ", "../escape", `a\b`, ".."} {
		_, err := ks.Key(alias)
		assert.Error(t, err, "alias %q", alias)
	}
}

func TestOpenBackendSelection(t *testing.T) {
	_, err := keystore.Open("memory", "", nil)
	require.NoError(t, err)

	_, err = keystore.Open("file", "", nil)
	assert.Error(t, err)

	_, err = keystore.Open("tpm", t.TempDir(), nil)
	assert.Error(t, err)

	if runtime.GOOS != "darwin" {
		_, err = keystore.Open("keychain", "", nil)
		assert.ErrorIs(t, err, keystore.ErrUnsupported)

		ks, err := keystore.Open("auto", t.TempDir(), nil)
		require.NoError(t, err)
		_, err = ks.Key(keystore.DefaultAlias)
		require.NoError(t, err)
	}
}
