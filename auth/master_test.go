package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Save12sttm/Vaulto/auth"
	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/krypto"
)

func TestSetupThenVerify(t *testing.T) {
	cred, err := auth.Setup("correct horse", "correct horse")
	require.NoError(t, err)
	assert.Len(t, cred.Salt, krypto.SaltLengthBytes)
	assert.Len(t, cred.Hash, krypto.DerivedKeyLen)

	require.NoError(t, auth.Verify("correct horse", cred))

	err = auth.Verify("correct horsf", cred)
	require.ErrorIs(t, err, auth.ErrIncorrectPassword)
	assert.Equal(t, fault.Authentication, fault.KindOf(err))
}

func TestSetupUsesFreshSalt(t *testing.T) {
	a, err := auth.Setup("samepassword", "samepassword")
	require.NoError(t, err)
	b, err := auth.Setup("samepassword", "samepassword")
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestSetupRejectsMismatch(t *testing.T) {
	_, err := auth.Setup("abcdefgh", "abcdefgH")
	require.ErrorIs(t, err, auth.ErrMismatch)
	assert.Equal(t, fault.Validation, fault.KindOf(err))
}

func TestSetupRejectsShort(t *testing.T) {
	_, err := auth.Setup("abcdefg", "abcdefg")
	require.ErrorIs(t, err, auth.ErrTooShort)
	assert.Equal(t, fault.Validation, fault.KindOf(err))
}

func TestSetupCountsCharactersNotBytes(t *testing.T) {
	// Seven runes but fourteen bytes.
	_, err := auth.Setup("ééééééé", "ééééééé")
	require.ErrorIs(t, err, auth.ErrTooShort)

	_, err = auth.Setup("éééééééé", "éééééééé")
	require.NoError(t, err)
}

func TestVerifyWithoutCredential(t *testing.T) {
	err := auth.Verify("anything", auth.Credential{})
	require.ErrorIs(t, err, auth.ErrNoCredentialsConfigured)

	err = auth.Verify("anything", auth.Credential{Hash: []byte{1}})
	require.ErrorIs(t, err, auth.ErrNoCredentialsConfigured)
}
