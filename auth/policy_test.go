package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Save12sttm/Vaulto/auth"
)

func TestValidateMasterPassword(t *testing.T) {
	assert.ErrorIs(t, auth.ValidateMasterPassword(""), auth.ErrTooShort)
	assert.ErrorIs(t, auth.ValidateMasterPassword("1234567"), auth.ErrTooShort)
	assert.NoError(t, auth.ValidateMasterPassword("12345678"))
}

func TestMasterStrengthLevels(t *testing.T) {
	cases := []struct {
		pw   string
		want auth.Strength
	}{
		{"short", auth.StrengthWeak},
		{"abcdefgh", auth.StrengthFair},
		{"abcdefghijklmn", auth.StrengthFair},
		{"Abcdefghijk1", auth.StrengthGood},
		{"Abcdefghijklmno1", auth.StrengthStrong},
		{"abcdefghijklmnopqrst", auth.StrengthVeryStrong},
	}
	for _, tc := range cases {
		got := auth.MasterStrength(tc.pw)
		assert.Equal(t, tc.want, got.Level, "password %q", tc.pw)
	}
}

func TestMasterStrengthZxcvbnScore(t *testing.T) {
	weak := auth.MasterStrength("password")
	strong := auth.MasterStrength("t7#Vq!m2Lz@9pXw$")

	assert.GreaterOrEqual(t, weak.Score, 0)
	assert.LessOrEqual(t, strong.Score, 4)
	assert.Less(t, weak.Score, strong.Score)
	assert.NotEmpty(t, strong.CrackTime)
}

func TestStrengthProgress(t *testing.T) {
	assert.InDelta(t, 0.2, auth.StrengthWeak.Progress(), 1e-6)
	assert.InDelta(t, 1.0, auth.StrengthVeryStrong.Progress(), 1e-6)
	assert.Equal(t, "very strong", auth.StrengthVeryStrong.String())
}
