package totp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/totp"
)

// Base32 of the ASCII seed "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

var rfcVectors = []struct {
	unix  int64
	code6 string
	code8 string
}{
	{59, "287082", "94287082"},
	{1111111109, "081804", "07081804"},
	{1111111111, "050471", "14050471"},
	{1234567890, "005924", "89005924"},
	{2000000000, "279037", "69279037"},
	{20000000000, "353130", "65353130"},
}

func TestGenerateCodeRFC6238(t *testing.T) {
	key, err := totp.Decode(rfcSecret)
	require.NoError(t, err)
	require.Equal(t, []byte("12345678901234567890"), key)

	for _, v := range rfcVectors {
		assert.Equal(t, v.code6, totp.GenerateCode(key, v.unix, 30, 6), "t=%d", v.unix)
		assert.Equal(t, v.code8, totp.GenerateCode(key, v.unix, 30, 8), "t=%d", v.unix)
	}
}

func TestGenerateCodeDefaults(t *testing.T) {
	key, err := totp.Decode(rfcSecret)
	require.NoError(t, err)

	assert.Equal(t, "287082", totp.GenerateCode(key, 59, 0, 0))
	assert.Len(t, totp.GenerateCode(key, 59, 30, 20), 10)
}

func TestGenerateCodeStableWithinStep(t *testing.T) {
	key, err := totp.Decode(rfcSecret)
	require.NoError(t, err)

	base := int64(1700000010)
	start := base - base%30
	want := totp.GenerateCode(key, start, 30, 6)
	for off := int64(0); off < 30; off++ {
		assert.Equal(t, want, totp.GenerateCode(key, start+off, 30, 6))
	}
}

func TestGenerateCodeNegativeTimeFloors(t *testing.T) {
	key, err := totp.Decode(rfcSecret)
	require.NoError(t, err)

	// -1 and -30 share step -1; 0 starts step 0.
	assert.Equal(t, totp.GenerateCode(key, -30, 30, 6), totp.GenerateCode(key, -1, 30, 6))
	assert.NotEqual(t, totp.GenerateCode(key, -1, 30, 6), totp.GenerateCode(key, 0, 30, 6))
}

func TestDecodeNormalisesInput(t *testing.T) {
	want, err := totp.Decode(rfcSecret)
	require.NoError(t, err)

	for _, in := range []string{
		"gezdgnbvgy3tqojqgezdgnbvgy3tqojq",
		"GEZD GNBV GY3T QOJQ GEZD GNBV GY3T QOJQ",
		" gezd\tgnbv gy3t\nqojq gezdgnbvgy3tqojq ",
	} {
		got, err := totp.Decode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestDecodePadding(t *testing.T) {
	got, err := totp.Decode("MFRGG===")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got, err = totp.Decode("MFRGG")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	_, err = totp.Decode("MFRGG=")
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "not-base32!", "ABC1", "M"} {
		_, err := totp.Decode(in)
		require.ErrorIs(t, err, totp.ErrInvalidSecret, "input %q", in)
		assert.Equal(t, fault.Format, fault.KindOf(err))
		assert.False(t, totp.ValidateSecret(in))
	}
	assert.True(t, totp.ValidateSecret(rfcSecret))
}

func TestRemainingAndProgress(t *testing.T) {
	assert.Equal(t, uint32(30), totp.RemainingSeconds(0, 30))
	assert.Equal(t, uint32(1), totp.RemainingSeconds(29, 30))
	assert.Equal(t, uint32(1), totp.RemainingSeconds(59, 30))
	assert.Equal(t, uint32(30), totp.RemainingSeconds(-30, 30))
	assert.Equal(t, uint32(1), totp.RemainingSeconds(-1, 30))

	for unix := int64(-90); unix < 90; unix++ {
		r := totp.RemainingSeconds(unix, 30)
		require.GreaterOrEqual(t, r, uint32(1))
		require.LessOrEqual(t, r, uint32(30))

		p := totp.ProgressFraction(unix, 30)
		require.Greater(t, p, float32(0))
		require.LessOrEqual(t, p, float32(1))
	}
	assert.InDelta(t, 0.5, totp.ProgressFraction(15, 30), 1e-6)
	assert.Equal(t, uint32(30), totp.RemainingSeconds(0, 0))
}

func TestNow(t *testing.T) {
	code, err := totp.Now(rfcSecret, time.Unix(1111111109, 0))
	require.NoError(t, err)
	assert.Equal(t, "081804", code)

	_, err = totp.Now("###", time.Now())
	assert.ErrorIs(t, err, totp.ErrInvalidSecret)
}

func TestVerifySkew(t *testing.T) {
	key, err := totp.Decode(rfcSecret)
	require.NoError(t, err)

	assert.True(t, totp.Verify(key, "287082", 59, 0))
	assert.False(t, totp.Verify(key, "287082", 89, 0))
	assert.True(t, totp.Verify(key, "287082", 89, 1))
	assert.True(t, totp.Verify(key, "287082", 29, 1))
	assert.False(t, totp.Verify(key, "287083", 59, 1))
	assert.False(t, totp.Verify(key, "28708", 59, 1))
}

func TestWatchEmitsUntilCancelled(t *testing.T) {
	key, err := totp.Decode(rfcSecret)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	clock := func() time.Time { return time.Unix(59, 0) }
	ch := totp.Watch(ctx, key, clock, 10*time.Millisecond)

	first := <-ch
	assert.Equal(t, "287082", first.Code)
	assert.Equal(t, uint32(1), first.Remaining)
	assert.InDelta(t, 1.0/30, first.Progress, 1e-6)

	second := <-ch
	assert.Equal(t, first.Code, second.Code)

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("watch channel not closed after cancel")
		}
	}
}
