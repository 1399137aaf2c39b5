package generator_test

import (
	"bytes"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/internal/generator"
)

func TestBuildPoolOrder(t *testing.T) {
	all := generator.BuildPool(generator.DefaultOptions())
	assert.Equal(t, generator.Uppercase+generator.Lowercase+generator.Digits+generator.Symbols, all)
	assert.Len(t, all, 88)

	pool := generator.BuildPool(generator.Options{Digits: true, Lowercase: true})
	assert.Equal(t, generator.Lowercase+generator.Digits, pool)
}

func TestBuildPoolExcludesAmbiguous(t *testing.T) {
	o := generator.DefaultOptions()
	o.ExcludeAmbiguous = true
	pool := generator.BuildPool(o)

	assert.Len(t, pool, 81)
	assert.False(t, strings.ContainsAny(pool, generator.Ambiguous))

	digits := generator.BuildPool(generator.Options{Digits: true, ExcludeAmbiguous: true})
	assert.Equal(t, "23456789", digits)
}

func TestBuildPoolEmpty(t *testing.T) {
	assert.Empty(t, generator.BuildPool(generator.Options{}))
	assert.Empty(t, generator.BuildPool(generator.Options{ExcludeAmbiguous: true}))
}

func TestGenerateErrors(t *testing.T) {
	g := generator.New()

	_, err := g.Generate("", 16)
	require.ErrorIs(t, err, generator.ErrEmptyPool)
	assert.Equal(t, fault.Validation, fault.KindOf(err))

	_, err = g.Generate("abc", 0)
	require.ErrorIs(t, err, generator.ErrInvalidLength)

	_, err = g.GenerateFromOptions(generator.Options{Length: 16})
	require.ErrorIs(t, err, generator.ErrEmptyPool)
}

func TestGenerateUsesDeterministicSource(t *testing.T) {
	g := generator.New(generator.WithRand(bytes.NewReader([]byte{0, 1, 3, 2})))
	pw, err := g.Generate("ab", 4)
	require.NoError(t, err)
	assert.Equal(t, "abba", pw)
}

func TestGenerateRejectsBiasedBytes(t *testing.T) {
	// 255 lies above the largest multiple of 3 below 256 and is skipped.
	g := generator.New(generator.WithRand(bytes.NewReader([]byte{255, 0, 255, 1, 2})))
	pw, err := g.Generate("xyz", 3)
	require.NoError(t, err)
	assert.Equal(t, "xyz", pw)
}

func TestGenerateFailsWhenSourceExhausted(t *testing.T) {
	g := generator.New(generator.WithRand(bytes.NewReader([]byte{0})))
	_, err := g.Generate("ab", 2)
	assert.Error(t, err)
}

func TestGenerateLengthAndMembership(t *testing.T) {
	g := generator.New()
	pool := generator.BuildPool(generator.DefaultOptions())
	for _, n := range []int{1, 4, 16, 128} {
		pw, err := g.Generate(pool, n)
		require.NoError(t, err)
		assert.Len(t, pw, n)
		for _, r := range pw {
			assert.True(t, strings.ContainsRune(pool, r), "unexpected %q", r)
		}
	}
}

func TestGenerateIsRoughlyUniform(t *testing.T) {
	g := generator.New()
	pw, err := g.Generate("abcd", 10000)
	require.NoError(t, err)

	for _, c := range "abcd" {
		n := strings.Count(pw, string(c))
		assert.InDelta(t, 2500, n, 300, "count for %q", c)
	}
}

func TestGenerateFromOptionsClampsLength(t *testing.T) {
	g := generator.New()

	o := generator.DefaultOptions()
	o.Length = 1
	res, err := g.GenerateFromOptions(o)
	require.NoError(t, err)
	assert.Len(t, res.Password, generator.MinLength)

	o.Length = 500
	res, err = g.GenerateFromOptions(o)
	require.NoError(t, err)
	assert.Len(t, res.Password, generator.MaxLength)
	assert.Equal(t, generator.VeryStrong, res.Strength)
	assert.InDelta(t, 128*math.Log2(88), res.Entropy, 1e-9)
	assert.GreaterOrEqual(t, res.Score, 0)
	assert.LessOrEqual(t, res.Score, 4)
}

func TestEntropyBits(t *testing.T) {
	assert.InDelta(t, 104.87, generator.EntropyBits(94, 16), 0.01)
	assert.InDelta(t, 16*math.Log2(88), generator.EntropyBits(88, 16), 1e-9)
	assert.Zero(t, generator.EntropyBits(0, 16))
	assert.Zero(t, generator.EntropyBits(88, 0))
	assert.Zero(t, generator.EntropyBits(1, 16))
}

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		bits float64
		want generator.Strength
	}{
		{0, generator.VeryWeak},
		{27.99, generator.VeryWeak},
		{28, generator.Weak},
		{35.99, generator.Weak},
		{36, generator.Fair},
		{60, generator.Good},
		{80, generator.Strong},
		{99.99, generator.Strong},
		{100, generator.VeryStrong},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, generator.Classify(tc.bits), "bits=%v", tc.bits)
	}
}

func TestHistoryKeepsNewestTen(t *testing.T) {
	g := generator.New()
	var last string
	for i := 0; i < 12; i++ {
		res, err := g.GenerateFromOptions(generator.DefaultOptions())
		require.NoError(t, err)
		last = res.Password
	}

	items := g.History().List()
	require.Len(t, items, generator.HistorySize)
	assert.Equal(t, last, items[0])

	g.History().Clear()
	assert.Empty(t, g.History().List())
}

func TestHistoryConcurrentAdd(t *testing.T) {
	h := generator.NewHistory(5)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Add("pw")
		}()
	}
	wg.Wait()
	assert.Len(t, h.List(), 5)
}
