// Package generator builds random passwords from character classes and
// estimates their strength.
package generator

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/nbutton23/zxcvbn-go"

	"github.com/Save12sttm/Vaulto/internal/fault"
	"github.com/Save12sttm/Vaulto/krypto"
)

const (
	Uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lowercase = "abcdefghijklmnopqrstuvwxyz"
	Digits    = "0123456789"
	Symbols   = "!@#$%^&*()_+-=[]{}|;:,.<?>"
	Ambiguous = "il1Lo0O"

	MinLength     = 4
	MaxLength     = 128
	DefaultLength = 16
)

var (
	ErrEmptyPool     = fault.New(fault.Validation, "no character classes selected")
	ErrInvalidLength = fault.New(fault.Validation, "password length must be at least 1")
)

// Options selects the character classes and length of a password.
type Options struct {
	Length           int
	Uppercase        bool
	Lowercase        bool
	Digits           bool
	Symbols          bool
	ExcludeAmbiguous bool
}

// DefaultOptions enables every class at DefaultLength.
func DefaultOptions() Options {
	return Options{
		Length:    DefaultLength,
		Uppercase: true,
		Lowercase: true,
		Digits:    true,
		Symbols:   true,
	}
}

// BuildPool concatenates the enabled classes in the order upper, lower,
// digits, symbols and drops the ambiguous characters if requested. The
// result may be empty.
func BuildPool(o Options) string {
	var b strings.Builder
	if o.Uppercase {
		b.WriteString(Uppercase)
	}
	if o.Lowercase {
		b.WriteString(Lowercase)
	}
	if o.Digits {
		b.WriteString(Digits)
	}
	if o.Symbols {
		b.WriteString(Symbols)
	}
	pool := b.String()
	if o.ExcludeAmbiguous {
		pool = strings.Map(func(r rune) rune {
			if strings.ContainsRune(Ambiguous, r) {
				return -1
			}
			return r
		}, pool)
	}
	return pool
}

// EntropyBits is length * log2(poolSize), or 0 if either is zero.
func EntropyBits(poolSize, length int) float64 {
	if poolSize <= 0 || length <= 0 {
		return 0
	}
	return float64(length) * math.Log2(float64(poolSize))
}

// Result is a generated password with its strength estimates.
type Result struct {
	Password string
	Entropy  float64
	Strength Strength
	// Score is the zxcvbn score, 0 to 4.
	Score int
}

// Generator draws passwords from a random source and remembers the most
// recent ones for the session.
type Generator struct {
	rand    io.Reader
	history *History
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces the CSPRNG. Only tests should need it.
func WithRand(r io.Reader) Option {
	return func(g *Generator) { g.rand = r }
}

// New returns a Generator reading from crypto/rand.
func New(opts ...Option) *Generator {
	g := &Generator{history: NewHistory(HistorySize)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// History returns the session history.
func (g *Generator) History() *History { return g.history }

// Generate returns length characters drawn uniformly from pool.
func (g *Generator) Generate(pool string, length int) (string, error) {
	chars := []rune(pool)
	if len(chars) == 0 {
		return "", ErrEmptyPool
	}
	if length < 1 {
		return "", ErrInvalidLength
	}

	out := make([]rune, length)
	for i := range out {
		idx, err := krypto.RandomIndex(g.rand, len(chars))
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = chars[idx]
	}
	return string(out), nil
}

// GenerateFromOptions clamps the length to [MinLength, MaxLength], generates
// from the resulting pool and adds the password to the history.
func (g *Generator) GenerateFromOptions(o Options) (Result, error) {
	length := min(max(o.Length, MinLength), MaxLength)
	pool := BuildPool(o)

	pw, err := g.Generate(pool, length)
	if err != nil {
		return Result{}, err
	}

	bits := EntropyBits(len(pool), length)
	res := Result{
		Password: pw,
		Entropy:  bits,
		Strength: Classify(bits),
		Score:    zxcvbn.PasswordStrength(pw, nil).Score,
	}
	g.history.Add(pw)
	return res, nil
}
