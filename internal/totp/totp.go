// Package totp implements RFC 6238 time-based one-time passwords over
// HMAC-SHA1 with RFC 4226 dynamic truncation.
package totp

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Save12sttm/Vaulto/internal/fault"
)

const (
	DefaultStep   uint32 = 30
	DefaultDigits uint32 = 6
	maxDigits     uint32 = 10
)

// ErrInvalidSecret is returned for input that is not valid Base32.
var ErrInvalidSecret = fault.New(fault.Format, "invalid TOTP secret")

var pow10 = [...]uint64{1, 10, 100, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10}

// Decode normalises a user-entered secret and decodes it as RFC 4648
// Base32. Whitespace anywhere is dropped and letters are upper-cased.
// Padded input must be padded correctly; unpadded input is accepted.
func Decode(secret string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, secret)
	if cleaned == "" {
		return nil, ErrInvalidSecret
	}

	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	if strings.ContainsRune(cleaned, '=') {
		enc = base32.StdEncoding
	}
	key, err := enc.DecodeString(cleaned)
	if err != nil || len(key) == 0 {
		return nil, ErrInvalidSecret
	}
	return key, nil
}

// ValidateSecret reports whether secret decodes.
func ValidateSecret(secret string) bool {
	_, err := Decode(secret)
	return err == nil
}

// GenerateCode returns the code for the time step containing unix.
// A zero step means 30 seconds and zero digits means 6. Digits above 10 are
// capped.
func GenerateCode(secret []byte, unix int64, step, digits uint32) string {
	step, digits = normalize(step, digits)
	return hotp(secret, counterAt(unix, step), digits)
}

// Now decodes secret and returns the code for t.
func Now(secret string, t time.Time) (string, error) {
	key, err := Decode(secret)
	if err != nil {
		return "", err
	}
	return GenerateCode(key, t.Unix(), DefaultStep, DefaultDigits), nil
}

// Verify reports whether code matches any step within skew steps of unix,
// using the default step and digit count. Every candidate is compared.
func Verify(secret []byte, code string, unix int64, skew uint32) bool {
	if uint32(len(code)) != DefaultDigits {
		return false
	}
	counter := counterAt(unix, DefaultStep)
	match := 0
	for d := -int64(skew); d <= int64(skew); d++ {
		candidate := hotp(secret, uint64(int64(counter)+d), DefaultDigits)
		match |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}
	return match == 1
}

// RemainingSeconds is the number of seconds left in the current step, in
// [1, step].
func RemainingSeconds(unix int64, step uint32) uint32 {
	step, _ = normalize(step, 0)
	return step - uint32(floorMod(unix, int64(step)))
}

// ProgressFraction is RemainingSeconds divided by step, in (0, 1].
func ProgressFraction(unix int64, step uint32) float32 {
	step, _ = normalize(step, 0)
	return float32(RemainingSeconds(unix, step)) / float32(step)
}

// Snapshot is one sample of a watched secret.
type Snapshot struct {
	Code      string
	Remaining uint32
	Progress  float32
	At        time.Time
}

// Watch samples the code once immediately and then on every interval until
// ctx is done, at which point the channel is closed. A nil clock means
// time.Now and a non-positive interval means one second.
func Watch(ctx context.Context, secret []byte, clock func() time.Time, interval time.Duration) <-chan Snapshot {
	if clock == nil {
		clock = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			now := clock()
			unix := now.Unix()
			snap := Snapshot{
				Code:      GenerateCode(secret, unix, DefaultStep, DefaultDigits),
				Remaining: RemainingSeconds(unix, DefaultStep),
				Progress:  ProgressFraction(unix, DefaultStep),
				At:        now,
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func hotp(secret []byte, counter uint64, digits uint32) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := uint64(binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff)
	return fmt.Sprintf("%0*d", int(digits), value%pow10[digits])
}

func normalize(step, digits uint32) (uint32, uint32) {
	if step == 0 {
		step = DefaultStep
	}
	if digits == 0 {
		digits = DefaultDigits
	}
	if digits > maxDigits {
		digits = maxDigits
	}
	return step, digits
}

func counterAt(unix int64, step uint32) uint64 {
	s := int64(step)
	q := unix / s
	if unix%s != 0 && unix < 0 {
		q--
	}
	return uint64(q)
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
