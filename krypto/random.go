package krypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// RandomBytes returns n bytes from the operating system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	return ReadRandom(rand.Reader, n)
}

// ReadRandom fills a fresh n-byte slice from r. A nil r means crypto/rand.
func ReadRandom(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.New("random length must not be negative")
	}
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return buf, nil
}

// RandomIndex returns a uniformly distributed integer in [0, n) drawn from r.
//
// Samples that fall in the biased tail above the largest multiple of n are
// discarded and redrawn, so every index is equally likely. Bounds up to 256
// consume one byte per draw, larger bounds consume four.
func RandomIndex(r io.Reader, n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("random index bound must be positive")
	}
	if uint64(n) > 1<<32 {
		return 0, errors.New("random index bound too large")
	}
	if r == nil {
		r = rand.Reader
	}
	if n == 1 {
		return 0, nil
	}

	if n <= 256 {
		limit := 256 - 256%n
		var b [1]byte
		for {
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return 0, fmt.Errorf("read random: %w", err)
			}
			if int(b[0]) < limit {
				return int(b[0]) % n, nil
			}
		}
	}

	const space = uint64(1) << 32
	limit := space - space%uint64(n)
	var b [4]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, fmt.Errorf("read random: %w", err)
		}
		v := uint64(binary.BigEndian.Uint32(b[:]))
		if v < limit {
			return int(v % uint64(n)), nil
		}
	}
}

// Wipe overwrites sensitive byte slices in place to reduce lifetime in memory.
func Wipe(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
