package auth

import (
	"unicode"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"
)

// Strength is the five-level meter shown while choosing a master password.
type Strength int

const (
	StrengthWeak Strength = iota
	StrengthFair
	StrengthGood
	StrengthStrong
	StrengthVeryStrong
)

func (s Strength) String() string {
	switch s {
	case StrengthWeak:
		return "weak"
	case StrengthFair:
		return "fair"
	case StrengthGood:
		return "good"
	case StrengthStrong:
		return "strong"
	default:
		return "very strong"
	}
}

// Progress is the fill fraction of the strength meter.
func (s Strength) Progress() float32 {
	return float32(s+1) / 5
}

// StrengthReport pairs the length/variety meter with a zxcvbn estimate.
type StrengthReport struct {
	Level Strength
	// Score is the zxcvbn score from 0 (guessable) to 4.
	Score int
	// CrackTime is zxcvbn's human readable offline crack time.
	CrackTime string
}

// MasterStrength rates a candidate master password.
//
// Passwords shorter than 12 characters are weak or fair by length alone.
// Longer passwords need at least three character classes to rank above fair.
func MasterStrength(pw string) StrengthReport {
	n := utf8.RuneCountInString(pw)
	varied := characterClasses(pw) >= 3

	var level Strength
	switch {
	case n < MinMasterLength:
		level = StrengthWeak
	case n < 12:
		level = StrengthFair
	case n >= 20:
		level = StrengthVeryStrong
	case !varied:
		level = StrengthFair
	case n < 16:
		level = StrengthGood
	default:
		level = StrengthStrong
	}

	report := StrengthReport{Level: level}
	if pw != "" {
		m := zxcvbn.PasswordStrength(pw, nil)
		report.Score = m.Score
		report.CrackTime = m.CrackTimeDisplay
	}
	return report
}

func characterClasses(s string) int {
	var upper, lower, digit, other bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	count := 0
	for _, ok := range []bool{upper, lower, digit, other} {
		if ok {
			count++
		}
	}
	return count
}
