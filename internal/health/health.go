// Package health audits stored passwords for weakness, reuse and age.
package health

import (
	"cmp"
	"context"
	"slices"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/nbutton23/zxcvbn-go"

	"github.com/Save12sttm/Vaulto/auth"
	"github.com/Save12sttm/Vaulto/internal/vault"
)

const (
	// DefaultMaxAge is how long a password may go unchanged.
	DefaultMaxAge = 90 * 24 * time.Hour
	// WeakThreshold is the heuristic score below which a password is weak.
	WeakThreshold = 40
)

// BreachChecker looks a password up in a breach corpus.
// *auth.HIBPClient satisfies it.
type BreachChecker interface {
	Check(ctx context.Context, pw string) (auth.HIBPResult, error)
}

// Options tunes Analyze. Zero values select the defaults.
type Options struct {
	Now         time.Time
	MaxAge      time.Duration
	BreachCheck bool
	Breach      BreachChecker
}

// Finding identifies one record with an issue.
type Finding struct {
	ID    int64
	Title string
	// Strength is the heuristic 0-100 score.
	Strength int
	// Zxcvbn is the 0-4 zxcvbn score.
	Zxcvbn int
	// Breaches is the number of times the password appears in the breach
	// corpus. Only set on Report.Breached.
	Breaches int
}

// BreachError records a failed breach lookup.
type BreachError struct {
	ID  int64
	Err error
}

// Report is the result of Analyze.
type Report struct {
	Total    int
	Weak     []Finding
	Reused   []Finding
	Old      []Finding
	Breached []Finding
	// BreachErrors lists lookups that failed. They do not count as issues.
	BreachErrors []BreachError
	// Score is the 0-100 vault security score.
	Score int
}

// Rating names the score band.
func (r Report) Rating() string {
	switch {
	case r.Score >= 80:
		return "Excellent"
	case r.Score >= 60:
		return "Good"
	case r.Score >= 40:
		return "Fair"
	case r.Score >= 20:
		return "Weak"
	default:
		return "Very Weak"
	}
}

// Analyze evaluates the password-type records. Cards, identities and notes
// carry no login password and are skipped.
func Analyze(ctx context.Context, records []vault.Record, opts Options) (Report, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	cutoff := now.Add(-maxAge).UnixMilli()

	var report Report
	findings := make([]Finding, 0, len(records))
	byPassword := make(map[string][]int)

	for _, r := range records {
		if r.ItemType != "" && r.ItemType != vault.TypePassword {
			continue
		}
		f := Finding{ID: r.ID, Title: r.Title, Strength: Strength(r.Password)}
		if r.Password != "" {
			f.Zxcvbn = zxcvbn.PasswordStrength(r.Password, nil).Score
			byPassword[r.Password] = append(byPassword[r.Password], len(findings))
		}
		findings = append(findings, f)

		if f.Strength < WeakThreshold {
			report.Weak = append(report.Weak, f)
		}
		if r.ModifiedAt < cutoff {
			report.Old = append(report.Old, f)
		}
	}
	report.Total = len(findings)

	reused := make([]bool, len(findings))
	for _, idx := range byPassword {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			reused[i] = true
		}
	}
	for i, ok := range reused {
		if ok {
			report.Reused = append(report.Reused, findings[i])
		}
	}

	if opts.BreachCheck && opts.Breach != nil {
		for pw, idx := range byPassword {
			if err := ctx.Err(); err != nil {
				return Report{}, err
			}
			res, err := opts.Breach.Check(ctx, pw)
			for _, i := range idx {
				switch {
				case err != nil:
					report.BreachErrors = append(report.BreachErrors, BreachError{ID: findings[i].ID, Err: err})
				case res.Found:
					f := findings[i]
					f.Breaches = res.Count
					report.Breached = append(report.Breached, f)
				}
			}
		}
		slices.SortFunc(report.Breached, func(a, b Finding) int { return cmp.Compare(a.ID, b.ID) })
		slices.SortFunc(report.BreachErrors, func(a, b BreachError) int { return cmp.Compare(a.ID, b.ID) })
	}

	issues := len(report.Weak) + len(report.Reused) + len(report.Old) + len(report.Breached)
	report.Score = securityScore(issues, report.Total)
	return report, nil
}

func securityScore(issues, total int) int {
	total = max(total, 1)
	score := int((1 - float64(issues)/float64(total)) * 100)
	return min(max(score, 0), 100)
}

// Strength is the 0-100 heuristic: up to 30 points for length and 15 each
// for upper, lower and digit, plus 25 for any other character.
func Strength(pw string) int {
	if pw == "" {
		return 0
	}

	score := 0
	switch n := utf8.RuneCountInString(pw); {
	case n >= 16:
		score += 30
	case n >= 12:
		score += 20
	case n >= 8:
		score += 10
	}

	var upper, lower, digit, other bool
	for _, r := range pw {
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
	if upper {
		score += 15
	}
	if lower {
		score += 15
	}
	if digit {
		score += 15
	}
	if other {
		score += 25
	}
	return min(score, 100)
}
