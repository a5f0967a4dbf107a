package application

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode/utf8"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	DefaultPasswordLength = 12
	MinPasswordLength     = 4
	MaxPasswordLength     = 50
)

// PasswordOptions selects the length and character classes of a generated password.
type PasswordOptions struct {
	Length    int
	Uppercase bool
	Lowercase bool
	Numbers   bool
	Symbols   bool
}

// DefaultPasswordOptions returns a 12-character, all-classes configuration.
func DefaultPasswordOptions() PasswordOptions {
	return PasswordOptions{
		Length:    DefaultPasswordLength,
		Uppercase: true,
		Lowercase: true,
		Numbers:   true,
		Symbols:   true,
	}
}

// GeneratePassword returns a random password drawn uniformly from the enabled
// character classes. Length 0 means DefaultPasswordLength; other lengths are
// clamped to [MinPasswordLength, MaxPasswordLength].
func GeneratePassword(opts PasswordOptions) (string, error) {
	var charset strings.Builder
	if opts.Lowercase {
		charset.WriteString(lowerChars)
	}
	if opts.Uppercase {
		charset.WriteString(upperChars)
	}
	if opts.Numbers {
		charset.WriteString(digitChars)
	}
	if opts.Symbols {
		charset.WriteString(symbolChars)
	}
	chars := charset.String()
	if chars == "" {
		return "", ErrEmptyCharset
	}

	length := opts.Length
	switch {
	case length == 0:
		length = DefaultPasswordLength
	case length < MinPasswordLength:
		length = MinPasswordLength
	case length > MaxPasswordLength:
		length = MaxPasswordLength
	}

	max := big.NewInt(int64(len(chars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("rand index: %w", err)
		}
		out[i] = chars[n.Int64()]
	}
	return string(out), nil
}

// Strength levels, weakest first.
var strengthLevels = [...]string{"Very Weak", "Weak", "Fair", "Good", "Strong"}

// StrengthReport is the result of PasswordStrength.
type StrengthReport struct {
	Score    int
	Level    string
	Feedback []string
}

// PasswordStrength scores a password from 0 to 7 on length, character
// variety, and runs of repeated characters.
func PasswordStrength(password string) StrengthReport {
	score := 0
	feedback := []string{}

	length := utf8.RuneCountInString(password)
	if length >= 8 {
		score++
	} else {
		feedback = append(feedback, "Use at least 8 characters")
	}
	if length >= 12 {
		score++
	} else if length >= 8 {
		feedback = append(feedback, "Consider using 12+ characters")
	}

	var hasLower, hasUpper, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasOther = true
		}
	}

	checks := []struct {
		ok  bool
		msg string
	}{
		{hasLower, "Add lowercase letters"},
		{hasUpper, "Add uppercase letters"},
		{hasDigit, "Add numbers"},
		{hasOther, "Add special characters"},
		{!hasRepeatRun(password, 3), "Avoid repeated characters"},
	}
	for _, c := range checks {
		if c.ok {
			score++
		} else {
			feedback = append(feedback, c.msg)
		}
	}

	level := min(score*10/14, len(strengthLevels)-1)
	return StrengthReport{Score: score, Level: strengthLevels[level], Feedback: feedback}
}

// hasRepeatRun reports whether s contains n or more identical consecutive runes.
func hasRepeatRun(s string, n int) bool {
	var prev rune
	run := 0
	for i, r := range s {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
		prev = r
	}
	return false
}
