package utils

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"
)

const (
	// No 0/O, 1/I/L: codes get read aloud and typed by hand.
	codeAlphabet    = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeGroups      = 4
	codeGroupLength = 4
)

var verificationCodePattern = regexp.MustCompile(`^[A-HJKMNP-Z2-9]{4}(-[A-HJKMNP-Z2-9]{4}){3}$`)

// GenerateVerificationCode returns a code like "K7QX-M2PD-9HRT-WC4N".
func GenerateVerificationCode() (string, error) {
	raw := make([]byte, codeGroups*codeGroupLength)
	if err := randomAlphabet(raw); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	var b strings.Builder
	b.Grow(len(raw) + codeGroups - 1)
	for i, ch := range raw {
		if i > 0 && i%codeGroupLength == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(ch)
	}
	return b.String(), nil
}

// randomAlphabet fills dst with uniformly distributed alphabet characters,
// rejecting bytes that would bias the modulo.
func randomAlphabet(dst []byte) error {
	n := len(codeAlphabet)
	limit := 256 - (256 % n)
	buf := make([]byte, len(dst)*2)
	filled := 0
	for filled < len(dst) {
		if _, err := rand.Read(buf); err != nil {
			return err
		}
		for _, v := range buf {
			if int(v) >= limit {
				continue
			}
			dst[filled] = codeAlphabet[int(v)%n]
			filled++
			if filled == len(dst) {
				break
			}
		}
	}
	return nil
}

func IsVerificationCode(code string) bool {
	return verificationCodePattern.MatchString(code)
}

// NormalizeVerificationCode accepts user-typed input: any case, spaces, and
// with or without dashes.
func NormalizeVerificationCode(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return r
		}
	}, input)

	if len(cleaned) != codeGroups*codeGroupLength {
		return strings.ToUpper(strings.TrimSpace(input))
	}
	parts := make([]string, 0, codeGroups)
	for i := 0; i < len(cleaned); i += codeGroupLength {
		parts = append(parts, cleaned[i:i+codeGroupLength])
	}
	return strings.Join(parts, "-")
}
