package utils

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]`)

// Slugify lower-cases s and replaces every other character with '-', one for
// one. "Intro to AI & Co." becomes "intro-to-ai---co-".
func Slugify(s string) string {
	return nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
}

func CertificateFilename(trackTitle string) string {
	return "certificate-" + Slugify(trackTitle) + ".pdf"
}
