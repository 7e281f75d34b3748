package services

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	scriptStyleRe  = regexp.MustCompile(`(?is)<(script|style)[^>]*?>.*?</(script|style)>`)
	tagRe          = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe   = regexp.MustCompile(`[\r\n\t ]+`)
	percentOctetRe = regexp.MustCompile(`%[a-fA-F0-9]{2}`)
	spacesRe       = regexp.MustCompile(` +`)
)

// sanitizeTextField cleans a single-line text value from a form. Invalid
// UTF-8 yields the empty string.
func sanitizeTextField(s string) string {
	if !utf8.ValidString(s) {
		return ""
	}
	if strings.Contains(s, "<") {
		s = scriptStyleRe.ReplaceAllString(s, "")
		s = tagRe.ReplaceAllString(s, "")
		s = strings.ReplaceAll(s, "<", "&lt;")
	}
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	found := false
	for percentOctetRe.MatchString(s) {
		s = percentOctetRe.ReplaceAllString(s, "")
		found = true
	}
	if found {
		s = strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
	}
	return norm.NFC.String(s)
}

// intval parses the leading integer of s the way loosely typed form input is
// read: optional leading whitespace and sign, then digits. Anything else
// yields 0; out of range values saturate.
func intval(s string) int64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			if neg {
				return math.MinInt64
			}
			return math.MaxInt64
		}
		n = n*10 + d
	}
	if neg {
		return -n
	}
	return n
}

// absint is the non-negative form of intval.
func absint(s string) int64 {
	n := intval(s)
	if n == math.MinInt64 {
		return math.MaxInt64
	}
	if n < 0 {
		return -n
	}
	return n
}
