// Package listingtext shapes free text and photo URLs into the form partner marketplaces accept.
package listingtext

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const defaultFiller = "."

// Normalize trims surrounding whitespace, strips characters XML cannot carry and converts
// the text to NFC so that rune counts match what the partner validators count.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(XMLSafe(s)))
}

// XMLSafe drops invalid UTF-8 and every rune outside the XML 1.0 Char production.
// Tab, line feed and carriage return are kept.
func XMLSafe(s string) string {
	s = strings.ToValidUTF8(s, "")
	out, _, err := transform.String(runes.Remove(runes.Predicate(notXMLChar)), s)
	if err != nil {
		return s
	}
	return out
}

func notXMLChar(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r >= 0x20 && r <= 0xD7FF:
		return false
	case r >= 0xE000 && r <= 0xFFFD:
		return false
	case r >= 0x10000 && r <= utf8.MaxRune:
		return false
	}
	return true
}

// Clamp forces the rune length of s into [min, max]. Short text is extended with filler,
// repeated as often as needed; long text is cut at max runes. A non-positive max disables
// truncation.
func Clamp(s string, min, max int, filler string) string {
	s = Normalize(s)
	if filler == "" {
		filler = defaultFiller
	}

	if min > 0 && utf8.RuneCountInString(s) < min {
		var b strings.Builder
		b.WriteString(s)
		for utf8.RuneCountInString(b.String()) < min {
			b.WriteString(filler)
		}
		s = b.String()
	}

	return Truncate(s, max)
}

// Truncate cuts s to at most max runes. A non-positive max returns s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// RuneLen reports the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// ResolveURL returns raw unchanged when it is already absolute (or when base is empty);
// otherwise it joins base and raw with exactly one slash between them.
func ResolveURL(base, raw string) string {
	raw = strings.TrimSpace(XMLSafe(raw))
	if raw == "" {
		return ""
	}
	if IsAbsoluteURL(raw) {
		return raw
	}

	base = strings.TrimSpace(base)
	if base == "" {
		return raw
	}

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
}

// IsAbsoluteURL reports whether raw carries a scheme and host (or is protocol-relative).
func IsAbsoluteURL(raw string) bool {
	if strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// ResolveAll resolves every non-empty photo URL against base, preserving order.
func ResolveAll(base string, raws []string) []string {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		if resolved := ResolveURL(base, raw); resolved != "" {
			out = append(out, resolved)
		}
	}
	return out
}
