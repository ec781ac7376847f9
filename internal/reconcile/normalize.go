package reconcile

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents decomposes to NFD and drops combining marks, so "Pérez" and
// "Perez" compare equal.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldText(s string) string {
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// CleanID normalizes an identification number: strips a spreadsheet float
// artifact (".0" suffix) and every non-digit character. Returns "" when the
// remainder is too short to be a usable key.
func CleanID(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, ".0")
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	id := b.String()
	if len(id) < 5 {
		return ""
	}
	return id
}

// NameKey builds the accent-free, whitespace-collapsed "name_surname" lookup
// key. Returns "" when the result is too short to identify anyone.
func NameKey(names, surnames string) string {
	n := strings.Join(strings.Fields(foldText(names)), " ")
	s := strings.Join(strings.Fields(foldText(surnames)), " ")
	key := strings.Trim(n+"_"+s, "_")
	if len(key) <= 3 {
		return ""
	}
	return key
}

// NormEmail lower-cases and trims an email address. Returns "" unless it
// looks like an address at all.
func NormEmail(raw string) string {
	e := strings.ToLower(strings.TrimSpace(raw))
	if !strings.Contains(e, "@") {
		return ""
	}
	return e
}

// fechaLayouts covers the timestamp shapes the form exports produce.
var fechaLayouts = []string{
	"2/01/2006 15:04:05",
	"2/01/2006 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFecha parses a submission timestamp. The zero time signals
// unparseable; callers must never let it overwrite a valid date.
func ParseFecha(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range fechaLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
