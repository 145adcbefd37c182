// Package address normalizes free-form US street addresses into the
// "street line" and "City, ST ZIP" halves expected by valuation providers.
package address

import (
	"regexp"
	"strings"
	"unicode"
)

// Components is a normalized address split into its two lookup halves.
type Components struct {
	AddressLine  string `json:"addressLine"`
	CityStateZip string `json:"cityStateZip"`
}

// Query returns the space-joined location string sent to search providers.
func (c Components) Query() string {
	return c.AddressLine + " " + c.CityStateZip
}

var (
	newlineRe    = regexp.MustCompile(`\s*\n\s*`)
	commaRe      = regexp.MustCompile(`\s*,\s*`)
	spaceRe      = regexp.MustCompile(`\s+`)
	usaSuffixRe  = regexp.MustCompile(`(?i),?\s*USA$`)
	commaFormRe  = regexp.MustCompile(`^(.+?),\s*([^,]+),\s*([^,]+)\s+(\d{5}(?:-\d{4})?)$`)
	trailingRe   = regexp.MustCompile(`^(.+)\s+([^\s,]+)\s+(\d{5}(?:-\d{4})?)$`)
	twoLetterRe  = regexp.MustCompile(`^[A-Za-z]{2}$`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// streetSuffixes are the lowercase street-type words recognized when an
// address has no comma between the street and the city.
var streetSuffixes = map[string]bool{
	"st": true, "street": true, "rd": true, "road": true,
	"ave": true, "avenue": true, "blvd": true, "boulevard": true,
	"dr": true, "drive": true, "ln": true, "lane": true, "way": true,
	"pkwy": true, "parkway": true, "pl": true, "place": true,
	"plz": true, "plaza": true, "ct": true, "court": true,
	"trl": true, "trail": true, "cir": true, "circle": true,
	"terr": true, "terrace": true, "sq": true, "square": true,
	"hwy": true, "highway": true, "loop": true,
}

// Clean applies whitespace and punctuation cleanup without splitting the
// address. A trailing "USA" is removed.
func Clean(raw string) string {
	s := newlineRe.ReplaceAllString(raw, ", ")
	s = commaRe.ReplaceAllString(s, ", ")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = usaSuffixRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Collapse trims raw and folds every whitespace run into a single space.
func Collapse(raw string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
}

// Normalize splits raw into its street line and "City, ST ZIP" halves.
// It reports false when no confident split exists.
func Normalize(raw string) (Components, bool) {
	s := Clean(raw)
	if s == "" {
		return Components{}, false
	}

	if m := commaFormRe.FindStringSubmatch(s); m != nil {
		street := strings.TrimSpace(m[1])
		city := strings.TrimSpace(m[2])
		if street != "" && city != "" {
			return build(street, city, m[3], m[4]), true
		}
	}

	m := trailingRe.FindStringSubmatch(s)
	if m == nil {
		return Components{}, false
	}
	words := strings.Fields(strings.ReplaceAll(m[1], ",", " "))
	if len(words) < 2 {
		return Components{}, false
	}
	state, zip := m[2], m[3]

	if idx := lastSuffixIndex(words); idx >= 1 && idx < len(words)-1 {
		street := strings.Join(words[:idx+1], " ")
		city := strings.Join(words[idx+1:], " ")
		return build(street, city, state, zip), true
	}

	// Without a suffix, the longest trailing city whose street part still
	// looks like a house number plus name wins.
	var (
		found        bool
		street, city string
	)
	for i := 1; i < len(words); i++ {
		st := strings.Join(words[:len(words)-i], " ")
		c := strings.Join(words[len(words)-i:], " ")
		if c != "" && hasDigit(st) && hasLetter(st) {
			street, city, found = st, c, true
		}
	}
	if !found {
		return Components{}, false
	}
	return build(street, city, state, zip), true
}

func build(street, city, state, zip string) Components {
	return Components{
		AddressLine:  street,
		CityStateZip: city + ", " + NormalizeState(state) + " " + zip,
	}
}

func lastSuffixIndex(words []string) int {
	idx := -1
	for i := 1; i < len(words); i++ {
		w := strings.ToLower(strings.Trim(words[i], "."))
		if streetSuffixes[w] {
			idx = i
		}
	}
	return idx
}

// NormalizeState converts a state token to its two-letter postal code.
// Two-letter tokens are upper-cased as-is; unknown names pass through trimmed.
func NormalizeState(token string) string {
	t := strings.TrimSpace(token)
	if twoLetterRe.MatchString(t) {
		return strings.ToUpper(t)
	}
	if code, ok := stateCodes[strings.ToLower(t)]; ok {
		return code
	}
	return t
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
