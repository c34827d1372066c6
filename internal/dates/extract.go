// Package dates pulls calendar dates out of free text, including typed
// shorthand and speech-to-text artifacts.
package dates

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Layout is the canonical form dates are stored in.
const Layout = "2006-01-02"

const monthAlt = `(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

// Patterns in priority order: ISO, day-first numeric, dictated year with
// compact month/day, day-month-year, month-day-year, compact, bare year.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}\b`),
	regexp.MustCompile(`\b\d{2}-\d{2}\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{1,2}\s+` + monthAlt + `\s+\d{4}\b`),
	regexp.MustCompile(`\b` + monthAlt + `\s+\d{1,2}\s+\d{4}\b`),
	regexp.MustCompile(`\b\d{8}\b`),
	regexp.MustCompile(`\b\d{4}\b`),
}

var (
	spelledOrdinals = map[string]string{
		"first": "1", "second": "2", "third": "3", "fourth": "4", "fifth": "5",
		"sixth": "6", "seventh": "7", "eighth": "8", "ninth": "9", "tenth": "10",
	}
	spelledOrdinalRe = regexp.MustCompile(`\b(first|second|third|fourth|fifth|sixth|seventh|eighth|ninth|tenth)\b`)
	ordinalSuffixRe  = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)\b`)
	ofRe             = regexp.MustCompile(`\bof\b`)
	spacesRe         = regexp.MustCompile(`\s+`)
	monthWordRe      = regexp.MustCompile(`\b` + monthAlt)
	voiceRe          = regexp.MustCompile(`^(\d{2})-(\d{2})\s+(\d{2})(\d{2})$`)
	yearRe           = regexp.MustCompile(`^\d{4}$`)
)

var monthNames = map[string]string{
	"jan": "January", "feb": "February", "mar": "March", "apr": "April",
	"may": "May", "jun": "June", "jul": "July", "aug": "August",
	"sep": "September", "oct": "October", "nov": "November", "dec": "December",
}

// exact layouts, tried first and in order
var exactLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"2.1.2006",
	"2-1-2006",
	"2 January 2006",
	"January 2 2006",
	"20060102",
}

// general fallbacks for tokens the exact layouts reject
var fallbackLayouts = []string{
	"1/2/2006",
	"1-2-2006",
	"02012006",
}

// Extract returns zero, one or two distinct dates found in text, in the
// order they appear. No ordering correction is applied.
func Extract(text string) []time.Time {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}

	var found []time.Time
	for _, tok := range tokens(cleaned) {
		d, ok := ParseToken(tok)
		if !ok {
			continue
		}
		if len(found) == 1 && found[0].Equal(d) {
			continue
		}
		found = append(found, d)
		if len(found) == 2 {
			break
		}
	}
	return found
}

// Clean lower-cases text, turns ordinals into digits and drops commas and
// stray "of" so "the 3rd of March, 2024" reads "the 3 march 2024".
func Clean(text string) string {
	s := strings.ToLower(text)
	s = spelledOrdinalRe.ReplaceAllStringFunc(s, func(w string) string {
		return spelledOrdinals[w]
	})
	s = ordinalSuffixRe.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ",", " ")
	s = ofRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

type span struct {
	start, end int
}

// tokens returns the non-overlapping pattern matches in text order; at the
// same start the longer match wins.
func tokens(s string) []string {
	var spans []span
	for _, re := range tokenPatterns {
		for _, loc := range re.FindAllStringIndex(s, -1) {
			spans = append(spans, span{loc[0], loc[1]})
		}
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end-spans[i].start > spans[j].end-spans[j].start
	})

	var (
		out     []string
		lastEnd = -1
	)
	for _, sp := range spans {
		if sp.start < lastEnd {
			continue
		}
		out = append(out, s[sp.start:sp.end])
		lastEnd = sp.end
	}
	return out
}

// ParseToken parses a single date token.
func ParseToken(tok string) (time.Time, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return time.Time{}, false
	}
	canon := monthWordRe.ReplaceAllStringFunc(strings.ToLower(tok), func(m string) string {
		return monthNames[m[:3]]
	})

	for _, layouts := range [][]string{exactLayouts, fallbackLayouts} {
		for _, layout := range layouts {
			if d, err := time.Parse(layout, canon); err == nil {
				return d, true
			}
		}
	}
	if d, ok := repairVoice(canon); ok {
		return d, true
	}
	if yearRe.MatchString(canon) {
		y, _ := strconv.Atoi(canon)
		if y >= 1900 && y <= 2100 {
			return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// repairVoice reads "20-20 0201" as 2020-02-01: a year dictated in two
// halves followed by a compact month and day.
func repairVoice(tok string) (time.Time, bool) {
	m := voiceRe.FindStringSubmatch(tok)
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(Layout, m[1]+m[2]+"-"+m[3]+"-"+m[4])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Format renders d in the canonical Layout.
func Format(d time.Time) string { return d.Format(Layout) }
