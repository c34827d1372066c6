package dialogue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
)

var (
	numberRe     = regexp.MustCompile(`[+-]?\d+(?:[.,]\d+)?`)
	bareNumberRe = regexp.MustCompile(`^[+-]?\d+(?:[.,]\d+)?$`)
	phoneRe      = regexp.MustCompile(`^\+?[0-9][0-9 ()./-]{5,}$`)

	validate = validator.New()

	skipWords = map[string]bool{
		"next": true, "skip": true, "none": true, "no": true,
		"nothing": true, "na": true, "n a": true, "no thanks": true,
	}
	listWords = map[string]bool{"list": true, "show": true, "names": true, "options": true}

	cancelPhrases = map[string]bool{
		"cancel": true, "cancel it": true, "cancel that": true, "stop": true,
		"abort": true, "quit": true, "never mind": true, "nevermind": true, "forget it": true,
	}
	repeatPhrases = map[string]bool{
		"repeat": true, "repeat that": true, "repeat please": true, "say again": true,
		"say that again": true, "again": true, "what was the question": true,
	}
)

// ParseNumber returns the first signed decimal number in text. A comma is
// read as the decimal point.
func ParseNumber(text string) (float64, bool) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatNumber is the canonical slot text of a number.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isBareNumber(text string) bool {
	return bareNumberRe.MatchString(strings.TrimSpace(text))
}

func isSkip(folded string) bool {
	return skipWords[folded]
}

func isCancel(folded string) bool {
	return cancelPhrases[folded]
}

func isRepeat(folded string) bool {
	return repeatPhrases[folded]
}

// downloadFormat reports whether folded asks for a stored download and
// which format it prefers ("" for any).
func downloadFormat(folded string) (string, bool) {
	words := strings.Fields(folded)
	if len(words) == 0 || words[0] != "download" {
		return "", false
	}
	for _, w := range words[1:] {
		if w == "csv" || w == "pdf" {
			return w, true
		}
	}
	return "", true
}

// isListRequest reports whether the reply asks for valid names instead of
// giving one: a list word, or just the entity kind on its own.
func isListRequest(folded string, kind catalog.EntityKind) bool {
	if folded == string(kind) || folded == string(kind)+"s" {
		return true
	}
	for _, w := range strings.Fields(folded) {
		if listWords[w] {
			return true
		}
	}
	return false
}

func validEmail(s string) bool {
	return validate.Var(s, "required,email") == nil
}

func validPhone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
