// Package textnorm folds user text into comparison keys: lower case, no
// diacritics, Serbian Cyrillic transliterated, punctuation dropped and known
// transcription typos replaced.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultTypos are whole-word replacements for common typing and
// speech-to-text mistakes.
var DefaultTypos = map[string]string{
	"suplier":   "supplier",
	"supplyer":  "supplier",
	"suppliar":  "supplier",
	"genrate":   "generate",
	"generat":   "generate",
	"custmer":   "customer",
	"costumer":  "customer",
	"cusomer":   "customer",
	"prodcut":   "product",
	"prduct":    "product",
	"pruduct":   "product",
	"quantaty":  "quantity",
	"quantitiy": "quantity",
	"purchse":   "purchase",
	"purchace":  "purchase",
	"oder":      "order",
	"ordr":      "order",
	"raport":    "report",
	"reprot":    "report",
	"invetory":  "inventory",
	"inventry":  "inventory",
	"cancle":    "cancel",
	"repet":     "repeat",
	"dowload":   "download",
	"donwload":  "download",
}

// letters with no canonical decomposition, plus Serbian Cyrillic
var transliteration = map[rune]string{
	'đ': "dj", 'ð': "d", 'ł': "l", 'ø': "o", 'ß': "ss", 'æ': "ae", 'œ': "oe",
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'ђ': "dj", 'е': "e",
	'ж': "z", 'з': "z", 'и': "i", 'ј': "j", 'к': "k", 'л': "l", 'љ': "lj",
	'м': "m", 'н': "n", 'њ': "nj", 'о': "o", 'п': "p", 'р': "r", 'с': "s",
	'т': "t", 'ћ': "c", 'у': "u", 'ф': "f", 'х': "h", 'ц': "c", 'ч': "c",
	'џ': "dz", 'ш': "s",
}

// Normalizer applies a typo table on top of the fixed folding rules.
type Normalizer struct {
	typos map[string]string
}

// New returns a Normalizer using typos merged over DefaultTypos.
func New(typos map[string]string) *Normalizer {
	merged := make(map[string]string, len(DefaultTypos)+len(typos))
	for k, v := range DefaultTypos {
		merged[k] = v
	}
	for k, v := range typos {
		merged[strings.ToLower(k)] = strings.ToLower(v)
	}
	return &Normalizer{typos: merged}
}

var std = New(nil)

// Normalize returns the comparison key for text using the default typo table.
func Normalize(text string) string { return std.Normalize(text) }

// Fold returns the word-preserving folded form of text using the default typo table.
func Fold(text string) string { return std.Fold(text) }

// Normalize returns Fold(text) with the word separators removed, so
// "Acme  Supplies!" and "acme supplies" share the key "acmesupplies".
func (n *Normalizer) Normalize(text string) string {
	return strings.ReplaceAll(n.Fold(text), " ", "")
}

// Fold lower-cases text, strips diacritics, transliterates, replaces every
// run of non letter/digit characters with one space and corrects typos word
// by word.
func (n *Normalizer) Fold(text string) string {
	if text == "" {
		return ""
	}
	stripped := stripMarks(strings.ToLower(text))

	var b strings.Builder
	b.Grow(len(stripped))
	space := true
	for _, r := range stripped {
		if t, ok := transliteration[r]; ok {
			b.WriteString(t)
			space = false
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}

	words := strings.Fields(b.String())
	for i, w := range words {
		if fixed, ok := n.typos[w]; ok {
			words[i] = fixed
		}
	}
	return strings.Join(words, " ")
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
