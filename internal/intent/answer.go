package intent

import (
	"regexp"
	"strings"

	"github.com/avvvet/erpbuddy-assistant/internal/textnorm"
)

// Answer is how a reply to a yes/no question was understood.
type Answer int

const (
	AnswerOther Answer = iota
	AnswerYes
	AnswerNo
	// AnswerAmbiguous means the reply reads as both yes and no.
	AnswerAmbiguous
)

var (
	okRe        = regexp.MustCompile(`\bok`)
	affirmWords = []string{"confirm", "okay", "yeah", "yep"}
	negateWords = []string{"nope", "nah"}
	exactYes    = map[string]bool{"yes": true, "y": true, "done": true}
	exactNo     = map[string]bool{"no": true, "n": true}
)

// IsAffirmative reports a yes-like reply: "yes", "y", "done", a word
// starting with "ok", anything mentioning confirm/okay/yeah/yep, or a
// sentence that starts or ends with "yes". "ok" inside a word ("book",
// "look") does not count.
func IsAffirmative(text string) bool {
	t := textnorm.Fold(text)
	if t == "" {
		return false
	}
	if exactYes[t] {
		return true
	}
	if okRe.MatchString(t) {
		return true
	}
	for _, w := range affirmWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return edgeToken(t, "yes")
}

// IsNegative reports a no-like reply: "no", "n", anything mentioning
// nope/nah, or a sentence that starts or ends with "no".
func IsNegative(text string) bool {
	t := textnorm.Fold(text)
	if t == "" {
		return false
	}
	if exactNo[t] {
		return true
	}
	for _, w := range negateWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return edgeToken(t, "no")
}

// ClassifyAnswer combines both checks. Replies matching both are reported
// as ambiguous instead of silently favouring yes.
func ClassifyAnswer(text string) Answer {
	yes, no := IsAffirmative(text), IsNegative(text)
	switch {
	case yes && no:
		return AnswerAmbiguous
	case yes:
		return AnswerYes
	case no:
		return AnswerNo
	default:
		return AnswerOther
	}
}

func edgeToken(folded, token string) bool {
	words := strings.Fields(folded)
	if len(words) == 0 {
		return false
	}
	return words[0] == token || words[len(words)-1] == token
}
