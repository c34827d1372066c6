package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAffirmative(t *testing.T) {
	yes := []string{"yes", "Y", "done", "Yes please", "please confirm", "ok", "OK!", "okey dokey", "okay then", "yeah", "yep!", "that is right yes"}
	for _, in := range yes {
		assert.True(t, IsAffirmative(in), in)
	}
	not := []string{"", "no", "book it later", "take a look", "token", "yesterday", "maybe"}
	for _, in := range not {
		assert.False(t, IsAffirmative(in), in)
	}
}

func TestIsNegative(t *testing.T) {
	no := []string{"no", "N", "nope", "nah thanks", "no thanks", "absolutely no"}
	for _, in := range no {
		assert.True(t, IsNegative(in), in)
	}
	not := []string{"", "yes", "nothing", "know", "november"}
	for _, in := range not {
		assert.False(t, IsNegative(in), in)
	}
}

func TestClassifyAnswer(t *testing.T) {
	assert.Equal(t, AnswerYes, ClassifyAnswer("yes"))
	assert.Equal(t, AnswerNo, ClassifyAnswer("no"))
	assert.Equal(t, AnswerOther, ClassifyAnswer("Acme Supplies"))
	assert.Equal(t, AnswerAmbiguous, ClassifyAnswer("yes no"))
	assert.Equal(t, AnswerAmbiguous, ClassifyAnswer("no, okay"))
}
