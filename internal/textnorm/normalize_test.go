package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"case and punctuation", "  Acme, Supplies!! ", "acme supplies"},
		{"latin diacritics", "Čokolada Šećer Žito", "cokolada secer zito"},
		{"d with stroke", "Đorđe", "djordje"},
		{"cyrillic", "Ђорђе Шећер", "djordje secer"},
		{"accents", "Café Crème", "cafe creme"},
		{"typo whole word", "new suplier please", "new supplier please"},
		{"typo not inside word", "supliers", "supliers"},
		{"genrate", "genrate sales report", "generate sales report"},
		{"digits kept", "5 x widgets-10", "5 x widgets 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "acmesupplies", Normalize("Acme  Supplies"))
	assert.Equal(t, "acmesupplies", Normalize("ACME-supplies."))
	assert.Equal(t, "sutrgovinadoo", Normalize("Šutrgovina d.o.o."))
	assert.Equal(t, Normalize("x"), Normalize("X"))
}

func TestCustomTypos(t *testing.T) {
	n := New(map[string]string{"Widjet": "widget"})
	assert.Equal(t, "red widget", n.Fold("red widjet"))
	// defaults still apply
	assert.Equal(t, "supplier", n.Fold("suplier"))
}
