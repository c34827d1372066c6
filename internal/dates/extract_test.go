package dates

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []time.Time
	}{
		{"none", "sales report please", nil},
		{"iso", "report for 2024-01-31", []time.Time{day(2024, 1, 31)}},
		{"iso range", "from 2024-01-01 to 2024-01-31", []time.Time{day(2024, 1, 1), day(2024, 1, 31)}},
		{"day first", "from 05/03/2024", []time.Time{day(2024, 3, 5)}},
		{"us fallback", "12/31/2024", []time.Time{day(2024, 12, 31)}},
		{"spelled month", "from 3 March 2024 until March 10, 2024", []time.Time{day(2024, 3, 3), day(2024, 3, 10)}},
		{"ordinals", "the 3rd of march 2024 to the tenth of march 2024", []time.Time{day(2024, 3, 3), day(2024, 3, 10)}},
		{"abbreviated month", "sept 9 2023", []time.Time{day(2023, 9, 9)}},
		{"bare year", "everything in 2023", []time.Time{day(2023, 1, 1)}},
		{"year out of range", "order 5000 widgets", nil},
		{"compact", "20240215", []time.Time{day(2024, 2, 15)}},
		{"voice typo", "starting 20-20 0201", []time.Time{day(2020, 2, 1)}},
		{"no swap", "from 2024-02-01 to 2024-01-01", []time.Time{day(2024, 2, 1), day(2024, 1, 1)}},
		{"duplicates collapse", "2024-01-01 and 01/01/2024", []time.Time{day(2024, 1, 1)}},
		{"at most two", "2021 2022 2023", []time.Time{day(2021, 1, 1), day(2022, 1, 1)}},
		{"invalid day", "31/02/2024", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_RoundTrip(t *testing.T) {
	formats := map[string]func(time.Time) string{
		"iso":       func(d time.Time) string { return d.Format("2006-01-02") },
		"day first": func(d time.Time) string { return d.Format("02/01/2006") },
		"d month y": func(d time.Time) string { return d.Format("2 January 2006") },
		"month d, y": func(d time.Time) string {
			return d.Format("January 2, 2006")
		},
		"compact": func(d time.Time) string { return d.Format("20060102") },
		"voice": func(d time.Time) string {
			y := d.Format("2006")
			return fmt.Sprintf("%s-%s %s", y[:2], y[2:], d.Format("0102"))
		},
	}
	samples := []time.Time{day(2024, 1, 31), day(2023, 12, 1), day(2020, 2, 29), day(1999, 7, 4)}

	for name, format := range formats {
		for _, d := range samples {
			got := Extract(format(d))
			require.Len(t, got, 1, "%s: %q", name, format(d))
			assert.True(t, got[0].Equal(d), "%s: %q parsed as %s", name, format(d), got[0])
		}
	}

	got := Extract("2022")
	require.Len(t, got, 1)
	assert.Equal(t, day(2022, 1, 1), got[0])
}

func TestClean(t *testing.T) {
	assert.Equal(t, "the 3 march 2024", Clean("The 3rd of March, 2024"))
	assert.Equal(t, "1 may", Clean("first of May"))
}
