package validate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withClock(t *testing.T, year int) {
	t.Helper()
	prev := now
	now = func() time.Time { return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = prev })
}

func TestIsValidIsraeliID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"123456782", true},
		{"987654324", true},
		{"039337423", true},
		{"39337423", true},
		{"123456789", false},
		{"111111111", false},
		{"", false},
		{"1234567890", false},
		{"12345678a", false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidIsraeliID(tt.id))
		})
	}
}

func TestParseIsraeliID(t *testing.T) {
	got, ok := ParseIsraeliID("39337423")
	assert.True(t, ok)
	assert.Equal(t, "039337423", got)

	got, ok = ParseIsraeliID("12345678-2")
	assert.True(t, ok)
	assert.Equal(t, "123456782", got)

	_, ok = ParseIsraeliID("123456789")
	assert.False(t, ok)
	_, ok = ParseIsraeliID("no digits")
	assert.False(t, ok)
	_, ok = ParseIsraeliID("12345678901")
	assert.False(t, ok)
}

func TestTaxYearRange(t *testing.T) {
	withClock(t, 2026)
	assert.Equal(t, 2027, MaxTaxYear())

	assert.True(t, IsValidTaxYear(2010))
	assert.True(t, IsValidTaxYear(2027))
	assert.False(t, IsValidTaxYear(2009))
	assert.False(t, IsValidTaxYear(2028))

	y, ok := ParseTaxYear(" 2024 ")
	assert.True(t, ok)
	assert.Equal(t, 2024, y)
	_, ok = ParseTaxYear("1999")
	assert.False(t, ok)
	_, ok = ParseTaxYear("20x4")
	assert.False(t, ok)
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"150,000", 150000, true},
		{"1,234,567.89", 1234567.89, true},
		{"0", 0, true},
		{"42.5", 42.5, true},
		{"-5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseMoney(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsValidMoney(t *testing.T) {
	assert.True(t, IsValidMoney(0))
	assert.False(t, IsValidMoney(-0.01))
	assert.False(t, IsValidMoney(math.NaN()))
	assert.False(t, IsValidMoney(math.Inf(1)))
}
