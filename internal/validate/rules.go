// Package validate holds the value rules and the record schema every
// normalized Form 106 record must satisfy.
package validate

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Version of the validation rules and schema.
const Version = "1.0.0"

// MinTaxYear is the earliest tax year accepted.
const MinTaxYear = 2010

var now = time.Now

// MaxTaxYear is one year past the current calendar year.
func MaxTaxYear() int {
	return now().Year() + 1
}

// IsValidIsraeliID checks the nine-digit check-digit scheme. Shorter inputs
// are left-padded with zeros first.
func IsValidIsraeliID(id string) bool {
	if id == "" || len(id) > 9 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	id = strings.Repeat("0", 9-len(id)) + id

	sum := 0
	for i := 0; i < 9; i++ {
		d := int(id[i]-'0') * (i%2 + 1)
		if d > 9 {
			d -= 9
		}
		sum += d
	}
	return sum%10 == 0
}

// ParseIsraeliID strips non-digits, pads to nine digits and checks the check
// digit. It returns the canonical nine-digit form.
func ParseIsraeliID(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" || len(digits) > 9 {
		return "", false
	}
	padded := strings.Repeat("0", 9-len(digits)) + digits
	if !IsValidIsraeliID(padded) {
		return "", false
	}
	return padded, true
}

// IsValidTaxYear reports whether year is within [MinTaxYear, MaxTaxYear()].
func IsValidTaxYear(year int) bool {
	return year >= MinTaxYear && year <= MaxTaxYear()
}

// ParseTaxYear parses a four-digit year inside the accepted range.
func ParseTaxYear(raw string) (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !IsValidTaxYear(y) {
		return 0, false
	}
	return y, true
}

// IsValidMoney accepts finite non-negative amounts.
func IsValidMoney(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// ParseMoney strips thousands separators and parses a non-negative amount.
func ParseMoney(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !IsValidMoney(v) {
		return 0, false
	}
	return v, true
}
