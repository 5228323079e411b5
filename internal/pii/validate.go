package pii

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// luhnValid reports whether the digits in s pass the Luhn checksum.
func luhnValid(s string) bool {
	digits := digitsOf(s)
	if len(digits) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func validCard(match string) bool {
	n := len(digitsOf(match))
	return n >= 13 && n <= 19 && luhnValid(match)
}

// validPersonnummer checks the embedded date. Day values 61-91 are
// coordination numbers and count as valid.
func validPersonnummer(match string) bool {
	digits := digitsOf(match)
	switch len(digits) {
	case 12:
		digits = digits[2:]
	case 10:
	default:
		return false
	}
	month, _ := strconv.Atoi(digits[2:4])
	day, _ := strconv.Atoi(digits[4:6])
	if month < 1 || month > 12 {
		return false
	}
	if day > 60 {
		day -= 60
	}
	return day >= 1 && day <= 31
}

func validPhone(match string) bool {
	n := len(digitsOf(match))
	return n >= 8 && n <= 15
}

func validIPv4(match string) bool {
	parts := strings.Split(match, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return false
		}
	}
	return true
}

// validIdentifier accepts mixed letter/digit tokens with enough entropy to
// look machine generated.
func validIdentifier(match string) bool {
	var letters, digits bool
	for _, r := range match {
		switch {
		case unicode.IsDigit(r):
			digits = true
		case unicode.IsLetter(r):
			letters = true
		}
	}
	return letters && digits && shannonEntropy(match) >= 3.0
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]float64)
	total := 0.0
	for _, r := range s {
		freq[r]++
		total++
	}
	var h float64
	for _, c := range freq {
		p := c / total
		h -= p * math.Log2(p)
	}
	return h
}
