// Package speechtext rewrites reply text so a speech engine reads numbers as
// Spanish words.
package speechtext

import (
	"strings"
	"unicode"
)

// Normalize replaces every standalone run of decimal digits (any script) with
// its Spanish cardinal. A run is standalone when neither neighbouring rune is a letter,
// a digit or an underscore, so "A123" and "3er" are left alone.
func Normalize(text string) string {
	runes := []rune(text)
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(runes); {
		if !unicode.IsDigit(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsDigit(runes[j]) {
			j++
		}
		standalone := (i == 0 || !isWordRune(runes[i-1])) && (j == len(runes) || !isWordRune(runes[j]))
		if standalone {
			b.WriteString(Cardinal(asciiDigits(runes[i:j])))
		} else {
			b.WriteString(string(runes[i:j]))
		}
		i = j
	}
	return b.String()
}

// digitValue returns the value of a decimal digit rune. Decimal digits are
// encoded in contiguous zero-to-nine runs, so the value is the offset from
// the start of the run.
func digitValue(r rune) int {
	start := r
	for unicode.IsDigit(start - 1) {
		start--
	}
	return int(r-start) % 10
}

func asciiDigits(run []rune) string {
	b := make([]byte, len(run))
	for i, r := range run {
		b[i] = byte('0' + digitValue(r))
	}
	return string(b)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

var (
	small = [...]string{
		"cero", "uno", "dos", "tres", "cuatro", "cinco", "seis", "siete", "ocho", "nueve",
		"diez", "once", "doce", "trece", "catorce", "quince", "dieciséis", "diecisiete", "dieciocho", "diecinueve",
		"veinte", "veintiuno", "veintidós", "veintitrés", "veinticuatro", "veinticinco", "veintiséis", "veintisiete", "veintiocho", "veintinueve",
	}
	tens = [...]string{
		"", "", "", "treinta", "cuarenta", "cincuenta", "sesenta", "setenta", "ochenta", "noventa",
	}
	hundreds = [...]string{
		"", "ciento", "doscientos", "trescientos", "cuatrocientos", "quinientos",
		"seiscientos", "setecientos", "ochocientos", "novecientos",
	}
	// long scale: each step is a factor of 10^6
	scales = [...]struct{ one, many string }{
		{"", ""},
		{"millón", "millones"},
		{"billón", "billones"},
		{"trillón", "trillones"},
		{"cuatrillón", "cuatrillones"},
	}
)

const maxDigits = 6 * len(scales)

// Cardinal spells a string of ASCII digits as a Spanish cardinal number.
// Leading zeros are ignored. Numbers longer than the scale table are read
// digit by digit.
func Cardinal(digits string) string {
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return small[0]
	}
	if len(digits) > maxDigits {
		words := make([]string, 0, len(digits))
		for _, d := range digits {
			words = append(words, small[d-'0'])
		}
		return strings.Join(words, " ")
	}

	// split into 6-digit groups, least significant first
	var groups []int
	for end := len(digits); end > 0; end -= 6 {
		start := max(end-6, 0)
		groups = append(groups, atoi(digits[start:end]))
	}

	var parts []string
	for k := len(groups) - 1; k >= 0; k-- {
		v := groups[k]
		if v == 0 {
			continue
		}
		if k == 0 {
			parts = append(parts, belowMillion(v, false))
			continue
		}
		if v == 1 {
			parts = append(parts, "un "+scales[k].one)
		} else {
			parts = append(parts, belowMillion(v, true)+" "+scales[k].many)
		}
	}
	return strings.Join(parts, " ")
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// apocope shortens a trailing "uno" to "un" when a noun (mil, millones) follows.
func belowMillion(n int, apocope bool) string {
	th, rest := n/1000, n%1000
	var parts []string
	switch {
	case th == 1:
		parts = append(parts, "mil")
	case th > 1:
		parts = append(parts, belowThousand(th, true)+" mil")
	}
	if rest > 0 {
		parts = append(parts, belowThousand(rest, apocope))
	}
	return strings.Join(parts, " ")
}

func belowThousand(n int, apocope bool) string {
	if n == 100 {
		return "cien"
	}
	h, rest := n/100, n%100
	var parts []string
	if h > 0 {
		parts = append(parts, hundreds[h])
	}
	if rest > 0 {
		parts = append(parts, belowHundred(rest, apocope))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int, apocope bool) string {
	switch {
	case n == 1 && apocope:
		return "un"
	case n == 21 && apocope:
		return "veintiún"
	case n < 30:
		return small[n]
	}
	t, u := n/10, n%10
	if u == 0 {
		return tens[t]
	}
	unit := small[u]
	if u == 1 && apocope {
		unit = "un"
	}
	return tens[t] + " y " + unit
}
