package form

import "strings"

const cpfDigits = 11

// FormatCPF applies the 000.000.000-00 mask to whatever digits s contains.
// Partial input is masked as far as it goes, anything that is not a digit is
// dropped and digits past the eleventh are ignored. Formatting an already
// formatted value returns it unchanged.
func FormatCPF(s string) string {
	var b strings.Builder
	b.Grow(cpfDigits + 3)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			continue
		}
		switch n {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteRune(r)
		n++
		if n == cpfDigits {
			break
		}
	}
	return b.String()
}

// CPFDigits strips the mask and returns only the digits.
func CPFDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, s)
}
