package utils

import "strings"

// digitsOnly strips every non-digit rune from s.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LuhnValid reports whether the given string of exactly wantLen digits
// passes the Luhn checksum.  It is used both for 15-digit IMEIs on the
// sell flow and for 16-digit payout card PANs on the profile.
func LuhnValid(number string, wantLen int) bool {
	s := digitsOnly(number)
	if len(s) != wantLen {
		return false
	}
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		d := int(s[i] - '0')
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

// MaskIMEI hides the middle of a 15-digit IMEI, keeping the first and last
// three digits visible.  Inputs of other lengths are returned unchanged so
// the caller can decide whether to reject them.
func MaskIMEI(imei string) string {
	if len(imei) != 15 {
		return imei
	}
	return imei[:3] + "***" + imei[12:]
}
