package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLuhnValid(t *testing.T) {
	cases := []struct {
		name    string
		number  string
		wantLen int
		ok      bool
	}{
		{"valid imei", "490154203237518", 15, true},
		{"valid imei with spaces", "49 0154 2032 375 18", 15, true},
		{"checksum off by one", "490154203237519", 15, false},
		{"too short", "49015420323751", 15, false},
		{"valid card pan", "4111111111111111", 16, true},
		{"card pan checked as imei", "4111111111111111", 15, false},
		{"letters only", "abcdefghijklmno", 15, false},
		{"empty", "", 15, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, LuhnValid(tc.number, tc.wantLen))
		})
	}
}

func TestMaskIMEI(t *testing.T) {
	assert.Equal(t, "490***518", MaskIMEI("490154203237518"))
	// Other lengths pass through untouched.
	assert.Equal(t, "12345", MaskIMEI("12345"))
}
