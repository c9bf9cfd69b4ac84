package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionEscrow(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{EscrowHeld, EscrowReleased, true},
		{EscrowHeld, EscrowDisputed, true},
		{EscrowHeld, EscrowRefunded, true},
		{EscrowDisputed, EscrowReleased, true},
		{EscrowDisputed, EscrowRefunded, true},
		{EscrowReleased, EscrowRefunded, false},
		{EscrowReleased, EscrowDisputed, false},
		{EscrowRefunded, EscrowReleased, false},
		{EscrowRefunded, EscrowDisputed, false},
		{EscrowDisputed, EscrowDisputed, false},
		{EscrowHeld, EscrowHeld, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransitionEscrow(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestEscrowTerminal(t *testing.T) {
	assert.False(t, EscrowTerminal(EscrowHeld))
	assert.False(t, EscrowTerminal(EscrowDisputed))
	assert.True(t, EscrowTerminal(EscrowReleased))
	assert.True(t, EscrowTerminal(EscrowRefunded))
}

func TestDueForAutoRelease(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hold := 24 * time.Hour

	deliveredLongAgo := now.Add(-25 * time.Hour)
	deliveredRecently := now.Add(-23 * time.Hour)

	// Held + delivered over 24h ago -> due.
	o := Order{EscrowStatus: EscrowHeld, DeliveredAt: &deliveredLongAgo}
	assert.True(t, o.DueForAutoRelease(now, hold))

	// Held but inside the window -> not due.
	o.DeliveredAt = &deliveredRecently
	assert.False(t, o.DueForAutoRelease(now, hold))

	// Never delivered -> not due regardless of age.
	o.DeliveredAt = nil
	assert.False(t, o.DueForAutoRelease(now, hold))

	// A filed dispute wins over an elapsed timer.
	o = Order{EscrowStatus: EscrowDisputed, DeliveredAt: &deliveredLongAgo}
	assert.False(t, o.DueForAutoRelease(now, hold))

	// Terminal states are never picked up again.
	o.EscrowStatus = EscrowReleased
	assert.False(t, o.DueForAutoRelease(now, hold))
}

func TestFaultTreeValidation(t *testing.T) {
	ok := FaultTree{Screen: AnswerBroken, Display: AnswerWorking, Board: AnswerWorking, Battery: AnswerBad}
	assert.True(t, ok.Valid())

	bad := FaultTree{Screen: "shattered", Board: AnswerWorking, Battery: AnswerGood}
	assert.False(t, bad.Valid())

	var empty FaultTree
	empty.Normalize()
	assert.Equal(t, AnswerUnknown, empty.Screen)
	assert.Equal(t, AnswerUnknown, empty.Board)
	assert.Equal(t, AnswerUnknown, empty.Battery)
	assert.True(t, empty.Valid())
}
