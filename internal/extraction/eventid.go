package extraction

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// epoch2020 is the reference point the event id's timestamp bits are
// measured from, keeping the millisecond counter small enough to fit 52
// bits comfortably for the lifetime of this system.
var epoch2020 = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewEventID packs a millisecond timestamp (since epoch2020, masked to 52
// bits) into the high bits of a 64-bit id and a random value into the low
// 12 bits, giving events a roughly time-sortable, collision-resistant
// identifier without a central allocator. Returned as a decimal string.
func NewEventID(now time.Time) string {
	ms := uint64(now.Sub(epoch2020).Milliseconds()) & ((1 << 52) - 1)
	r := uint64(rand.IntN(1 << 12))
	id := (ms << 12) | r
	return strconv.FormatUint(id, 10)
}

// NewEventIDNow is NewEventID against the wall clock.
func NewEventIDNow() string {
	return NewEventID(time.Now())
}
