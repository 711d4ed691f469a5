package base

import (
	"time"
)

// reserve makes sure buf has at least n bytes of free capacity
func reserve(buf []byte, n int) []byte {
	if cap(buf)-len(buf) >= n {
		return buf
	}
	grown := make([]byte, len(buf), 2*cap(buf)+n)
	copy(grown, buf)
	return grown
}

// consume drops the first n bytes of buf, keeping its storage
func consume(buf []byte, n int) []byte {
	if n == len(buf) {
		return buf[:0]
	}
	return buf[:copy(buf, buf[n:])]
}

// pollTimeout converts the time until deadline into a poll(2) timeout in
// milliseconds, rounded up so the loop never wakes before the deadline.
// ok == false means no deadline (block forever).
func pollTimeout(now, deadline time.Time, ok bool) int {
	if !ok {
		return -1
	}
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > 1<<30 {
		ms = 1 << 30
	}
	return int(ms)
}

// earliest returns the earlier of two optional deadlines
func earliest(a time.Time, aOk bool, b time.Time, bOk bool) (time.Time, bool) {
	switch {
	case !aOk:
		return b, bOk
	case !bOk:
		return a, aOk
	case b.Before(a):
		return b, true
	default:
		return a, true
	}
}
