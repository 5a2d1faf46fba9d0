package dispatcher

import "runtime"

// getGoroutineID extracts the calling goroutine's ID by parsing the
// "goroutine N [...]" header runtime.Stack always writes first, the
// same technique the eventloop package's loopGoroutineID uses (there
// to guard Loop's single-threaded fast path; here to guard Context
// against being invoked outside the goroutine currently dispatching).
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
