package server

import "time"

const (
	// testShortTimeout trips request timeouts quickly.
	testShortTimeout = 100 * time.Millisecond
	// testLongTimeout bounds waits that should finish well before it.
	testLongTimeout = 5 * time.Second
)
