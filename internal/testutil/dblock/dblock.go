// Package dblock serializes integration tests that share one Postgres
// database across test binaries.
package dblock

import (
	"net"
	"os"
	"time"
)

const defaultLockAddr = "127.0.0.1:45432"

// Acquire blocks until this process holds the lock and returns its release
// func. The lock is a listening TCP port, so it is freed if the process dies.
// BETFLOW_TEST_DB_LOCK overrides the port address.
func Acquire() func() {
	addr := os.Getenv("BETFLOW_TEST_DB_LOCK")
	if addr == "" {
		addr = defaultLockAddr
	}
	for {
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			return func() { _ = ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
