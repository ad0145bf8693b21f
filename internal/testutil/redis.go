package testutil

import (
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// MiniRedis starts an in-process Redis that is shut down with the test.
// It returns the server and its host and port.
func MiniRedis(t *testing.T) (*miniredis.Miniredis, string, int) {
	t.Helper()

	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	if err != nil {
		t.Fatalf("miniredis port %q: %v", mr.Port(), err)
	}

	return mr, mr.Host(), port
}
