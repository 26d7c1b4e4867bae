// Package testutil provides small test-only helpers shared across ybld's
// package tests, adapted from distri's internal/distritest.
package testutil

import (
	"os"
	"testing"
)

// RemoveAll wraps os.RemoveAll and fails the test on failure.
func RemoveAll(t testing.TB, path string) {
	t.Helper()
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}
