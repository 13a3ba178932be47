// Package dbtest provides database helpers for tests in other packages.
// It is only imported from _test.go files, keeping the testing package out
// of production binaries.
package dbtest

import (
	"testing"

	"github.com/banshee-data/wallpath/internal/db"
)

// New opens an in-memory SQLite database with the base schema applied and
// closes it when the test ends.
func New(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}
