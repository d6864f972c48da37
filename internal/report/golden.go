package report

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tbrun/internal/harness"
)

// AssertGolden compares the snapshot of s with testdata/golden/<name>.golden.
//
// To regenerate golden files, run the tests with -update.
func AssertGolden(t *testing.T, name string, s *harness.Summary) {
	t.Helper()

	data, err := Snapshot(s)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
