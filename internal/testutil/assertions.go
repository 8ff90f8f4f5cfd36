package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertPrinted checks that a Print node named name wrote value.
func AssertPrinted(t *testing.T, result *HarnessResult, name, value string) {
	t.Helper()

	want := fmt.Sprintf("      %s = %s\n", name, value)
	require.True(t,
		strings.Contains(result.LogOutput, want),
		"expected %q in output:\n%s", want, result.LogOutput,
	)
}

// PrintCount reports how many times a Print node named name wrote anything.
func PrintCount(result *HarnessResult, name string) int {
	return strings.Count(result.LogOutput, fmt.Sprintf("      %s = ", name))
}
