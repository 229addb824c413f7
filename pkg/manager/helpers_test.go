package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sqlpancake/internal/testutil"
)

// openTestHandle returns a Connected handle on a fresh file in a temp dir.
func openTestHandle(t *testing.T) *Handle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	h, err := Open(context.Background(), path, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// mustExec runs statements and fails the test on the first error.
func mustExec(t *testing.T, h *Handle, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		_, err := h.Execute(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

// writeFile writes content to name inside a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
