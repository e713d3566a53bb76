package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	_, err = buf.ReadFrom(r)
	require.NoError(t, err)
	return buf.String(), fnErr
}

// resetGlobals restores the global output flags after the test.
func resetGlobals(t *testing.T) {
	t.Helper()
	v, q, j := verbose, quiet, jsonOut
	t.Cleanup(func() { verbose, quiet, jsonOut = v, q, j })
	verbose, quiet, jsonOut = false, false, false
}

// writeScript writes a script file into a temp dir and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.txt")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// testFlags is a small verified buddy setup.
func testFlags(pages uint64, maxOrder int) *managerFlags {
	return &managerFlags{
		pages:     pages,
		base:      "0",
		maxOrder:  maxOrder,
		algorithm: "buddy",
		verify:    true,
	}
}

// decodeJSON unmarshals output into v, failing the test on invalid JSON.
func decodeJSON(t *testing.T, output string, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(output), v), "output: %s", output)
}
