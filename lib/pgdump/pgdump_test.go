package pgdump

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePgDump drops a shell script into a temp directory that ignores its
// arguments and behaves like a pg_dump exiting with the given status.
func fakePgDump(t *testing.T, script string) string {
	t.Helper()
	binary := filepath.Join(t.TempDir(), "pg_dump")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"+script), 0755))
	return binary
}

func TestProcessReadsStdoutToEOF(t *testing.T) {
	binary := fakePgDump(t, `printf 'PGDMP-payload'`)

	proc, err := Start(binary, "dbname=testdb", "snapshot-id")
	require.NoError(t, err)

	out, err := io.ReadAll(proc)
	require.NoError(t, err)
	assert.Equal(t, "PGDMP-payload", string(out))
}

func TestProcessFailureReportsStderr(t *testing.T) {
	binary := fakePgDump(t, "echo 'pg_dump: error: connection failed' >&2\nexit 1")

	proc, err := Start(binary, "dbname=testdb", "snapshot-id")
	require.NoError(t, err)

	_, err = io.ReadAll(proc)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "pg_dump failed")
		assert.Contains(t, err.Error(), "connection failed")
	}
}

func TestProcessFailureIsSticky(t *testing.T) {
	binary := fakePgDump(t, "exit 3")

	proc, err := Start(binary, "dbname=testdb", "snapshot-id")
	require.NoError(t, err)

	_, first := io.ReadAll(proc)
	require.Error(t, first)

	// Further reads keep returning the recorded failure, not a clean EOF.
	_, second := proc.Read(make([]byte, 16))
	assert.Error(t, second)
}

func TestProcessPassesSnapshotAndConninfo(t *testing.T) {
	binary := fakePgDump(t, `echo "$@"`)

	proc, err := Start(binary, "dbname=testdb", "snapshot-id")
	require.NoError(t, err)

	out, err := io.ReadAll(proc)
	require.NoError(t, err)
	assert.Equal(t,
		"--schema-only --format custom --snapshot snapshot-id --dbname dbname=testdb\n",
		string(out),
	)
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(filepath.Join(t.TempDir(), "no-such-binary"), "dbname=testdb", "snap")
	assert.Error(t, err)
}

func TestCloseAbortsRunningProcess(t *testing.T) {
	binary := fakePgDump(t, "sleep 60")

	proc, err := Start(binary, "dbname=testdb", "snapshot-id")
	require.NoError(t, err)

	assert.NoError(t, proc.Close())
}
