package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is a config file pointing at a temp snapshot file.
type testEnv struct {
	dir        string
	configPath string
	dbPath     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:        dir,
		configPath: filepath.Join(dir, ".vendori.yaml"),
		dbPath:     filepath.Join(dir, "vendors.db"),
	}
	content := fmt.Sprintf("log:\n  level: error\nstorage:\n  medium: file\n  file:\n    path: %q\n", env.dbPath)
	require.NoError(t, os.WriteFile(env.configPath, []byte(content), 0o600))
	return env
}

// run executes a fresh root command against env and returns stdout,
// stderr and the command error.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return e.runWithInput(t, nil, args...)
}

func (e *testEnv) runWithInput(t *testing.T, stdin []byte, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// mustRun fails the test if the command fails.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := e.run(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return out
}

// writeFile writes content under the env dir and returns its path.
func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
