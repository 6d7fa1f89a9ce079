package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "vendori", cmd.Use)
	assert.Contains(t, cmd.Long, "snapshot")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"list", "get", "upsert", "remove", "rename", "flush", "stats", "serve"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "medium", "db"} {
		f := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "", f.DefValue)
	}
}

func TestUpsertCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	upsertCmd, _, err := cmd.Find([]string{"upsert"})
	require.NoError(t, err)

	fileFlag := upsertCmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
	assert.Equal(t, "f", fileFlag.Shorthand)
	assert.NotNil(t, upsertCmd.Flags().Lookup("set"))
}

func TestInvalidFormat(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "list", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestUnknownFlag(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "list", "--nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWrongArgCount(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.run(t, "rename", "only-one")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "accepts 2 arg")

	_, _, err = env.run(t, "upsert", "Acme Corp", "Beta Ltd")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "accepts at most 1 arg")
}

func TestBadConfig(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "bad.yaml", "storage:\n  medium: floppy\n")

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--config", path, "list"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMediumOverride(t *testing.T) {
	env := newTestEnv(t)

	// The memory medium starts empty on every run.
	env.mustRun(t, "--medium", "memory", "upsert", "Acme Corp")
	out := env.mustRun(t, "--medium", "memory", "list")
	assert.Contains(t, out, "No records.")
}

func TestLogLevelFollowsConfig(t *testing.T) {
	env := newTestEnv(t)
	lv := &slog.LevelVar{}

	cmd := NewRootCommand(WithLogLevel(lv))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "list"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, slog.LevelError, lv.Level())

	cmd = NewRootCommand(WithLogLevel(lv))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "--verbose", "list"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, slog.LevelDebug, lv.Level())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
