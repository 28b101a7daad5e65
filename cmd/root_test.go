package cmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pilosa/musiclake/cmd"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	rc := cmd.NewRootCommand(strings.NewReader(""), stdout, stderr)
	rc.SetArgs(args)
	require.NoError(t, rc.Execute(), "stderr: %s", stderr)
	return stdout.String()
}

func TestGenThenRun(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	msg := run(t, "gen", "--root", in, "--songs", "30", "--sessions", "40", "--days", "2")
	require.Contains(t, msg, "wrote 30 songs")
	require.Equal(t, 30, cmd.GenMain.Songs)

	t.Setenv("MUSICLAKE_KEY_STRATEGY", "hash")
	msg = run(t, "--input-root", in, "--output-root", out, "--log-level", "error")
	require.Contains(t, msg, "songplays: ")
	require.Equal(t, "hash", cmd.ETLMain.KeyStrategy)
	require.Equal(t, in, cmd.ETLMain.InputRoot)

	_, err := os.Stat(filepath.Join(out, "songplays", "_SUCCESS"))
	require.NoError(t, err)
}

func TestConfigFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	run(t, "gen", "--root", in, "--songs", "10", "--sessions", "10", "--days", "1")

	cfg := filepath.Join(t.TempDir(), "musiclake.toml")
	toml := "input-root = \"" + in + "\"\noutput-root = \"" + out + "\"\ntitle-policy = \"fanout\"\nconcurrency = 3\nlog-level = \"error\"\n"
	require.NoError(t, os.WriteFile(cfg, []byte(toml), 0644))

	run(t, "--config", cfg, "--concurrency", "2")
	require.Equal(t, out, cmd.ETLMain.OutputRoot)
	require.Equal(t, 2, cmd.ETLMain.Concurrency)
}

func TestRunFails(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	rc := cmd.NewRootCommand(strings.NewReader(""), stdout, stderr)
	rc.SetArgs([]string{"--input-root", t.TempDir(), "--output-root", t.TempDir(), "--key-strategy", "uuid", "--log-level", "error"})
	require.Error(t, rc.Execute())
}
