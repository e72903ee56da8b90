package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/myshell/core/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	requirePrograms(t, "echo")

	fs := afero.NewMemMapFs()
	cfg := config.Default(fs)
	cfg.AppLog = "/app.log"
	cfg.TTYLog = "/session.cast"
	cfg.Color = config.ColorAlways

	stdin, input, err := os.Pipe()
	require.Nil(t, err)
	defer stdin.Close()

	dir := t.TempDir()
	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.Nil(t, err)
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.Nil(t, err)
	defer stderr.Close()

	session, err := NewSession(cfg, stdin, stdout, stderr)
	require.Nil(t, err)

	// Pipes are not terminals.
	assert.Nil(t, session.Shell.Editor.Terminal)
	assert.Nil(t, session.Shell.Interrupts)
	assert.Contains(t, session.Shell.Prompt(), "\x1b[")

	_, err = input.WriteString("echo hi\nexit\n")
	require.Nil(t, err)
	input.Close()

	assert.Equal(t, 0, session.Run())
	assert.Nil(t, session.Close())

	out, err := os.ReadFile(stdout.Name())
	require.Nil(t, err)
	assert.Contains(t, string(out), "hi\n")

	appLog, err := afero.ReadFile(fs, "/app.log")
	require.Nil(t, err)
	assert.Contains(t, string(appLog), "[myshell] ")
	assert.Contains(t, string(appLog), "session started")
	assert.Contains(t, string(appLog), "session ended")

	cast, err := afero.ReadFile(fs, "/session.cast")
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(string(cast)), "\n")
	assert.Contains(t, lines[0], `"version":2`)
	assert.Contains(t, string(cast), `"i","e"`)
	assert.Contains(t, string(cast), `"o",`)
}
