package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDoc(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.tsk")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	root := NewRootCommand(out, errOut)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestResolveCommand(t *testing.T) {
	path := writeDoc(t, "$app: \"demo\"\n\n[server]\nname: \"#{app}-server\"\n")

	out, _, err := runCmd(t, "resolve", path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"app": "demo", "server": {"name": "demo-server"}}`, out)
}

func TestGetCommand(t *testing.T) {
	path := writeDoc(t, "[server]\nport: 8080\n")

	out, _, err := runCmd(t, "get", path, "server.port")
	require.NoError(t, err)
	assert.Equal(t, "8080\n", out)

	_, _, err = runCmd(t, "get", path, "server.nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestConvertCommandYAML(t *testing.T) {
	path := writeDoc(t, "[server]\nport: 8080\n")

	out, _, err := runCmd(t, "convert", path, "--to", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "server:")
	assert.Contains(t, out, "port: 8080")

	_, _, err = runCmd(t, "convert", path, "--to", "toml")
	require.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	good := writeDoc(t, "[server]\nport: 8080\n")
	out, _, err := runCmd(t, "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok")

	// check never evaluates operators, so live side effects are safe.
	effectful := writeDoc(t, "x: @http(\"GET\", \"https://example.com\")\n")
	_, _, err = runCmd(t, "check", effectful)
	require.NoError(t, err)

	bad := writeDoc(t, "[server\n")
	out, _, err = runCmd(t, "check", bad)
	require.Error(t, err)
	assert.Contains(t, out, bad+":")
}

func TestInvalidFlags(t *testing.T) {
	path := writeDoc(t, "x: 1\n")

	_, _, err := runCmd(t, "resolve", path, "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-format")

	_, _, err = runCmd(t, "resolve", path, "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-level")
}

func TestResolveWarningsGoToErrStream(t *testing.T) {
	path := writeDoc(t, "x: @env(\"TSK_CLI_TEST_UNSET\", \"fallback\")\ny: @config.missing.get(\"k\", 1)\n")

	out, errOut, err := runCmd(t, "resolve", path)
	require.NoError(t, err)
	assert.Contains(t, errOut, "warning:")
	assert.NotContains(t, out, "warning:")
}
