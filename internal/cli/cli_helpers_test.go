package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// testEnv is an isolated data directory plus config file.
type testEnv struct {
	dataDir string
	config  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dataDir: filepath.Join(dir, "data"),
		config:  filepath.Join(dir, "localdb.yaml"),
	}
	require.NoError(t, os.WriteFile(env.config, []byte("log_level: error\n"), 0o644))
	return env
}

// run executes the root command and returns stdout.
func (e *testEnv) run(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--data-dir", e.dataDir, "--format", format}, args...))

	err := cmd.Execute()
	return stdout.String(), err
}

// mustRun is run that fails the test on error.
func (e *testEnv) mustRun(t *testing.T, format string, args ...string) string {
	t.Helper()
	out, err := e.run(t, format, args...)
	require.NoError(t, err, "output: %s", out)
	return out
}

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

const sampleImport = `- identifier: XBT
  name: Bitcoin
  location: kraken
  details: '{"pair":"XBTEUR"}'
- identifier: ETH2
  name: Eth 2
  location: kraken
- identifier: ETH2
  location: binance
`
