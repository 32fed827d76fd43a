package cli

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotki/localdb/internal/paginate"
	"github.com/rotki/localdb/internal/registry"
	"github.com/rotki/localdb/internal/schema"
)

func decodeData(t *testing.T, out string, data any) {
	t.Helper()
	resp := struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

func importSample(t *testing.T, env *testEnv, user string) {
	t.Helper()
	file := writeFile(t, "mappings.yaml", sampleImport)
	env.mustRun(t, "text", "mappings", "import", "--user", user, "--file", file)
}

func TestMappingsAdd(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "text", "mappings", "add", "--user", "alice",
		"--identifier", "XBT", "--location", "kraken", "--name", "Bitcoin")
	assert.Equal(t, "Added mapping [1] XBT @ kraken\n", out)

	out = env.mustRun(t, "json", "mappings", "add", "--user", "alice",
		"--identifier", "XBT", "--location", "binance")
	var rec schema.MissingMapping
	decodeData(t, out, &rec)
	assert.Equal(t, schema.MissingMapping{ID: 2, Identifier: "XBT", Location: "binance"}, rec)

	_, err := os.Stat(registry.StorePath(env.dataDir, "alice", registry.DefaultSuffix))
	assert.NoError(t, err, "store file should be created under the data dir")
}

func TestMappingsAdd_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	args := []string{"mappings", "add", "--user", "alice", "--identifier", "XBT", "--location", "kraken"}

	env.mustRun(t, "text", args...)
	out, err := env.run(t, "json", args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDuplicate, resp.Error.Code)
}

func TestMappingsAdd_RequiresUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "text", "mappings", "add", "--identifier", "XBT", "--location", "kraken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "user")
}

func TestMappingsAdd_EmptyUser(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "text", "mappings", "add", "--user", "", "--identifier", "XBT", "--location", "kraken")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestMappingsImport_AbortsWholeBatch(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "text", "mappings", "add", "--user", "alice", "--identifier", "ETH2", "--location", "binance")

	file := writeFile(t, "mappings.yaml", sampleImport)
	_, err := env.run(t, "text", "mappings", "import", "--user", "alice", "--file", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out := env.mustRun(t, "json", "mappings", "list", "--user", "alice")
	var page paginate.Page[schema.MissingMapping]
	decodeData(t, out, &page)
	assert.Equal(t, 1, page.Total)
}

func TestMappingsImport_JSON(t *testing.T) {
	env := newTestEnv(t)
	file := writeFile(t, "mappings.json", `[{"identifier":"A","location":"L1"},{"identifier":"B","location":"L1"}]`)

	out := env.mustRun(t, "json", "mappings", "import", "--user", "alice", "--file", file)
	var result importResult
	decodeData(t, out, &result)
	assert.Equal(t, importResult{Imported: 2, IDs: []int64{1, 2}}, result)
}

func TestMappingsImport_InvalidFile(t *testing.T) {
	env := newTestEnv(t)

	tests := map[string]string{
		"not a list":       "identifier: A\n",
		"missing location": "- identifier: A\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			file := writeFile(t, "bad.yaml", content)
			out, err := env.run(t, "text", "mappings", "import", "--user", "alice", "--file", file)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E007]")
		})
	}
}

func TestMappingsList_TextGolden(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "text", "mappings", "list", "--user", "alice")

	newGoldie(t).Assert(t, "mappings_list_text", []byte(out))
}

func TestMappingsList_JSONGolden(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "json", "mappings", "list", "--user", "alice",
		"--location", "kraken", "--desc", "--limit", "1")

	newGoldie(t).Assert(t, "mappings_list_json", []byte(out))
}

func TestMappingsList_Window(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "json", "mappings", "list", "--user", "alice",
		"--order-by", "id", "--offset", "1", "--limit", "1")
	var page paginate.Page[schema.MissingMapping]
	decodeData(t, out, &page)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(2), page.Data[0].ID)

	out = env.mustRun(t, "text", "mappings", "list", "--user", "alice", "--offset", "5")
	assert.Equal(t, "No mappings in range (total 3)\n", out)
}

func TestMappingsList_FilterByIdentifier(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "json", "mappings", "list", "--user", "alice",
		"--identifier", "ETH2", "--order-by", "location")
	var page paginate.Page[schema.MissingMapping]
	decodeData(t, out, &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "binance", page.Data[0].Location)
	assert.Equal(t, "kraken", page.Data[1].Location)
}

func TestMappingsList_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"unindexed field", []string{"--order-by", "details"}},
		{"negative offset", []string{"--offset", "-1"}},
		{"negative limit", []string{"--limit", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"mappings", "list", "--user", "alice"}, tt.args...)
			out, err := env.run(t, "text", args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error [E003]")
		})
	}
}

func TestMappingsList_UsersAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "json", "mappings", "list", "--user", "bob")
	var page paginate.Page[schema.MissingMapping]
	decodeData(t, out, &page)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Data)

	out = env.mustRun(t, "json", "mappings", "list", "--user", "alice")
	decodeData(t, out, &page)
	assert.Equal(t, 3, page.Total)
}

func TestMappingsGet(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "text", "mappings", "get", "--user", "alice", "--identifier", "XBT", "--location", "kraken")
	assert.Equal(t, "  [1] XBT @ kraken\n       Name: Bitcoin\n       Details: {\"pair\":\"XBTEUR\"}\n", out)

	_, err := env.run(t, "text", "mappings", "get", "--user", "alice", "--identifier", "XBT", "--location", "binance")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestMappingsRemove(t *testing.T) {
	env := newTestEnv(t)
	importSample(t, env, "alice")

	out := env.mustRun(t, "text", "mappings", "remove", "--user", "alice", "2")
	assert.Equal(t, "Removed mapping [2]\n", out)

	out, err := env.run(t, "json", "mappings", "remove", "--user", "alice", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `"code":"E005"`)

	_, err = env.run(t, "text", "mappings", "remove", "--user", "alice", "two")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMappings_BadConfig(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(env.config, []byte("log_level: loud\n"), 0o644))

	out, err := env.run(t, "text", "mappings", "list", "--user", "alice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E006]")
}
