package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pagebuilder.yaml")
	body := "backend: " + backend + "\ndataDir: " + filepath.Join(dir, "data") + "\nrevisionsKeep: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, cfg string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_CreateApplyRenderHistory(t *testing.T) {
	for _, backend := range []string{"sqlite", "json"} {
		t.Run(backend, func(t *testing.T) {
			cfg := writeConfig(t, backend)

			_, err := run(t, cfg, `[{"id":"hero","type":"Section","children":[]}]`, "create", "home", "--shop", "s1", "--from", "-")
			require.NoError(t, err)

			out, err := run(t, cfg, `{"type":"add","parentId":"hero","component":{"id":"t1","type":"Text","text":"Hi"}}`, "apply", "home", "-")
			require.NoError(t, err)
			var res struct {
				Version   int64  `json:"version"`
				CreatedID string `json:"createdId"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &res))
			assert.Equal(t, int64(2), res.Version)
			assert.Equal(t, "t1", res.CreatedID)

			out, err = run(t, cfg, "", "render", "home", "--viewport", "mobile")
			require.NoError(t, err)
			assert.Contains(t, out, `"t1"`)

			out, err = run(t, cfg, "", "history", "home")
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(out), "\n")
			require.Len(t, lines, 2)
			assert.Contains(t, lines[0], "add Text")

			out, err = run(t, cfg, "", "validate", "home")
			require.NoError(t, err)
			assert.Contains(t, out, "ok: 2 component(s)")

			out, err = run(t, cfg, "", "publish", "home")
			require.NoError(t, err)
			assert.Contains(t, out, "published home")
		})
	}
}

func TestCLI_ValidateFile(t *testing.T) {
	cfg := writeConfig(t, "json")

	out, err := run(t, cfg, `[{"id":"a","type":"Text","position":"absolute"},{"id":"a","type":"Text"}]`, "validate", "--file", "-")
	require.Error(t, err)
	assert.Contains(t, out, "a: root component 0 (Text) must not use absolute positioning")
	assert.Contains(t, out, `duplicate id "a"`)

	_, err = run(t, cfg, "", "validate")
	assert.Error(t, err)
}

func TestCLI_ApplyRejectsBadAction(t *testing.T) {
	cfg := writeConfig(t, "json")
	_, err := run(t, cfg, `{"id":"x"}`, "apply", "home", "-")
	assert.ErrorContains(t, err, "missing type")

	_, err = run(t, cfg, `{not json`, "apply", "home", "-")
	assert.ErrorContains(t, err, "parse action")
}

func TestCLI_Compact(t *testing.T) {
	cfg := writeConfig(t, "sqlite")
	_, err := run(t, cfg, "", "create", "home")
	require.NoError(t, err)
	for _, id := range []string{"a", "b", "c"} {
		_, err := run(t, cfg, `{"type":"add","component":{"id":"`+id+`","type":"Text"}}`, "apply", "home", "-")
		require.NoError(t, err)
	}

	out, err := run(t, cfg, "", "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 2 revision(s)")
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "(root)", pathString(nil))
	assert.Equal(t, "hero > t1", pathString([]string{"hero", "t1"}))
}
