package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "mockserv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
listen: 127.0.0.1:9000
mock_root: ./fixtures
workers: 2
script_timeout: 1500ms
log_level: debug
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", s.Listen)
	assert.Equal(t, "./fixtures", s.MockRoot)
	assert.Equal(t, DefaultToolsDir, s.ToolsDir)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, 1500*time.Millisecond, s.ScriptTimeout)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_Malformed(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "listen: [unterminated")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	s := Settings{Workers: 0, ScriptTimeout: -time.Second, LogLevel: "shouty"}

	err := s.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"listen", "mock_root", "tools_dir", "workers", "script_timeout", "log_level"}, fields)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "listen: must not be empty;")
	assert.Contains(t, err.Error(), "workers: must be at least 1 (got 0)")
	assert.Contains(t, err.Error(), `log_level: unknown log level "shouty" (got shouty)`)
}

func TestValidationErrors_Single(t *testing.T) {
	var verrs ValidationErrors
	assert.False(t, verrs.HasErrors())
	assert.Equal(t, "no validation errors", verrs.Error())

	verrs.Add("workers", "must be at least 1", -2)
	assert.True(t, verrs.HasErrors())
	assert.Equal(t, "workers: must be at least 1 (got -2)", verrs.Error())
}

func TestConfig_SaveAndParseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	c := NewConfig()
	s := c.Get()
	s.MockRoot = "/srv/mocks"
	s.Workers = 3
	c.Update(s)
	require.NoError(t, c.SaveConfig(path))

	loaded := NewConfig()
	require.NoError(t, loaded.ParseConfig(path))
	assert.Equal(t, "/srv/mocks", loaded.Get().MockRoot)
	assert.Equal(t, 3, loaded.Get().Workers)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "mock_root: ./one\n")

	c := NewConfig()
	require.NoError(t, c.ParseConfig(path))
	require.Equal(t, "./one", c.Get().MockRoot)

	reloaded := make(chan Settings, 16)
	w, err := NewWatcher(path, c, func(s Settings) { reloaded <- s })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("mock_root: ./two\n"), 0644))

	assert.Eventually(t, func() bool {
		return c.Get().MockRoot == "./two"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_KeepsSettingsOnBadReload(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "mock_root: ./keep\n")

	c := NewConfig()
	require.NoError(t, c.ParseConfig(path))

	w, err := NewWatcher(path, c, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("workers: -4\n"), 0644))
	w.reload()

	assert.Equal(t, "./keep", c.Get().MockRoot)
	assert.NoError(t, w.watcher.Close())
}
