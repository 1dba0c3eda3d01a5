package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadHostConfig(t *testing.T) {
	path := writeConfig(t, `
dir: /tmp/shm
namespace: render
log_level: debug
log_format: json
commit_limit_bytes: 1048576
poll_interval: 250ms
stay_up: true
metrics_addr: 127.0.0.1:0
`)
	cfg, err := LoadHostConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shm", cfg.Dir)
	assert.Equal(t, "render", cfg.Namespace)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, int64(1<<20), cfg.CommitLimitBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.True(t, cfg.StayUp)
}

func TestLoadHostConfig_Defaults(t *testing.T) {
	cfg, err := LoadHostConfig(writeConfig(t, "namespace: a\n"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
}

func TestLoadHostConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "namespce: a\n", "field namespce not found"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"bad format", "log_format: xml\n", "log_format"},
		{"negative limit", "commit_limit_bytes: -1\n", "commit_limit_bytes"},
		{"zero poll", "poll_interval: 0s\n", "poll_interval"},
		{"malformed", "dir: [\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadHostConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadHostConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolveHostConfig_Precedence(t *testing.T) {
	path := writeConfig(t, `
dir: /from/file
namespace: file-ns
log_level: warn
poll_interval: 1s
`)
	root := NewRootCommand()
	root.SetArgs([]string{"host", "--config", path, "--ns", "flag-ns", "--log-level", "debug"})

	var got HostConfig
	host, _, err := root.Find([]string{"host"})
	require.NoError(t, err)
	host.RunE = func(cmd *cobra.Command, args []string) error {
		rootOpts := &RootOptions{Namespace: "flag-ns"}
		opts := &hostOptions{config: path, cfg: HostConfig{LogLevel: "debug"}}
		got, err = resolveHostConfig(rootOpts, opts, cmd)
		return err
	}
	require.NoError(t, root.Execute())

	assert.Equal(t, "/from/file", got.Dir)
	assert.Equal(t, "flag-ns", got.Namespace)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, time.Second, got.PollInterval)
}

func TestResolveHostConfig_GeneratesNamespace(t *testing.T) {
	cmd := NewHostCommand(&RootOptions{})
	cfg, err := resolveHostConfig(&RootOptions{}, &hostOptions{cfg: DefaultHostConfig()}, cmd)
	require.NoError(t, err)
	assert.Len(t, cfg.Namespace, 36)
	assert.NotEmpty(t, cfg.Dir)
}
