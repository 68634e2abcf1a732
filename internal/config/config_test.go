package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "melodia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog-url: http://file.example/api
files-url: http://file.example
http-timeout: 3s
log-level: warn
volume: 0.4
`), 0o600))

	t.Setenv("MELODIA_FILES_URL", "http://env.example")
	t.Setenv("MELODIA_METRICS_ADDR", ":9100")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--volume=0.6", "--mock-audio"}))

	v := New()
	require.NoError(t, v.BindPFlags(fs))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "http://file.example/api", cfg.CatalogURL, "file beats defaults")
	assert.Equal(t, "http://env.example", cfg.FilesURL, "env beats file")
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.InDelta(t, 0.6, cfg.Volume, 1e-9, "flag beats file")
	assert.True(t, cfg.MockAudio)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelWarn, cfg.Logger().Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	cfg.Volume = 2
	cfg.SampleRate = 10
	cfg.HTTPTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{KeyLogFormat, KeyVolume, KeySampleRate, KeyHTTPTimeout} {
		assert.Contains(t, err.Error(), key)
	}

	cfg = Default()
	cfg.CatalogURL = ""
	assert.Error(t, cfg.Validate())
	cfg.Demo = true
	assert.NoError(t, cfg.Validate(), "demo mode needs no content service")
}
