package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setDirs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("APP_INPUT_DIR", filepath.Join(root, "data", "images"))
	t.Setenv("APP_OUTPUT_DIR", filepath.Join(root, "data", "masks"))
	t.Setenv("APP_STATIC_DIR", filepath.Join(root, "static"))
	t.Setenv("APP_UPLOAD_DIR", filepath.Join(root, "static", "uploads"))
	return root
}

func TestLoad_Defaults(t *testing.T) {
	root := setDirs(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{".jpg", ".jpeg", ".png"}, cfg.App.AllowedFormats)
	assert.Equal(t, "web/templates", cfg.App.TemplateDir)
	assert.False(t, cfg.S3.Enabled)
	assert.Equal(t, 3*time.Second, cfg.Launcher.BrowserDelay)

	for _, dir := range []string{"data/images", "data/masks", "static", "static/uploads"} {
		info, err := os.Stat(filepath.Join(root, dir))
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir(), dir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setDirs(t)
	t.Setenv("SERVER_PORT", "8081")
	t.Setenv("SERVER_MODE", "release")
	t.Setenv("SERVER_WRITE_TIMEOUT", "45s")
	t.Setenv("APP_ALLOWED_FORMATS", "PNG, .webp")
	t.Setenv("S3_ENABLED", "true")
	t.Setenv("S3_BUCKET_NAME", "lanes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{".png", ".webp"}, cfg.App.AllowedFormats)
	assert.True(t, cfg.S3.Enabled)
	assert.Equal(t, "lanes", cfg.S3.BucketName)
}

func TestLoad_ConfigFile(t *testing.T) {
	root := setDirs(t)
	file := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server_port: \"9000\"\nlauncher_browser_delay: 1s\n"), 0644))
	t.Setenv("CONFIG_FILE", file)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, time.Second, cfg.Launcher.BrowserDelay)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	root := setDirs(t)
	t.Setenv("CONFIG_FILE", filepath.Join(root, "absent.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestNormalizeFormats(t *testing.T) {
	assert.Equal(t, []string{".jpg", ".png"}, normalizeFormats([]string{"JPG,,png"}))
	assert.Empty(t, normalizeFormats([]string{" , "}))
}
