package s3freeze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestConfig_InitDefaults(t *testing.T) {
	cfg := (&Config{}).Init()

	assert.Equal(t, "static_export", cfg.OutputDir)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, "removed-binaries", cfg.QuarantineDir)
	assert.Equal(t, "/static", cfg.StaticPrefix)
	assert.Equal(t, "export-error", cfg.PlaceholderClass)
	assert.Equal(t, DefaultBinaryExtensions, cfg.BinaryExtensions)
	assert.Equal(t, DefaultMediaExtensions, cfg.MediaExtensions)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, charmap.ISO8859_1, cfg.Fallback)
	assert.Nil(t, cfg.StaticFS)
}

func TestConfig_InitNormalizesPrefixAndRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.css"), []byte("a{}"), 0644))

	cfg := (&Config{StaticPrefix: "assets/", StaticRoot: root}).Init()

	assert.Equal(t, "/assets", cfg.StaticPrefix)
	require.NotNil(t, cfg.StaticFS)
	_, err := cfg.StaticFS.Open("a.css")
	assert.NoError(t, err)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3freeze.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir: out
quarantine_dir: bin
binary_extensions: [".db", ".exe"]
media_extensions:
  - .png
  - .mp4
`), 0644))

	cfg := &Config{StaticDir: "assets"}
	require.NoError(t, LoadConfig(path, cfg))

	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, "bin", cfg.QuarantineDir)
	assert.Equal(t, "assets", cfg.StaticDir, "unset keys keep their value")
	assert.Equal(t, []string{".db", ".exe"}, cfg.BinaryExtensions)

	cfg.Init()
	assert.Equal(t, AssetMedia, cfg.Classifier().Classify("clip.mp4"))
	assert.Equal(t, AssetText, cfg.Classifier().Classify("a.zip"))
}

func TestLoadConfig_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s3freeze.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
output_dir = "dist"
static_prefix = "/assets"
placeholder_class = "gone"
binary_extensions = [".bin"]
`), 0644))

	cfg := &Config{}
	require.NoError(t, LoadConfig(path, cfg))

	assert.Equal(t, "dist", cfg.OutputDir)
	assert.Equal(t, "/assets", cfg.StaticPrefix)
	assert.Equal(t, "gone", cfg.PlaceholderClass)
	assert.Equal(t, []string{".bin"}, cfg.BinaryExtensions)
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	assert.Error(t, LoadConfig(filepath.Join(dir, "missing.yaml"), &Config{}))

	ini := filepath.Join(dir, "conf.ini")
	require.NoError(t, os.WriteFile(ini, []byte("a=b"), 0644))
	assert.Error(t, LoadConfig(ini, &Config{}))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output_dir: [unterminated"), 0644))
	assert.Error(t, LoadConfig(bad, &Config{}))
}
