package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func siteArgs() []string {
	return []string{
		"--content-root", "../../web/content",
		"--templates", "../../web/templates",
		"--static-root", "../../web/static",
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "site")
	bucket := filepath.Join(dir, "bucket")
	require.NoError(t, os.MkdirAll(bucket, 0755))

	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{
		"export", "--log-level", "warn",
		"--output", out,
		"--summary", filepath.Join(dir, "summary.json"),
		"--metrics-file", filepath.Join(dir, "s3freeze.prom"),
		"--publish-bucket", "file://" + filepath.ToSlash(bucket),
		"--publish-prefix", "www",
	}, siteArgs()...))
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "contact.html"))
	assert.FileExists(t, out+".log", "run log defaults to a file next to the output dir")
	assert.NoFileExists(t, filepath.Join(out, "site.log"))
	assert.FileExists(t, filepath.Join(dir, "summary.json"))
	assert.FileExists(t, filepath.Join(bucket, "www", "about.html"))

	prom, err := os.ReadFile(filepath.Join(dir, "s3freeze.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "s3freeze_pages_exported_count")
}

func TestExportCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "from-config")
	config := filepath.Join(dir, "s3freeze.yaml")
	require.NoError(t, os.WriteFile(config, []byte("output_dir: "+out+"\nquarantine_dir: quarantine\nrun_log: "+filepath.Join(dir, "run.log")+"\n"), 0644))

	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"export", "--log-level", "warn", "--config", config}, siteArgs()...))
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(out, "quarantine", "data", "machines.db"))
	assert.FileExists(t, filepath.Join(dir, "run.log"))
}

func TestExportCommand_ConfigStaticRootReachesSite(t *testing.T) {
	dir := t.TempDir()
	static := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(filepath.Join(static, "css"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "css", "site.css"), []byte("body{color:red}"), 0644))
	config := filepath.Join(dir, "s3freeze.yaml")
	require.NoError(t, os.WriteFile(config, []byte("static_root: "+static+"\n"), 0644))

	v := newViper()
	v.Set("export.config", config)
	v.Set("export.output", filepath.Join(dir, "out"))
	v.Set("site.static_root", "../../web/static")
	l := zaptest.NewLogger(t)

	cfg, err := loadExportConfig(v)
	require.NoError(t, err)
	s := newSite(v, l, cfg)
	exportConfig(v, cfg, s, l)

	assert.Equal(t, static, s.StaticRoot)
	assert.Equal(t, s.StaticRoot, cfg.StaticRoot)
	assert.Equal(t, s.StaticPrefix, cfg.StaticPrefix)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/css/site.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{color:red}", rec.Body.String())

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/data/machines.db", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportCommand_BadConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs(append([]string{"export", "--log-level", "warn", "--config", "nope.ini"}, siteArgs()...))
	assert.Error(t, cmd.Execute())
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug", "json")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = newLogger("chatty", "json")
	assert.Error(t, err)
}
