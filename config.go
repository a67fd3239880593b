package s3freeze

import (
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	gut "github.com/panyam/goutils/utils"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"gopkg.in/yaml.v2"
)

// Config is everything an export run needs.  It is built by the caller and
// handed to NewExporter; there is no package level state.
type Config struct {
	// Final output directory.  It is wiped and recreated on every run.
	OutputDir string `yaml:"output_dir" toml:"output_dir"`

	// Name of the safe asset subtree inside OutputDir.
	StaticDir string `yaml:"static_dir" toml:"static_dir"`

	// Name of the subtree inside OutputDir holding quarantined binaries.
	QuarantineDir string `yaml:"quarantine_dir" toml:"quarantine_dir"`

	// URL prefix the live site serves static files under, eg /static
	StaticPrefix string `yaml:"static_prefix" toml:"static_prefix"`

	// Folder static files are read from.  Ignored if StaticFS is set.
	StaticRoot string `yaml:"static_root" toml:"static_root"`

	// Extension sets for the asset classifier.  Empty means the defaults.
	BinaryExtensions []string `yaml:"binary_extensions" toml:"binary_extensions"`
	MediaExtensions  []string `yaml:"media_extensions" toml:"media_extensions"`

	// CSS class put on the placeholder that replaces quarantined references.
	PlaceholderClass string `yaml:"placeholder_class" toml:"placeholder_class"`

	// Where the plain text run log goes.  Empty means no file is written.
	RunLog string `yaml:"run_log" toml:"run_log"`

	// The static source tree.  Defaults to os.DirFS(StaticRoot).
	StaticFS fs.FS `yaml:"-" toml:"-"`

	// Routes to export and the handler that renders them.
	Routes  RouteTable   `yaml:"-" toml:"-"`
	Handler http.Handler `yaml:"-" toml:"-"`

	Logger *zap.Logger `yaml:"-" toml:"-"`

	// Encoding assumed for text that is not valid UTF-8.  Defaults to
	// ISO-8859-1.
	Fallback encoding.Encoding `yaml:"-" toml:"-"`

	classifier *Classifier
}

// Init fills in defaults and expands user paths.
func (c *Config) Init() *Config {
	if c.OutputDir == "" {
		c.OutputDir = "static_export"
	}
	c.OutputDir = gut.ExpandUserPath(c.OutputDir)
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.QuarantineDir == "" {
		c.QuarantineDir = "removed-binaries"
	}
	if c.StaticPrefix == "" {
		c.StaticPrefix = "/static"
	}
	c.StaticPrefix = "/" + strings.Trim(c.StaticPrefix, "/")
	if c.PlaceholderClass == "" {
		c.PlaceholderClass = "export-error"
	}
	if c.Fallback == nil {
		c.Fallback = charmap.ISO8859_1
	}
	if c.StaticFS == nil && c.StaticRoot != "" {
		c.StaticRoot = gut.ExpandUserPath(c.StaticRoot)
		c.StaticFS = os.DirFS(c.StaticRoot)
	}
	if c.RunLog != "" {
		c.RunLog = gut.ExpandUserPath(c.RunLog)
	}
	if len(c.BinaryExtensions) == 0 {
		c.BinaryExtensions = DefaultBinaryExtensions
	}
	if len(c.MediaExtensions) == 0 {
		c.MediaExtensions = DefaultMediaExtensions
	}
	if c.Logger == nil {
		c.Logger = zap.L()
	}
	c.classifier = NewClassifier(c.BinaryExtensions, c.MediaExtensions)
	return c
}

// Classifier returns the classifier built from the configured extension sets.
func (c *Config) Classifier() *Classifier {
	if c.classifier == nil {
		c.classifier = NewClassifier(c.BinaryExtensions, c.MediaExtensions)
	}
	return c.classifier
}

// LoadConfig decodes a yaml or toml file into cfg.  Fields absent from the
// file keep whatever value cfg already had.
func LoadConfig(path string, cfg *Config) error {
	path = gut.ExpandUserPath(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return errors.Errorf("unsupported config format: %s", path)
	}
	return errors.Wrapf(err, "parsing config %s", path)
}
