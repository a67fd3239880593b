package s3freeze

import (
	"path"
	"strings"
)

// AssetKind is the class a static file falls into for export purposes.
type AssetKind int

const (
	// AssetText files are copied and then normalized to UTF-8.  Anything the
	// classifier does not recognise ends up here.
	AssetText AssetKind = iota

	// AssetMedia files are opaque bytes that ship as-is under static/.
	AssetMedia

	// AssetBinary files are not allowed in the static bundle and are moved
	// to the quarantine directory instead.
	AssetBinary
)

func (k AssetKind) String() string {
	switch k {
	case AssetText:
		return "text"
	case AssetMedia:
		return "media"
	case AssetBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// DefaultBinaryExtensions are the extensions quarantined when no list is configured.
var DefaultBinaryExtensions = []string{
	".db", ".sqlite", ".sqlite3", ".pyc", ".pkl", ".exe", ".dll", ".so", ".bin", ".dat",
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z", ".rar",
	".mov", ".mp4", ".mkv", ".avi", ".webm", ".ogg", ".wav", ".flac",
}

// DefaultMediaExtensions are the extensions copied verbatim when no list is configured.
var DefaultMediaExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".bmp", ".avif",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".css", ".js", ".mjs", ".map", ".pdf", ".mp3",
}

// Classifier decides the AssetKind of a file purely from its extension.
// Lookups are case-insensitive.  A name with no extension, or an extension
// in neither set, is text.
type Classifier struct {
	binary map[string]bool
	media  map[string]bool
}

// NewClassifier builds a classifier from two extension lists.  Entries may be
// given with or without the leading dot.  If an extension is in both lists
// the binary classification wins.
func NewClassifier(binary, media []string) *Classifier {
	c := &Classifier{binary: map[string]bool{}, media: map[string]bool{}}
	for _, ext := range binary {
		c.binary[normalizeExt(ext)] = true
	}
	for _, ext := range media {
		c.media[normalizeExt(ext)] = true
	}
	return c
}

// Classify returns the kind for a file name or slash separated path.
func (c *Classifier) Classify(name string) AssetKind {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return AssetText
	}
	if c.binary[ext] {
		return AssetBinary
	}
	if c.media[ext] {
		return AssetMedia
	}
	return AssetText
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
