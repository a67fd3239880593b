package s3freeze

import (
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/panyam/s3freeze/metrics"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BinaryMap maps a static relative path to the output path (relative to the
// output root) it was quarantined to.  It only lives for one export run.
type BinaryMap map[string]string

// Sorted returns the quarantined static paths in lexical order.
func (b BinaryMap) Sorted() []string {
	out := make([]string, 0, len(b))
	for rel := range b {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// Placement is where one static asset ended up.
type Placement struct {
	// Rel is the cleaned path relative to the static source root.
	Rel string

	// Output is the slash separated path relative to the output root that
	// pages should reference.  For a missing asset it is Rel unchanged.
	Output string

	Kind        AssetKind
	Quarantined bool
	Missing     bool
}

// Copier copies assets out of the static source tree into the output tree.
type Copier struct {
	// Source is the static source tree, eg os.DirFS("web/static").
	Source fs.FS

	// OutputDir is the root of the export tree.
	OutputDir string

	// StaticDir and QuarantineDir are the names of the two asset subtrees
	// inside OutputDir.
	StaticDir     string
	QuarantineDir string

	Classifier *Classifier
	Normalizer *Normalizer
	Report     *Report

	// Binaries is filled in as assets are quarantined.
	Binaries BinaryMap

	placed map[string]Placement
	l      *zap.Logger
}

// NewCopier wires a copier for one run.
func NewCopier(cfg *Config, report *Report, normalizer *Normalizer) *Copier {
	return &Copier{
		Source:        cfg.StaticFS,
		OutputDir:     cfg.OutputDir,
		StaticDir:     cfg.StaticDir,
		QuarantineDir: cfg.QuarantineDir,
		Classifier:    cfg.Classifier(),
		Normalizer:    normalizer,
		Report:        report,
		Binaries:      BinaryMap{},
		placed:        map[string]Placement{},
		l:             cfg.Logger.Named("copier"),
	}
}

// Exists tells if rel names a regular file in the static source tree.
func (c *Copier) Exists(rel string) bool {
	clean, ok := cleanRel(rel)
	if !ok || c.Source == nil {
		return false
	}
	info, err := fs.Stat(c.Source, clean)
	return err == nil && !info.IsDir()
}

// Copy places a single asset and returns where it went.  Repeated calls for
// the same path return the cached placement without touching the source.
//
// A missing source is not an error for the caller: it is recorded in the
// report and a Missing placement is returned.  The error is only non-nil for
// failures that must stop the run (a text file that cannot be normalized).
func (c *Copier) Copy(rel string) (Placement, error) {
	clean, ok := cleanRel(rel)
	if ok {
		if p, found := c.placed[clean]; found {
			return p, nil
		}
	}
	if !ok || !c.Exists(clean) {
		c.Report.Error(KindMissing, rel, errors.Wrapf(ErrMissingAsset, "%s", rel))
		return Placement{Rel: rel, Output: rel, Kind: c.Classifier.Classify(rel), Missing: true}, nil
	}

	p := Placement{Rel: clean, Kind: c.Classifier.Classify(clean)}
	if p.Kind == AssetBinary {
		p.Quarantined = true
		p.Output = path.Join(c.QuarantineDir, clean)
	} else {
		p.Output = path.Join(c.StaticDir, clean)
	}

	dest := filepath.Join(c.OutputDir, filepath.FromSlash(p.Output))
	if err := c.copyFile(clean, dest); err != nil {
		// unreadable source or unwritable destination only loses this asset
		c.Report.Error(KindCopy, clean, err)
		p.Missing = true
		p.Output = rel
		c.placed[clean] = p
		return p, nil
	}

	if p.Quarantined {
		c.Binaries[clean] = p.Output
		c.Report.Info(KindQuarantine, clean, "moved to "+p.Output)
		metrics.AssetsQuarantinedCounter.Inc()
	} else if p.Kind == AssetText && c.Normalizer != nil {
		if err := c.Normalizer.Normalize(dest); err != nil {
			return p, err
		}
	}
	metrics.AssetsCopiedCounter.WithLabelValues(p.Kind.String()).Inc()
	c.l.Debug("copied asset", zap.String("rel", clean), zap.String("output", p.Output), zap.Stringer("kind", p.Kind))
	c.placed[clean] = p
	return p, nil
}

// Sweep copies every file of the static source tree, in lexical order.
func (c *Copier) Sweep() error {
	if c.Source == nil {
		return nil
	}
	return fs.WalkDir(c.Source, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			c.Report.Error(KindCopy, p, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		_, err = c.Copy(p)
		return err
	})
}

func (c *Copier) copyFile(rel, dest string) (err error) {
	src, err := c.Source.Open(rel)
	if err != nil {
		return errors.Wrapf(err, "opening %s", rel)
	}
	defer src.Close()

	if err = os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, "creating dir for %s", dest)
	}
	dst, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dest)
	}
	defer func() {
		err = multierr.Append(err, dst.Close())
	}()
	if _, err = io.Copy(dst, src); err != nil {
		return errors.Wrapf(err, "copying %s", rel)
	}
	return nil
}

// cleanRel turns a reference path into an fs.FS path.  It reports false for
// empty paths and anything that would escape the static root.
func cleanRel(rel string) (string, bool) {
	rel = strings.TrimLeft(rel, "/")
	if rel == "" {
		return "", false
	}
	clean := path.Clean(rel)
	if !fs.ValidPath(clean) || clean == "." {
		return "", false
	}
	return clean, true
}
