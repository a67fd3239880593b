package s3freeze

import (
	"os"
	"unicode/utf8"

	"github.com/panyam/s3freeze/metrics"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"go.uber.org/zap"
)

// Normalizer makes sure text files in the output tree are valid UTF-8.
//
// Files that are not UTF-8 are assumed to be in the fallback encoding
// (ISO-8859-1 by default), which maps every byte to a code point, so the
// conversion itself can never fail on input.
type Normalizer struct {
	Classifier *Classifier
	Fallback   encoding.Encoding
	Report     *Report

	l *zap.Logger
}

// NewNormalizer creates a normalizer with the ISO-8859-1 fallback.
func NewNormalizer(c *Classifier, report *Report, l *zap.Logger) *Normalizer {
	if l == nil {
		l = zap.NewNop()
	}
	return &Normalizer{
		Classifier: c,
		Fallback:   charmap.ISO8859_1,
		Report:     report,
		l:          l.Named("normalizer"),
	}
}

// Normalize checks the file at path and rewrites it as UTF-8 if needed.
// Media and binary files are never touched.  The returned error is only
// non-nil when the file could not be read or rewritten.
func (n *Normalizer) Normalize(path string) error {
	if n.Classifier != nil && n.Classifier.Classify(path) != AssetText {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(ErrEncoding, "reading %s: %v", path, err)
	}
	if utf8.Valid(data) {
		return nil
	}

	converted, err := n.Fallback.NewDecoder().Bytes(data)
	if err != nil {
		return errors.Wrapf(ErrEncoding, "decoding %s: %v", path, err)
	}
	if !utf8.Valid(converted) {
		return errors.Wrapf(ErrEncoding, "decoded %s is still not utf-8", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(ErrEncoding, "stat %s: %v", path, err)
	}
	if err := os.WriteFile(path, converted, info.Mode().Perm()); err != nil {
		return errors.Wrapf(ErrEncoding, "rewriting %s: %v", path, err)
	}
	metrics.EncodingConversionsCounter.Inc()
	n.l.Debug("converted to utf-8", zap.String("path", path), zap.Int("bytes", len(converted)))
	if n.Report != nil {
		n.Report.Warn(KindEncoding, path, "converted from "+encodingName(n.Fallback)+" to utf-8")
	}
	return nil
}

func encodingName(e encoding.Encoding) string {
	if cm, ok := e.(*charmap.Charmap); ok {
		return cm.String()
	}
	return "fallback encoding"
}
