package s3freeze

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Level of a report entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Kind says which part of the run produced an entry.
type Kind string

const (
	KindEncoding   Kind = "encoding"
	KindMissing    Kind = "missing"
	KindQuarantine Kind = "quarantine"
	KindSkipped    Kind = "skipped"
	KindForm       Kind = "form"
	KindCopy       Kind = "copy"
)

// Entry is one line of the run log.
type Entry struct {
	Level   Level  `json:"level"`
	Kind    Kind   `json:"kind"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	err     error
}

func (e Entry) String() string {
	return fmt.Sprintf("%-5s  %-10s  %s: %s", e.Level, e.Kind, e.Subject, e.Message)
}

// Report accumulates everything worth telling the operator about a run.
// Entries are logged as they are added and kept in order for the run log.
type Report struct {
	RunID       string   `json:"run_id"`
	Entries     []Entry  `json:"entries"`
	Pages       []string `json:"pages"`
	Quarantined []string `json:"quarantined"`

	l *zap.Logger
}

// NewReport creates an empty report with a fresh run id.
func NewReport(l *zap.Logger) *Report {
	if l == nil {
		l = zap.NewNop()
	}
	id := uuid.NewString()
	return &Report{RunID: id, l: l.With(zap.String("run", id))}
}

// Warn records a recoverable condition.
func (r *Report) Warn(kind Kind, subject, msg string) {
	r.add(Entry{Level: LevelWarn, Kind: kind, Subject: subject, Message: msg})
}

// Info records something worth listing in the summary that is not a problem.
func (r *Report) Info(kind Kind, subject, msg string) {
	r.add(Entry{Level: LevelInfo, Kind: kind, Subject: subject, Message: msg})
}

// Error records a recoverable failure together with its cause.
func (r *Report) Error(kind Kind, subject string, err error) {
	r.add(Entry{Level: LevelError, Kind: kind, Subject: subject, Message: err.Error(), err: err})
	_ = panicOrError(err)
}

func (r *Report) add(e Entry) {
	r.Entries = append(r.Entries, e)
	fields := []zap.Field{zap.String("kind", string(e.Kind)), zap.String("subject", e.Subject)}
	switch e.Level {
	case LevelError:
		r.l.Error(e.Message, append(fields, zap.Error(e.err))...)
	case LevelWarn:
		r.l.Warn(e.Message, fields...)
	default:
		r.l.Info(e.Message, fields...)
	}
}

// Filter returns the entries of the given kind.
func (r *Report) Filter(kind Kind) (out []Entry) {
	for _, e := range r.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return
}

// Count returns how many entries have the given level.
func (r *Report) Count(level Level) (n int) {
	for _, e := range r.Entries {
		if e.Level == level {
			n++
		}
	}
	return
}

// Err combines all recorded errors, or returns nil if there were none.
func (r *Report) Err() error {
	var err error
	for _, e := range r.Entries {
		if e.err != nil {
			err = multierr.Append(err, e.err)
		}
	}
	return err
}

// WriteText writes the plain text run log.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# s3freeze run %s: %d pages, %d quarantined, %d warnings, %d errors\n",
		r.RunID, len(r.Pages), len(r.Quarantined), r.Count(LevelWarn), r.Count(LevelError)); err != nil {
		return err
	}
	for _, e := range r.Entries {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the report as a JSON document.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// SaveText writes the run log to a file, creating parent directories.
func (r *Report) SaveText(path string) error {
	return r.save(path, r.WriteText)
}

// SaveJSON writes the JSON report to a file, creating parent directories.
func (r *Report) SaveJSON(path string) error {
	return r.save(path, r.WriteJSON)
}

func (r *Report) save(path string, write func(io.Writer) error) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating dir for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return write(f)
}
