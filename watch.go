package s3freeze

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gfn "github.com/panyam/goutils/fn"
	"github.com/pkg/errors"
	"github.com/radovskyb/watcher"
	"go.uber.org/zap"
)

// Watcher re-runs a full export whenever files under its folders change.
// Changes are collected and flushed at most once per BuildFrequency so a
// burst of saves results in a single rebuild.
type Watcher struct {
	Exporter *Exporter

	// Folders to watch recursively, eg the templates and static root
	Folders []string

	// How often collected changes are flushed into a rebuild.  Defaults to 1s.
	BuildFrequency time.Duration

	// How often the folders are polled.  Defaults to 100ms.
	PollInterval time.Duration

	// Optional filter for paths that must not trigger a rebuild.  The
	// export output directory is always ignored.
	IgnoreFileFunc func(path string) bool

	// Called after every rebuild
	OnRebuild func(ctx *ExportContext, changed []string, err error)

	l *zap.Logger
}

// NewWatcher creates a watcher that rebuilds with exp.
func NewWatcher(exp *Exporter, folders ...string) *Watcher {
	return &Watcher{
		Exporter:       exp,
		Folders:        folders,
		BuildFrequency: time.Second,
		PollInterval:   100 * time.Millisecond,
		l:              exp.Config.Logger.Named("watcher"),
	}
}

func (w *Watcher) ignored(path string) bool {
	out, err := filepath.Abs(w.Exporter.Config.OutputDir)
	if err == nil {
		if abs, err := filepath.Abs(path); err == nil && (abs == out || strings.HasPrefix(abs, out+string(filepath.Separator))) {
			return true
		}
	}
	return w.IgnoreFileFunc != nil && w.IgnoreFileFunc(path)
}

// Run watches until ctx is cancelled.  It does not run an initial export.
func (w *Watcher) Run(ctx context.Context) error {
	wt := watcher.New()
	for _, folder := range w.Folders {
		if err := wt.AddRecursive(folder); err != nil {
			return errors.Wrapf(err, "watching %s", folder)
		}
	}

	pollInterval := w.PollInterval
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	started := make(chan error, 1)
	go func() {
		started <- wt.Start(pollInterval)
	}()
	// Close is a no-op until Start has marked the watcher running
	wt.Wait()
	defer w.shutdown(wt, started)

	buildFreq := w.BuildFrequency
	if buildFreq <= 0 {
		buildFreq = time.Second
	}
	ticker := time.NewTicker(buildFreq)
	defer ticker.Stop()

	w.l.Info("watching for changes", zap.Strings("folders", w.Folders))
	changed := map[string]bool{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-started:
			// Start only returns early on a closed watcher
			started <- err
			return errors.Wrap(err, "watcher stopped")
		case event := <-wt.Event:
			if event.IsDir() || w.ignored(event.Path) {
				continue
			}
			w.l.Debug("change detected", zap.String("op", event.Op.String()), zap.String("path", event.Path))
			changed[event.Path] = true
		case err := <-wt.Error:
			w.l.Warn("watcher error", zap.Error(err))
		case <-wt.Closed:
			return nil
		case <-ticker.C:
			if len(changed) == 0 {
				continue
			}
			files := gfn.MapKeys(changed)
			sort.Strings(files)
			changed = map[string]bool{}
			w.l.Info("rebuilding", zap.Strings("changed", files))
			ectx, err := w.Exporter.Run()
			if err != nil {
				w.l.Error("rebuild failed", zap.Error(err))
			}
			if w.OnRebuild != nil {
				w.OnRebuild(ectx, files, err)
			}
		}
	}
}

// shutdown closes the watcher and drains its channels until Start returns.
func (w *Watcher) shutdown(wt *watcher.Watcher, started chan error) {
	go wt.Close()
	for {
		select {
		case <-wt.Event:
		case <-wt.Error:
		case <-started:
			return
		}
	}
}
