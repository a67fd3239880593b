package s3freeze

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/panyam/s3freeze/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// The Exporter freezes a live site into a static tree.  Every call to Run is
// a full rebuild: the output directory is wiped, the static tree is swept
// into place and each exportable route is rendered, rewritten and written.
//
// Runs are sequential.  Two runs on one Exporter are serialized; two
// processes exporting into the same directory must be avoided by the caller.
type Exporter struct {
	Config *Config

	// Optional observers of the run
	Hooks *HookRegistry

	mu sync.Mutex
	l  *zap.Logger
}

// NewExporter validates cfg (calling Init on it) and returns an exporter.
func NewExporter(cfg *Config) (*Exporter, error) {
	cfg.Init()
	if cfg.Routes == nil {
		return nil, errors.Wrap(ErrSetup, "no route table configured")
	}
	if cfg.Handler == nil {
		return nil, errors.Wrap(ErrSetup, "no handler configured")
	}
	return &Exporter{Config: cfg, Hooks: NewHookRegistry(), l: cfg.Logger.Named("exporter")}, nil
}

// Run performs one export.  The returned error is only set for failures that
// abort the whole run: the output directory could not be prepared, the route
// table could not be read, or a text file could not be normalized.  Route
// and asset problems end up in the context's Report instead.
func (e *Exporter) Run() (ctx *ExportContext, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.Config
	report := NewReport(e.l)
	ctx = &ExportContext{Config: cfg, Report: report, hooks: e.Hooks}
	l := e.l.With(zap.String("run", report.RunID))
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
			l.Error("export aborted", zap.Stringer("phase", ctx.CurrentPhase), zap.Error(err))
		}
		metrics.ExportRunsCounter.WithLabelValues(result).Inc()
		metrics.ExportDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	e.enter(ctx, PhaseInit)
	if err = e.prepareOutput(); err != nil {
		return ctx, err
	}
	e.leave(ctx)

	normalizer := NewNormalizer(cfg.Classifier(), report, cfg.Logger)
	normalizer.Fallback = cfg.Fallback
	copier := NewCopier(cfg, report, normalizer)
	rewriter := NewRewriter(cfg, copier)
	ctx.Binaries = copier.Binaries

	e.enter(ctx, PhaseAssetSweep)
	if err = copier.Sweep(); err != nil {
		return ctx, err
	}
	e.leave(ctx)

	e.enter(ctx, PhaseRouteRender)
	routes, err := cfg.Routes.Routes()
	if err != nil {
		return ctx, errors.Wrapf(ErrSetup, "reading route table: %v", err)
	}
	renderer := NewRenderer(cfg.Handler, cfg.Logger)
	written := map[string]string{}
	for _, route := range routes {
		if !route.Exportable() {
			l.Debug("route not exportable", zap.String("pattern", route.Pattern),
				zap.Strings("methods", route.Methods), zap.Strings("params", route.Params))
			continue
		}
		name := OutputName(route.Pattern)
		if prev, dup := written[name]; dup {
			l.Debug("route already exported", zap.String("pattern", route.Pattern), zap.String("as", prev))
			continue
		}
		if err = e.exportRoute(ctx, renderer, rewriter, normalizer, route); err != nil {
			return ctx, err
		}
		written[name] = route.Pattern
	}
	e.leave(ctx)

	e.enter(ctx, PhaseDone)
	report.Quarantined = ctx.Binaries.Sorted()
	for _, p := range ctx.Pages {
		report.Pages = append(report.Pages, p.Output)
	}
	for _, rel := range report.Quarantined {
		l.Info("moved binary file", zap.String("rel", rel), zap.String("to", ctx.Binaries[rel]))
	}
	l.Info("export finished",
		zap.String("output", cfg.OutputDir),
		zap.Int("pages", len(ctx.Pages)),
		zap.Int("skipped", len(ctx.Skipped)),
		zap.Int("quarantined", len(report.Quarantined)),
		zap.Int("warnings", report.Count(LevelWarn)),
		zap.Int("errors", report.Count(LevelError)),
		zap.Duration("took", time.Since(start)),
	)
	if cfg.RunLog != "" {
		if lerr := report.SaveText(cfg.RunLog); lerr != nil {
			l.Error("could not write run log", zap.String("path", cfg.RunLog), zap.Error(lerr))
		}
	}
	e.leave(ctx)
	return ctx, nil
}

func (e *Exporter) exportRoute(ctx *ExportContext, renderer *Renderer, rewriter *Rewriter, normalizer *Normalizer, route Route) error {
	cfg := e.Config
	report := ctx.Report

	res := renderer.Render(route)
	if !res.OK() {
		report.Warn(KindSkipped, route.Pattern, res.Err.Error())
		metrics.RoutesSkippedCounter.WithLabelValues(skipReason(res.Err)).Inc()
		ctx.AddSkipped(res)
		return nil
	}

	name := OutputName(route.Pattern)
	body, info, err := rewriter.Rewrite(name, res.Body)
	if err != nil {
		if errors.Is(err, ErrEncoding) {
			return err
		}
		e.skip(ctx, res, "rewrite", err)
		return nil
	}

	dest := filepath.Join(cfg.OutputDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		e.skip(ctx, res, "write", errors.Wrapf(err, "creating dir for %s", name))
		return nil
	}
	if err := os.WriteFile(dest, body, 0644); err != nil {
		e.skip(ctx, res, "write", errors.Wrapf(err, "writing %s", name))
		return nil
	}
	if err := normalizer.Normalize(dest); err != nil {
		return err
	}
	if info.HasForm {
		report.Warn(KindForm, name, "contains a form which will not submit in the static export")
	}
	metrics.PagesExportedCounter.Inc()
	ctx.AddPage(PageResult{Route: route, Output: name, Info: info})
	return nil
}

// prepareOutput wipes the output directory and recreates it with its two
// asset subtrees.
func (e *Exporter) prepareOutput() error {
	cfg := e.Config
	out := filepath.Clean(cfg.OutputDir)
	if out == "." || out == string(filepath.Separator) {
		return errors.Wrapf(ErrSetup, "refusing to wipe %q", cfg.OutputDir)
	}
	if err := os.RemoveAll(out); err != nil {
		return errors.Wrapf(ErrSetup, "clearing %s: %v", out, err)
	}
	for _, dir := range []string{out, filepath.Join(out, cfg.StaticDir), filepath.Join(out, cfg.QuarantineDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(ErrSetup, "creating %s: %v", dir, err)
		}
	}
	return nil
}

// skip records a rendered route that could not be turned into a page.
func (e *Exporter) skip(ctx *ExportContext, res RenderResult, reason string, err error) {
	res.Err = err
	ctx.Report.Error(KindSkipped, res.Route.Pattern, err)
	metrics.RoutesSkippedCounter.WithLabelValues(reason).Inc()
	ctx.AddSkipped(res)
}

func (e *Exporter) enter(ctx *ExportContext, phase ExportPhase) {
	ctx.CurrentPhase = phase
	e.l.Debug("phase start", zap.Stringer("phase", phase))
	ctx.hooks.emit(hookPhaseStart, ctx, nil)
}

func (e *Exporter) leave(ctx *ExportContext) {
	ctx.hooks.emit(hookPhaseEnd, ctx, nil)
}

func skipReason(err error) string {
	if errors.Is(err, ErrStatus) {
		return "status"
	}
	return "panic"
}
