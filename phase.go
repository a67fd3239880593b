package s3freeze

// ExportPhase is a state of an export run.
// Phases execute in order: Init → AssetSweep → RouteRender → Done
type ExportPhase int

const (
	// PhaseInit wipes and recreates the output directory
	PhaseInit ExportPhase = iota

	// PhaseAssetSweep copies the static source tree into static/ and the quarantine dir
	PhaseAssetSweep

	// PhaseRouteRender renders, rewrites and writes one file per exportable route
	PhaseRouteRender

	// PhaseDone summarizes quarantined assets, warnings and errors
	PhaseDone
)

func (p ExportPhase) String() string {
	switch p {
	case PhaseInit:
		return "Init"
	case PhaseAssetSweep:
		return "AssetSweep"
	case PhaseRouteRender:
		return "RouteRender"
	case PhaseDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// PageResult describes one page written during PhaseRouteRender.
type PageResult struct {
	Route  Route
	Output string
	Info   PageInfo
}

// ExportContext holds state that persists across phases during a single run.
type ExportContext struct {
	Config       *Config
	CurrentPhase ExportPhase
	Report       *Report

	// Quarantined assets, filled in by the copier
	Binaries BinaryMap

	// Pages written so far
	Pages []PageResult

	// Eligible routes that were not exported
	Skipped []RenderResult

	hooks *HookRegistry
}

// AddPage records a written page and notifies hooks.
func (ctx *ExportContext) AddPage(page PageResult) {
	ctx.Pages = append(ctx.Pages, page)
	ctx.hooks.emit(hookPageWritten, ctx, page)
}

// AddSkipped records a route that could not be exported and notifies hooks.
func (ctx *ExportContext) AddSkipped(res RenderResult) {
	ctx.Skipped = append(ctx.Skipped, res)
	ctx.hooks.emit(hookRouteSkipped, ctx, res)
}

type hookEvent int

const (
	hookPhaseStart hookEvent = iota
	hookPhaseEnd
	hookPageWritten
	hookRouteSkipped
)

// hookKey selects the callbacks for an event in a phase.  Page and skip
// events only happen in PhaseRouteRender.
type hookKey struct {
	event hookEvent
	phase ExportPhase
}

// HookRegistry manages lightweight hooks for observing a run.
// Callbacks run synchronously on the exporting goroutine, in registration
// order.
type HookRegistry struct {
	hooks map[hookKey][]func(*ExportContext, any)
}

// NewHookRegistry creates a new hook registry.
func NewHookRegistry() *HookRegistry {
	return &HookRegistry{hooks: map[hookKey][]func(*ExportContext, any){}}
}

// OnPhaseStart registers a callback to run when a phase starts.
func (h *HookRegistry) OnPhaseStart(phase ExportPhase, fn func(*ExportContext)) {
	h.on(hookKey{hookPhaseStart, phase}, func(ctx *ExportContext, _ any) { fn(ctx) })
}

// OnPhaseEnd registers a callback to run when a phase ends.
func (h *HookRegistry) OnPhaseEnd(phase ExportPhase, fn func(*ExportContext)) {
	h.on(hookKey{hookPhaseEnd, phase}, func(ctx *ExportContext, _ any) { fn(ctx) })
}

// OnPageWritten registers a callback to run after each page file is written.
func (h *HookRegistry) OnPageWritten(fn func(*ExportContext, PageResult)) {
	h.on(hookKey{hookPageWritten, PhaseRouteRender}, func(ctx *ExportContext, v any) { fn(ctx, v.(PageResult)) })
}

// OnRouteSkipped registers a callback for eligible routes that were not
// exported: failed renders, unparsable pages and pages that could not be
// written.
func (h *HookRegistry) OnRouteSkipped(fn func(*ExportContext, RenderResult)) {
	h.on(hookKey{hookRouteSkipped, PhaseRouteRender}, func(ctx *ExportContext, v any) { fn(ctx, v.(RenderResult)) })
}

func (h *HookRegistry) on(key hookKey, fn func(*ExportContext, any)) {
	h.hooks[key] = append(h.hooks[key], fn)
}

func (h *HookRegistry) emit(event hookEvent, ctx *ExportContext, arg any) {
	if h == nil {
		return
	}
	for _, fn := range h.hooks[hookKey{event, ctx.CurrentPhase}] {
		fn(ctx, arg)
	}
}
