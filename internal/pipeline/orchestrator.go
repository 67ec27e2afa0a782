package pipeline

import (
	"context"
	"log/slog"
	"path"
	"sort"
	"sync"
	"time"

	"subflow/internal/cache"
	"subflow/internal/catalog"
	"subflow/internal/config"
	"subflow/internal/logging"
	"subflow/internal/mediainfo"
	"subflow/internal/pairing"
	"subflow/internal/services"
	"subflow/internal/services/langdetect"
	"subflow/internal/services/namer"
	"subflow/internal/services/subdb"
)

// Identifier resolves filenames to ranked movie identities.
type Identifier interface {
	Identify(ctx context.Context, query, dirContext string) ([]namer.Candidate, error)
	Search(ctx context.Context, title string) ([]namer.Candidate, error)
}

// TagExtractor is the remote tag parsing fallback.
type TagExtractor interface {
	Extract(ctx context.Context, filename string) (catalog.ReleaseTags, error)
}

// LanguageDetector classifies subtitle content.
type LanguageDetector interface {
	Detect(ctx context.Context, content []byte) ([]langdetect.Scored, error)
}

// DuplicateChecker looks up subtitle hashes server-side.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, hash string) (*subdb.Existing, error)
}

// ProbeFunc extracts technical metadata from a video file.
type ProbeFunc func(ctx context.Context, path string) (*catalog.MediaInfo, error)

// Deps bundles everything an Orchestrator needs. Config and Identifier are
// required; a nil Cache disables caching, a nil Logger discards logs.
type Deps struct {
	Config     *config.Config
	Cache      *cache.Store
	Identifier Identifier
	Tagger     TagExtractor
	Detector   LanguageDetector
	Duplicates DuplicateChecker
	Probe      ProbeFunc
	Logger     *slog.Logger
}

// Orchestrator owns the per-file state machines for the current file set.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
	sched  *scheduler

	mu      sync.Mutex
	root    string
	current *run
}

// identFuture is a shared identification result for one video, used so the
// subtitles that follow it reuse its identity instead of re-querying. The
// future is registered at schedule time, before any task runs, which also
// prevents duplicate in-flight requests for one movie.
type identFuture struct {
	once     sync.Once
	done     chan struct{}
	identity *catalog.MovieIdentity
	err      error
}

func newIdentFuture() *identFuture {
	return &identFuture{done: make(chan struct{})}
}

func (f *identFuture) settle(identity *catalog.MovieIdentity, err error) {
	f.once.Do(func() {
		f.identity = identity
		f.err = err
		close(f.done)
	})
}

// run holds everything belonging to one generation. A new drop builds a
// fresh run; tasks from a superseded run keep mutating their own records
// and state table, which nothing observes anymore.
type run struct {
	gen    uint64
	states *stateTable

	mu      sync.Mutex
	records map[string]*catalog.FileRecord
	order   []string
	pair    pairing.Result
	futures map[string]*identFuture
	follow  map[string]string
}

// New constructs an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "config is required", nil)
	}
	if deps.Identifier == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "identifier client is required", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Probe == nil {
		binary := deps.Config.FFprobeBinary()
		deps.Probe = func(ctx context.Context, path string) (*catalog.MediaInfo, error) {
			return mediainfo.Extract(ctx, binary, path)
		}
	}
	return &Orchestrator{
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		sched:  newScheduler(deps.Config.Pipeline.Concurrency),
	}, nil
}

// SetRoot fixes the directory all record paths are resolved against.
func (o *Orchestrator) SetRoot(root string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.root = root
}

// Start replaces the current file set: the previous generation is
// cancelled, its late completions are discarded, and stage tasks for the
// new set are scheduled. Returns the new generation.
func (o *Orchestrator) Start(ctx context.Context, files []*catalog.FileRecord) uint64 {
	gen, runCtx := o.sched.nextGeneration(ctx)

	r := &run{
		gen:     gen,
		states:  newStateTable(),
		records: make(map[string]*catalog.FileRecord, len(files)),
		futures: make(map[string]*identFuture),
		follow:  make(map[string]string),
		pair:    pairing.Pair(files),
	}
	for _, f := range files {
		if f.Kind == catalog.KindOther {
			continue
		}
		r.records[f.Path] = f
		r.order = append(r.order, f.Path)
		r.states.register(f.Path, StagesFor(f.Kind))
	}
	sort.Strings(r.order)

	// One identity future per video. A paired subtitle follows its own
	// group's video; an orphan follows the first-sorted video of its
	// directory when one exists, otherwise it queries on its own.
	dirVideo := make(map[string]string)
	for _, g := range r.pair.Groups {
		r.futures[g.Video.Path] = newIdentFuture()
		for _, s := range g.Subtitles {
			r.follow[s.Path] = g.Video.Path
		}
		if first, ok := dirVideo[g.Video.Dir()]; !ok || g.Video.Path < first {
			dirVideo[g.Video.Dir()] = g.Video.Path
		}
	}
	for _, orphan := range r.pair.Orphans {
		if videoPath, ok := dirVideo[orphan.Dir()]; ok {
			r.follow[orphan.Path] = videoPath
		}
	}

	o.mu.Lock()
	o.current = r
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "file set accepted",
		logging.Uint64(logging.FieldGeneration, gen),
		logging.Int("files", len(r.order)),
		logging.Int("groups", len(r.pair.Groups)),
		logging.Int("orphans", len(r.pair.Orphans)))

	stagger := o.deps.Config.StaggerInterval()
	for idx, recPath := range r.order {
		rec := r.records[recPath]
		localDone := make(chan struct{})
		o.sched.schedule(runCtx, gen, 0, func(ctx context.Context) {
			defer close(localDone)
			o.runLocalStages(ctx, r, rec)
		})
		delay := time.Duration(idx) * stagger
		o.sched.schedule(runCtx, gen, delay, func(ctx context.Context) {
			o.runNetworkStages(ctx, r, rec, localDone)
		})
	}
	return gen
}

// Wait blocks until every task of gen has settled or been cancelled.
func (o *Orchestrator) Wait(gen uint64) {
	o.sched.wait(gen)
}

// Process replaces the file set and drives every stage to a terminal
// state, blocking until done or ctx is cancelled.
func (o *Orchestrator) Process(ctx context.Context, files []*catalog.FileRecord) error {
	gen := o.Start(ctx, files)
	o.Wait(gen)
	return ctx.Err()
}

// Reset cancels all in-flight work and discards the current file set
// entirely. Entities are never partially retained across drops.
func (o *Orchestrator) Reset() {
	o.sched.cancelGeneration(o.sched.current())
	o.mu.Lock()
	o.current = nil
	o.mu.Unlock()
}

// Generation returns the active generation tag.
func (o *Orchestrator) Generation() uint64 {
	return o.sched.current()
}

// FileStatus is one file's observable pipeline state.
type FileStatus struct {
	Record *catalog.FileRecord
	Stages map[Stage]StageState
}

// Snapshot copies the current per-file state. Records are deep copies and
// safe to hold across further pipeline progress.
func (o *Orchestrator) Snapshot() []FileStatus {
	r := o.currentRun()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FileStatus, 0, len(r.order))
	for _, recPath := range r.order {
		rec := r.records[recPath]
		out = append(out, FileStatus{
			Record: rec.Clone(),
			Stages: r.states.snapshot(recPath, StagesFor(rec.Kind)),
		})
	}
	return out
}

// Pairing returns the pairing result for the current file set.
func (o *Orchestrator) Pairing() pairing.Result {
	r := o.currentRun()
	if r == nil {
		return pairing.Result{}
	}
	return r.pair
}

// ResolveIdentity is the manual override path: the user picked an identity
// for a file whose automatic identification failed. The identify stage is
// forced complete with the chosen identity.
func (o *Orchestrator) ResolveIdentity(filePath string, identity catalog.MovieIdentity) error {
	r := o.currentRun()
	if r == nil {
		return services.Wrap(services.ErrValidation, "pipeline", "resolve_identity", "no active file set", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[filePath]
	if !ok {
		return services.Wrap(services.ErrNotFound, "pipeline", "resolve_identity", "unknown file "+filePath, nil)
	}
	rec.Identity = &identity
	r.states.markComplete(filePath, StageIdentify)
	o.logger.Info("identity resolved manually",
		logging.String(logging.FieldFile, filePath),
		logging.String("imdb_id", identity.IMDBID))
	return nil
}

// Search exposes the manual identification search to the UI layer.
func (o *Orchestrator) Search(ctx context.Context, title string) ([]namer.Candidate, error) {
	return o.deps.Identifier.Search(ctx, title)
}

// UploadCandidates builds immutable candidates from every subtitle whose
// required stages completed with a valid identity and language.
func (o *Orchestrator) UploadCandidates(options catalog.UploadOptions) []catalog.UploadCandidate {
	r := o.currentRun()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var candidates []catalog.UploadCandidate
	for _, recPath := range r.order {
		rec := r.records[recPath]
		if !rec.UploadReady() {
			continue
		}
		clone := rec.Clone()
		candidates = append(candidates, catalog.UploadCandidate{
			Subtitle: clone,
			Identity: *clone.Identity,
			Language: clone.Language,
			Options:  options,
		})
	}
	return candidates
}

func (o *Orchestrator) currentRun() *run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

func (o *Orchestrator) rootDir() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.root
}

// dirContext returns the directory name used as identification context.
func dirContext(rec *catalog.FileRecord) string {
	dir := rec.Dir()
	if dir == "." || dir == "" {
		return ""
	}
	return path.Base(dir)
}
