package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"subflow/internal/cache"
	"subflow/internal/catalog"
	"subflow/internal/logging"
	"subflow/internal/oshash"
	"subflow/internal/pairing"
	"subflow/internal/services"
	"subflow/internal/tags"
)

// cachedIdentity is the cache payload for identification results, keyed by
// normalized filename so equivalently named files never re-query.
type cachedIdentity struct {
	Identity catalog.MovieIdentity `json:"identity"`
	Tags     *catalog.ReleaseTags  `json:"tags,omitempty"`
}

// cachedDuplicate is the cache payload for duplicate-check results.
type cachedDuplicate struct {
	Exists    bool      `json:"exists"`
	RemoteID  string    `json:"remote_id,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

func (o *Orchestrator) retryPolicy() services.RetryPolicy {
	p := o.deps.Config.Pipeline
	return services.RetryPolicy{
		Attempts:     p.RetryAttempts,
		InitialDelay: time.Duration(p.RetryInitialSeconds) * time.Second,
		MaxDelay:     time.Duration(p.RetryMaxSeconds) * time.Second,
		Multiplier:   2,
	}
}

// callExternal runs op under the stage retry policy with the configured
// per-call timeout. Only transient failures retry.
func (o *Orchestrator) callExternal(ctx context.Context, op func(context.Context) error) error {
	return services.Retry(ctx, o.retryPolicy(), services.IsRetryable, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, o.deps.Config.RequestTimeout())
		defer cancel()
		return op(callCtx)
	})
}

// runStage moves one (file, stage) pair through processing and settles it.
func (o *Orchestrator) runStage(ctx context.Context, r *run, rec *catalog.FileRecord, stage Stage, op func(context.Context) error) {
	if !o.sched.acquire(ctx) {
		return
	}
	defer o.sched.release()
	if err := r.states.begin(rec.Path, stage); err != nil {
		o.logger.Warn("stage did not start", logging.Error(err))
		return
	}
	ctx = services.WithFilePath(ctx, rec.Path)
	ctx = services.WithStage(ctx, string(stage))
	ctx = services.WithGeneration(ctx, r.gen)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, o.logger)

	logger.Debug("stage started")
	if err := op(ctx); err != nil {
		_ = r.states.fail(rec.Path, stage, err)
		if stage.Blocking(rec.Kind) {
			logger.Warn("stage failed", logging.Error(err))
		} else {
			logger.Debug("stage failed, continuing with partial data", logging.Error(err))
		}
		return
	}
	_ = r.states.complete(rec.Path, stage)
	logger.Debug("stage complete")
}

// runLocalStages performs the file-local work: content hashing and, for
// videos, metadata extraction. The two are independent and run together.
func (o *Orchestrator) runLocalStages(ctx context.Context, r *run, rec *catalog.FileRecord) {
	if rec.Kind == catalog.KindVideo {
		done := make(chan struct{})
		go func() {
			defer close(done)
			o.runStage(ctx, r, rec, StageMetadata, func(ctx context.Context) error {
				return o.extractMetadata(ctx, r, rec)
			})
		}()
		o.runStage(ctx, r, rec, StageHash, func(ctx context.Context) error {
			return o.hashVideo(ctx, r, rec)
		})
		<-done
		return
	}
	o.runStage(ctx, r, rec, StageHash, func(ctx context.Context) error {
		return o.hashSubtitle(ctx, r, rec)
	})
}

// runNetworkStages performs identification, tags, and the subtitle-only
// stages. localDone gates the stages that need the content hash.
func (o *Orchestrator) runNetworkStages(ctx context.Context, r *run, rec *catalog.FileRecord, localDone <-chan struct{}) {
	// Identity reuse: a subtitle waits for the video it follows (its
	// paired video, or a sibling video for orphans) instead of querying
	// on its own. The wait happens before any concurrency slot is claimed.
	var reused *catalog.MovieIdentity
	if rec.Kind == catalog.KindSubtitle {
		if fut, ok := r.futures[r.follow[rec.Path]]; ok {
			select {
			case <-fut.done:
			case <-ctx.Done():
				return
			}
			if fut.err == nil && fut.identity != nil {
				reused = fut.identity
			}
			// On a failed video the subtitle falls back to its own lookup.
		}
	}

	o.runStage(ctx, r, rec, StageIdentify, func(ctx context.Context) error {
		return o.identify(ctx, r, rec, reused)
	})
	o.runStage(ctx, r, rec, StageTags, func(ctx context.Context) error {
		return o.extractTags(ctx, r, rec)
	})

	if rec.Kind != catalog.KindSubtitle {
		return
	}
	select {
	case <-localDone:
	case <-ctx.Done():
		return
	}
	o.runStage(ctx, r, rec, StageLanguage, func(ctx context.Context) error {
		return o.detectLanguage(ctx, r, rec)
	})
	o.runStage(ctx, r, rec, StageDuplicate, func(ctx context.Context) error {
		return o.checkDuplicate(ctx, r, rec)
	})
}

func (o *Orchestrator) hashVideo(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	fp, size, err := oshash.HashVideo(ctx, catalog.Resolve(o.rootDir(), rec))
	if err != nil {
		return err
	}
	r.mu.Lock()
	rec.ContentHash = fp.String()
	rec.Size = size
	r.mu.Unlock()
	return nil
}

func (o *Orchestrator) hashSubtitle(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	content, err := o.readRecord(ctx, rec)
	if err != nil {
		return err
	}
	isSubtitle := catalog.LooksLikeSubtitle(content)
	hash := oshash.HashSubtitleText(content)

	r.mu.Lock()
	rec.ContentHash = hash
	rec.RemovalFlag = !isSubtitle
	r.mu.Unlock()

	if !isSubtitle {
		o.logger.Info("file is not a subtitle, flagged for removal",
			logging.String(logging.FieldFile, rec.Path))
	}
	return nil
}

func (o *Orchestrator) extractMetadata(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	info, err := o.deps.Probe(ctx, catalog.Resolve(o.rootDir(), rec))
	if err != nil {
		return err
	}
	r.mu.Lock()
	rec.Media = info
	r.mu.Unlock()
	return nil
}

func (o *Orchestrator) identify(ctx context.Context, r *run, rec *catalog.FileRecord, reused *catalog.MovieIdentity) error {
	if reused != nil {
		identity := *reused
		r.mu.Lock()
		rec.Identity = &identity
		r.mu.Unlock()
		return nil
	}

	err := o.lookupIdentity(ctx, r, rec)
	if fut, ok := r.futures[rec.Path]; ok {
		r.mu.Lock()
		identity := rec.Identity
		r.mu.Unlock()
		fut.settle(identity, err)
	}
	return err
}

func (o *Orchestrator) lookupIdentity(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	query := pairing.QueryName(rec.Path)
	normalized := pairing.NormalizeBase(query)
	cacheKey := cache.Key("namer", normalized)

	var cached cachedIdentity
	if o.cacheGet(ctx, cacheKey, &cached) {
		o.applyIdentity(r, rec, cached.Identity, cached.Tags)
		return nil
	}

	var best cachedIdentity
	err := o.callExternal(ctx, func(ctx context.Context) error {
		candidates, err := o.deps.Identifier.Identify(ctx, query, dirContext(rec))
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			return services.Wrap(services.ErrNotFound, "pipeline", "identify", "no candidates for "+query, nil)
		}
		best = cachedIdentity{Identity: candidates[0].Identity, Tags: candidates[0].Tags}
		return nil
	})
	if err != nil {
		return err
	}

	o.applyIdentity(r, rec, best.Identity, best.Tags)
	o.cacheSet(ctx, cacheKey, best, 0)
	return nil
}

func (o *Orchestrator) applyIdentity(r *run, rec *catalog.FileRecord, identity catalog.MovieIdentity, inline *catalog.ReleaseTags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := identity
	rec.Identity = &id
	if inline != nil && rec.Tags == nil {
		t := *inline
		rec.Tags = &t
	}
}

// extractTags resolves release tags: inline tags from identification win,
// then the offline parser, then the remote service as a last resort.
func (o *Orchestrator) extractTags(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	r.mu.Lock()
	already := rec.Tags != nil
	r.mu.Unlock()
	if already {
		return nil
	}

	if parsed := tagsFromName(rec.Name); parsed != nil {
		r.mu.Lock()
		rec.Tags = parsed
		r.mu.Unlock()
		return nil
	}

	if o.deps.Tagger == nil {
		// Nothing extractable offline and no fallback configured. Tags are
		// optional metadata; complete with none.
		return nil
	}

	// Keyed by the raw name, not the normalized one: normalization strips
	// the release tokens the tagger parses.
	cacheKey := cache.Key("tagger", rec.Name)
	var cached catalog.ReleaseTags
	if o.cacheGet(ctx, cacheKey, &cached) {
		r.mu.Lock()
		rec.Tags = &cached
		r.mu.Unlock()
		return nil
	}

	var remote catalog.ReleaseTags
	err := o.callExternal(ctx, func(ctx context.Context) error {
		var err error
		remote, err = o.deps.Tagger.Extract(ctx, rec.Name)
		return err
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	rec.Tags = &remote
	r.mu.Unlock()
	o.cacheSet(ctx, cacheKey, remote, 0)
	return nil
}

func (o *Orchestrator) detectLanguage(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	r.mu.Lock()
	removed := rec.RemovalFlag
	hash := rec.ContentHash
	r.mu.Unlock()
	if removed {
		// Flagged as not actually a subtitle; nothing to classify.
		return nil
	}
	if o.deps.Detector == nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "language", "language detection is not configured", nil)
	}

	cacheKey := cache.Key("langdetect", hash)
	var cached string
	if hash != "" && o.cacheGet(ctx, cacheKey, &cached) && cached != "" {
		r.mu.Lock()
		rec.Language = cached
		r.mu.Unlock()
		return nil
	}

	content, err := o.readRecord(ctx, rec)
	if err != nil {
		return err
	}
	var top string
	err = o.callExternal(ctx, func(ctx context.Context) error {
		ranked, err := o.deps.Detector.Detect(ctx, content)
		if err != nil {
			return err
		}
		if len(ranked) == 0 {
			return services.Wrap(services.ErrNotFound, "pipeline", "language", "detector returned no languages", nil)
		}
		top = ranked[0].Language
		return nil
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	rec.Language = top
	r.mu.Unlock()
	if hash != "" {
		o.cacheSet(ctx, cacheKey, top, 0)
	}
	return nil
}

func (o *Orchestrator) checkDuplicate(ctx context.Context, r *run, rec *catalog.FileRecord) error {
	r.mu.Lock()
	removed := rec.RemovalFlag
	hash := rec.ContentHash
	r.mu.Unlock()
	if removed {
		return nil
	}
	if hash == "" {
		return services.Wrap(services.ErrValidation, "pipeline", "duplicate", "no content hash for duplicate check", nil)
	}
	if o.deps.Duplicates == nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "duplicate", "duplicate check is not configured", nil)
	}

	cacheKey := cache.Key("subdb-exists", hash)
	var cached cachedDuplicate
	if o.cacheGet(ctx, cacheKey, &cached) {
		o.applyDuplicate(r, rec, cached)
		return nil
	}

	var result cachedDuplicate
	err := o.callExternal(ctx, func(ctx context.Context) error {
		existing, err := o.deps.Duplicates.CheckDuplicate(ctx, hash)
		if err != nil {
			return err
		}
		result = cachedDuplicate{CheckedAt: time.Now()}
		if existing != nil {
			result.Exists = true
			result.RemoteID = existing.RemoteID
		}
		return nil
	})
	if err != nil {
		return err
	}

	o.applyDuplicate(r, rec, result)
	// Duplicate answers go stale quickly; cache them only for the
	// re-verification window.
	o.cacheSet(ctx, cacheKey, result, o.deps.Config.DuplicateStaleness())
	return nil
}

func (o *Orchestrator) applyDuplicate(r *run, rec *catalog.FileRecord, d cachedDuplicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.Duplicate = &catalog.DuplicateStatus{
		Exists:    d.Exists,
		RemoteID:  d.RemoteID,
		CheckedAt: d.CheckedAt,
	}
}

func (o *Orchestrator) readRecord(ctx context.Context, rec *catalog.FileRecord) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "read", "cancelled", err)
	}
	content, err := os.ReadFile(catalog.Resolve(o.rootDir(), rec))
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "pipeline", "read", "read file", err)
	}
	return content, nil
}

func (o *Orchestrator) cacheGet(ctx context.Context, key string, out any) bool {
	if o.deps.Cache == nil {
		return false
	}
	ok, err := o.deps.Cache.GetJSON(ctx, key, out)
	if err != nil {
		o.logger.Debug("cache read failed", logging.Error(err))
		return false
	}
	return ok
}

func (o *Orchestrator) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	if o.deps.Cache == nil {
		return
	}
	if err := o.deps.Cache.SetJSON(ctx, key, value, ttl); err != nil {
		o.logger.Debug("cache write failed", logging.Error(err))
	}
}

// tagsFromName runs the offline parser, returning nil when it extracted
// nothing useful.
func tagsFromName(name string) *catalog.ReleaseTags {
	parsed := tags.Parse(name)
	if parsed.Empty() {
		return nil
	}
	return &parsed
}
