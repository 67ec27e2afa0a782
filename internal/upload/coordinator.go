// Package upload submits ready subtitle candidates to the subtitle
// database. The coordinator is strictly best-effort: each candidate
// settles on its own outcome and one failure never aborts the rest.
package upload

import (
	"context"
	"log/slog"
	"os"
	"time"

	"subflow/internal/catalog"
	"subflow/internal/config"
	"subflow/internal/logging"
	"subflow/internal/services"
	"subflow/internal/services/subdb"
)

// Uploader submits subtitle batches that share one identity.
type Uploader interface {
	Upload(ctx context.Context, identity catalog.MovieIdentity, subs []subdb.Submission) ([]subdb.Outcome, error)
}

// DuplicateChecker re-verifies a content hash right before submission.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, hash string) (*subdb.Existing, error)
}

// ProgressFunc is invoked after each candidate settles.
type ProgressFunc func(processed, total int, currentItem string)

// Outcome is the terminal result for one candidate.
type Outcome struct {
	Path     string
	Status   subdb.Status
	RemoteID string
	Reason   string
	Err      error
}

// Result summarizes one upload run.
type Result struct {
	Outcomes []Outcome
	Uploaded int
	Existing int
	Rejected int
	Failed   int
}

// Deps bundles what the coordinator needs. Config and Client are required.
type Deps struct {
	Config     *config.Config
	Client     Uploader
	Duplicates DuplicateChecker
	Logger     *slog.Logger
	Progress   ProgressFunc
}

// member ties a candidate back to its slot in the caller's batch.
type member struct {
	idx  int
	cand catalog.UploadCandidate
}

// Coordinator drives upload submission for a batch of candidates.
type Coordinator struct {
	deps   Deps
	logger *slog.Logger
}

// New constructs a Coordinator.
func New(deps Deps) (*Coordinator, error) {
	if deps.Config == nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "new", "config is required", nil)
	}
	if deps.Client == nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "new", "upload client is required", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "upload"),
	}, nil
}

// Upload submits the candidates, grouped so that candidates sharing one
// identity go out in a single call with the identity context sent once.
// Subtitle content is read from root. Progress fires once per settled
// candidate. Cancellation marks the not-yet-submitted remainder as failed
// and returns what settled so far.
func (c *Coordinator) Upload(ctx context.Context, root string, candidates []catalog.UploadCandidate) (Result, error) {
	total := len(candidates)
	outcomes := make([]Outcome, total)
	settled := make([]bool, total)
	processed := 0

	settle := func(idx int, out Outcome) {
		outcomes[idx] = out
		settled[idx] = true
		processed++
		if c.deps.Progress != nil {
			c.deps.Progress(processed, total, out.Path)
		}
	}

	// Groups keyed by identity, in first-seen order.
	var groupOrder []string
	groups := make(map[string][]member)

	for idx, cand := range candidates {
		path := candidatePath(cand)
		if missing := cand.Validate(); missing != "" {
			settle(idx, Outcome{
				Path:   path,
				Status: subdb.StatusRejected,
				Reason: "missing " + missing,
				Err:    services.Wrap(services.ErrValidation, "upload", "validate", "missing "+missing, nil),
			})
			continue
		}
		key := cand.GroupKey()
		if _, ok := groups[key]; !ok {
			groupOrder = append(groupOrder, key)
		}
		groups[key] = append(groups[key], member{idx: idx, cand: cand})
	}

	var runErr error
	for _, key := range groupOrder {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		c.uploadGroup(ctx, root, groups[key], settle)
	}

	if runErr != nil {
		for idx, cand := range candidates {
			if settled[idx] {
				continue
			}
			settle(idx, Outcome{
				Path: candidatePath(cand),
				Err:  services.Wrap(services.ErrTimeout, "upload", "submit", "run cancelled", runErr),
			})
		}
	}

	result := Result{Outcomes: outcomes}
	for _, out := range outcomes {
		switch {
		case out.Err != nil:
			result.Failed++
		case out.Status == subdb.StatusUploaded:
			result.Uploaded++
		case out.Status == subdb.StatusExists:
			result.Existing++
		case out.Status == subdb.StatusRejected:
			result.Rejected++
		default:
			result.Failed++
		}
	}
	return result, runErr
}

func (c *Coordinator) uploadGroup(ctx context.Context, root string, members []member, settle func(int, Outcome)) {
	identity := members[0].cand.Identity

	var pending []member
	var subs []subdb.Submission
	for _, m := range members {
		path := candidatePath(m.cand)

		if existing := c.verifyDuplicate(ctx, m.cand); existing != nil {
			settle(m.idx, Outcome{
				Path:     path,
				Status:   subdb.StatusExists,
				RemoteID: existing.RemoteID,
				Reason:   "already on server",
			})
			continue
		}

		content, err := os.ReadFile(catalog.Resolve(root, m.cand.Subtitle))
		if err != nil {
			settle(m.idx, Outcome{
				Path: path,
				Err:  services.Wrap(services.ErrIO, "upload", "read", "read "+path, err),
			})
			continue
		}
		pending = append(pending, m)
		subs = append(subs, subdb.Submission{
			FileName: m.cand.Subtitle.Name,
			Content:  content,
			Hash:     m.cand.Subtitle.ContentHash,
			Language: m.cand.Language,
			Options:  m.cand.Options,
		})
	}
	if len(pending) == 0 {
		return
	}

	var results []subdb.Outcome
	err := c.callExternal(ctx, func(ctx context.Context) error {
		var callErr error
		results, callErr = c.deps.Client.Upload(ctx, identity, subs)
		return callErr
	})
	if err != nil {
		c.logger.Warn("upload call failed",
			logging.String("imdb_id", identity.IMDBID),
			logging.Int("subtitles", len(subs)),
			logging.Error(err))
		for _, m := range pending {
			settle(m.idx, Outcome{Path: candidatePath(m.cand), Err: err})
		}
		return
	}

	byName := make(map[string]subdb.Outcome, len(results))
	for _, r := range results {
		byName[r.FileName] = r
	}
	for _, m := range pending {
		path := candidatePath(m.cand)
		r, ok := byName[m.cand.Subtitle.Name]
		if !ok {
			settle(m.idx, Outcome{
				Path: path,
				Err:  services.Wrap(services.ErrNetwork, "upload", "submit", "no result returned for "+m.cand.Subtitle.Name, nil),
			})
			continue
		}
		out := Outcome{Path: path, Status: r.Status, RemoteID: r.RemoteID, Reason: r.Reason}
		if r.Status == subdb.StatusUploaded {
			c.logger.Info("subtitle uploaded",
				logging.String(logging.FieldFile, path),
				logging.String("remote_id", r.RemoteID))
		}
		settle(m.idx, out)
	}
}

// verifyDuplicate returns the server-side entry when the subtitle already
// exists. The pipeline's cached answer is trusted only within the staleness
// window; otherwise the hash is re-checked at submission time. A failed
// re-check is logged and treated as unknown, submission proceeds and the
// server stays the final authority.
func (c *Coordinator) verifyDuplicate(ctx context.Context, cand catalog.UploadCandidate) *subdb.Existing {
	if dup := cand.Subtitle.Duplicate; dup != nil {
		if time.Since(dup.CheckedAt) <= c.deps.Config.DuplicateStaleness() {
			if dup.Exists {
				return &subdb.Existing{RemoteID: dup.RemoteID}
			}
			return nil
		}
	}
	if c.deps.Duplicates == nil {
		return nil
	}

	var existing *subdb.Existing
	err := c.callExternal(ctx, func(ctx context.Context) error {
		var callErr error
		existing, callErr = c.deps.Duplicates.CheckDuplicate(ctx, cand.Subtitle.ContentHash)
		return callErr
	})
	if err != nil {
		c.logger.Warn("duplicate re-check failed, proceeding with upload",
			logging.String(logging.FieldFile, candidatePath(cand)),
			logging.Error(err))
		return nil
	}
	return existing
}

func (c *Coordinator) callExternal(ctx context.Context, op func(context.Context) error) error {
	p := c.deps.Config.Pipeline
	policy := services.RetryPolicy{
		Attempts:     p.RetryAttempts,
		InitialDelay: time.Duration(p.RetryInitialSeconds) * time.Second,
		MaxDelay:     time.Duration(p.RetryMaxSeconds) * time.Second,
		Multiplier:   2,
	}
	return services.Retry(ctx, policy, services.IsRetryable, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.deps.Config.RequestTimeout())
		defer cancel()
		return op(ctx)
	})
}

func candidatePath(cand catalog.UploadCandidate) string {
	if cand.Subtitle == nil {
		return ""
	}
	return cand.Subtitle.Path
}
