package upload

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"subflow/internal/catalog"
	"subflow/internal/config"
	"subflow/internal/services"
	"subflow/internal/services/subdb"
	"subflow/internal/testsupport"
)

type fakeUploader struct {
	mu    sync.Mutex
	calls []uploadCall
	fn    func(identity catalog.MovieIdentity, subs []subdb.Submission) ([]subdb.Outcome, error)
}

type uploadCall struct {
	identity catalog.MovieIdentity
	subs     []subdb.Submission
}

func (f *fakeUploader) Upload(ctx context.Context, identity catalog.MovieIdentity, subs []subdb.Submission) ([]subdb.Outcome, error) {
	f.mu.Lock()
	f.calls = append(f.calls, uploadCall{identity: identity, subs: subs})
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(identity, subs)
	}
	out := make([]subdb.Outcome, len(subs))
	for i, s := range subs {
		out[i] = subdb.Outcome{FileName: s.FileName, Status: subdb.StatusUploaded, RemoteID: "r-" + s.FileName}
	}
	return out, nil
}

type fakeChecker struct {
	mu     sync.Mutex
	hashes []string
	fn     func(hash string) (*subdb.Existing, error)
}

func (f *fakeChecker) CheckDuplicate(ctx context.Context, hash string) (*subdb.Existing, error) {
	f.mu.Lock()
	f.hashes = append(f.hashes, hash)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(hash)
	}
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func writeSubtitle(t *testing.T, root, rel string) {
	t.Helper()
	testsupport.WriteSubtitle(t, root, rel)
}

func candidate(rel, hash, lang string, identity catalog.MovieIdentity) catalog.UploadCandidate {
	return catalog.UploadCandidate{
		Subtitle: &catalog.FileRecord{
			Path:        rel,
			Name:        filepath.Base(rel),
			Kind:        catalog.KindSubtitle,
			ContentHash: hash,
			Language:    lang,
			Identity:    &identity,
			Duplicate:   &catalog.DuplicateStatus{Exists: false, CheckedAt: time.Now()},
		},
		Identity: identity,
		Language: lang,
	}
}

func movieIdentity(id string) catalog.MovieIdentity {
	return catalog.MovieIdentity{IMDBID: id, Title: "Some Film", Year: 2020, Kind: catalog.IdentityMovie}
}

func newCoordinator(t *testing.T, cfg *config.Config, up *fakeUploader, chk *fakeChecker, progress ProgressFunc) *Coordinator {
	t.Helper()
	c, err := New(Deps{Config: cfg, Client: up, Duplicates: chk, Progress: progress})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestUploadGroupsByIdentity(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "a/one.srt")
	writeSubtitle(t, root, "a/two.srt")
	writeSubtitle(t, root, "b/other.srt")

	up := &fakeUploader{}
	var progress []string
	c := newCoordinator(t, testConfig(t), up, &fakeChecker{}, func(processed, total int, item string) {
		progress = append(progress, item)
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
	})

	idA := movieIdentity("tt0000001")
	idB := movieIdentity("tt0000002")
	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{
		candidate("a/one.srt", "aaa", "en", idA),
		candidate("a/two.srt", "bbb", "fr", idA),
		candidate("b/other.srt", "ccc", "en", idB),
	})
	if err != nil {
		t.Fatal(err)
	}

	if result.Uploaded != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(up.calls) != 2 {
		t.Fatalf("upload calls = %d, want 2 (one per identity)", len(up.calls))
	}
	if len(up.calls[0].subs) != 2 || up.calls[0].identity.IMDBID != "tt0000001" {
		t.Fatalf("first call = %+v", up.calls[0])
	}
	if got := result.Outcomes[0]; got.Status != subdb.StatusUploaded || got.RemoteID != "r-one.srt" {
		t.Fatalf("outcome[0] = %+v", got)
	}
	if len(progress) != 3 {
		t.Fatalf("progress fired %d times, want 3", len(progress))
	}
}

func TestUploadSkipsFreshKnownDuplicates(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "one.srt")

	up := &fakeUploader{}
	chk := &fakeChecker{}
	c := newCoordinator(t, testConfig(t), up, chk, nil)

	cand := candidate("one.srt", "aaa", "en", movieIdentity("tt0000001"))
	cand.Subtitle.Duplicate = &catalog.DuplicateStatus{Exists: true, RemoteID: "srv-9", CheckedAt: time.Now()}

	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{cand})
	if err != nil {
		t.Fatal(err)
	}
	if result.Existing != 1 || result.Uploaded != 0 {
		t.Fatalf("result = %+v", result)
	}
	if result.Outcomes[0].RemoteID != "srv-9" {
		t.Fatalf("outcome = %+v", result.Outcomes[0])
	}
	if len(up.calls) != 0 {
		t.Fatal("duplicate was submitted anyway")
	}
	if len(chk.hashes) != 0 {
		t.Fatal("fresh cached answer was re-checked")
	}
}

func TestUploadReverifiesStaleDuplicates(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "one.srt")

	up := &fakeUploader{}
	chk := &fakeChecker{fn: func(hash string) (*subdb.Existing, error) {
		return &subdb.Existing{RemoteID: "srv-4"}, nil
	}}
	c := newCoordinator(t, testConfig(t), up, chk, nil)

	cand := candidate("one.srt", "aaa", "en", movieIdentity("tt0000001"))
	// Verified clean, but outside the staleness window.
	cand.Subtitle.Duplicate = &catalog.DuplicateStatus{Exists: false, CheckedAt: time.Now().Add(-10 * time.Minute)}

	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{cand})
	if err != nil {
		t.Fatal(err)
	}
	if len(chk.hashes) != 1 || chk.hashes[0] != "aaa" {
		t.Fatalf("re-check hashes = %v", chk.hashes)
	}
	if result.Existing != 1 {
		t.Fatalf("result = %+v", result)
	}
	if len(up.calls) != 0 {
		t.Fatal("server duplicate was submitted anyway")
	}
}

func TestUploadBestEffortAcrossGroups(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "bad.srt")
	writeSubtitle(t, root, "good.srt")

	up := &fakeUploader{fn: func(identity catalog.MovieIdentity, subs []subdb.Submission) ([]subdb.Outcome, error) {
		if identity.IMDBID == "tt0000001" {
			return nil, services.Wrap(services.ErrNetwork, "subdb", "upload", "boom", nil)
		}
		return []subdb.Outcome{{FileName: subs[0].FileName, Status: subdb.StatusUploaded, RemoteID: "r-1"}}, nil
	}}
	c := newCoordinator(t, testConfig(t), up, &fakeChecker{}, nil)

	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{
		candidate("bad.srt", "aaa", "en", movieIdentity("tt0000001")),
		candidate("good.srt", "bbb", "en", movieIdentity("tt0000002")),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Uploaded != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(result.Outcomes[0].Err, services.ErrNetwork) {
		t.Fatalf("outcome[0].Err = %v", result.Outcomes[0].Err)
	}
	if result.Outcomes[1].Status != subdb.StatusUploaded {
		t.Fatalf("outcome[1] = %+v", result.Outcomes[1])
	}
}

func TestUploadPerEntryRejection(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "one.srt")
	writeSubtitle(t, root, "two.srt")

	up := &fakeUploader{fn: func(identity catalog.MovieIdentity, subs []subdb.Submission) ([]subdb.Outcome, error) {
		return []subdb.Outcome{
			{FileName: "one.srt", Status: subdb.StatusUploaded, RemoteID: "r-1"},
			{FileName: "two.srt", Status: subdb.StatusRejected, Reason: "malformed timing"},
		}, nil
	}}
	c := newCoordinator(t, testConfig(t), up, &fakeChecker{}, nil)

	id := movieIdentity("tt0000001")
	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{
		candidate("one.srt", "aaa", "en", id),
		candidate("two.srt", "bbb", "en", id),
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Uploaded != 1 || result.Rejected != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Outcomes[1].Reason != "malformed timing" {
		t.Fatalf("outcome[1] = %+v", result.Outcomes[1])
	}
}

func TestUploadInvalidCandidateSettlesWithoutCall(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "good.srt")

	up := &fakeUploader{}
	c := newCoordinator(t, testConfig(t), up, &fakeChecker{}, nil)

	missingLang := candidate("good.srt", "aaa", "", movieIdentity("tt0000001"))
	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{missingLang})
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(result.Outcomes[0].Err, services.ErrValidation) {
		t.Fatalf("err = %v", result.Outcomes[0].Err)
	}
	if len(up.calls) != 0 {
		t.Fatal("invalid candidate reached the client")
	}
}

func TestUploadUnreadableFileFailsOnlyItself(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "good.srt")

	up := &fakeUploader{}
	c := newCoordinator(t, testConfig(t), up, &fakeChecker{}, nil)

	id := movieIdentity("tt0000001")
	result, err := c.Upload(context.Background(), root, []catalog.UploadCandidate{
		candidate("missing.srt", "aaa", "en", id),
		candidate("good.srt", "bbb", "en", id),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(result.Outcomes[0].Err, services.ErrIO) {
		t.Fatalf("outcome[0].Err = %v", result.Outcomes[0].Err)
	}
	if result.Outcomes[1].Status != subdb.StatusUploaded {
		t.Fatalf("outcome[1] = %+v", result.Outcomes[1])
	}
	if len(up.calls) != 1 || len(up.calls[0].subs) != 1 {
		t.Fatalf("calls = %+v", up.calls)
	}
}

func TestUploadCancellationSettlesRemainder(t *testing.T) {
	root := t.TempDir()
	writeSubtitle(t, root, "one.srt")
	writeSubtitle(t, root, "two.srt")

	ctx, cancel := context.WithCancel(context.Background())
	up := &fakeUploader{fn: func(identity catalog.MovieIdentity, subs []subdb.Submission) ([]subdb.Outcome, error) {
		cancel()
		return []subdb.Outcome{{FileName: subs[0].FileName, Status: subdb.StatusUploaded}}, nil
	}}
	c := newCoordinator(t, testConfig(t), up, &fakeChecker{}, nil)

	result, err := c.Upload(ctx, root, []catalog.UploadCandidate{
		candidate("one.srt", "aaa", "en", movieIdentity("tt0000001")),
		candidate("two.srt", "bbb", "en", movieIdentity("tt0000002")),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if result.Uploaded != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Outcomes[1].Err == nil {
		t.Fatal("cancelled candidate has no error")
	}
}
