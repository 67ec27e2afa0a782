package pipeline

import (
	"errors"
	"testing"
)

func TestStateTransitions(t *testing.T) {
	table := newStateTable()
	table.register("a.mkv", []Stage{StageHash})

	if state, ok := table.get("a.mkv", StageHash); !ok || state.Status != StatusPending {
		t.Fatalf("expected pending, got %+v ok=%v", state, ok)
	}
	if err := table.begin("a.mkv", StageHash); err != nil {
		t.Fatalf("begin from pending: %v", err)
	}
	if err := table.complete("a.mkv", StageHash); err != nil {
		t.Fatalf("complete from processing: %v", err)
	}
	if state, _ := table.get("a.mkv", StageHash); state.Status != StatusComplete {
		t.Fatalf("expected complete, got %s", state.Status)
	}
}

func TestStateNeverReentersProcessing(t *testing.T) {
	table := newStateTable()
	table.register("a.mkv", []Stage{StageIdentify})

	if err := table.begin("a.mkv", StageIdentify); err != nil {
		t.Fatal(err)
	}
	if err := table.begin("a.mkv", StageIdentify); err == nil {
		t.Fatal("processing -> processing must be rejected")
	}
}

func TestStateCompleteCannotRestart(t *testing.T) {
	table := newStateTable()
	table.register("a.mkv", []Stage{StageIdentify})

	_ = table.begin("a.mkv", StageIdentify)
	_ = table.complete("a.mkv", StageIdentify)
	if err := table.begin("a.mkv", StageIdentify); err == nil {
		t.Fatal("complete -> processing must require an explicit reset")
	}
}

func TestStateFailedMayRetry(t *testing.T) {
	table := newStateTable()
	table.register("a.srt", []Stage{StageLanguage})

	cause := errors.New("transient")
	_ = table.begin("a.srt", StageLanguage)
	if err := table.fail("a.srt", StageLanguage, cause); err != nil {
		t.Fatal(err)
	}
	state, _ := table.get("a.srt", StageLanguage)
	if state.Status != StatusFailed || !errors.Is(state.Err, cause) {
		t.Fatalf("unexpected failed state: %+v", state)
	}
	if err := table.begin("a.srt", StageLanguage); err != nil {
		t.Fatalf("failed -> processing should be allowed: %v", err)
	}
	state, _ = table.get("a.srt", StageLanguage)
	if state.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", state.Attempts)
	}
	if state.Err != nil {
		t.Fatal("beginning a retry should clear the previous error")
	}
}

func TestSettleRequiresProcessing(t *testing.T) {
	table := newStateTable()
	table.register("a.mkv", []Stage{StageHash})

	if err := table.complete("a.mkv", StageHash); err == nil {
		t.Fatal("pending -> complete without processing must be rejected")
	}
	if err := table.fail("a.mkv", StageHash, errors.New("x")); err == nil {
		t.Fatal("pending -> failed without processing must be rejected")
	}
}

func TestStateUnknownPair(t *testing.T) {
	table := newStateTable()
	if err := table.begin("ghost.mkv", StageHash); err == nil {
		t.Fatal("expected error for unregistered pair")
	}
	if _, ok := table.get("ghost.mkv", StageHash); ok {
		t.Fatal("unregistered pair should not exist")
	}
}
