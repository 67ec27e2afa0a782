package main

import (
	"strings"
	"testing"

	"subflow/internal/catalog"
	"subflow/internal/pipeline"
)

func TestStatusCellPriorities(t *testing.T) {
	sub := &catalog.FileRecord{Kind: catalog.KindSubtitle}

	failed := pipeline.FileStatus{
		Record: sub,
		Stages: map[pipeline.Stage]pipeline.StageState{
			pipeline.StageIdentify: {Status: pipeline.StatusFailed},
			pipeline.StageHash:     {Status: pipeline.StatusComplete},
		},
	}
	if got := statusCell(failed, false); got != "failed: identify" {
		t.Fatalf("statusCell = %q", got)
	}

	removed := pipeline.FileStatus{Record: &catalog.FileRecord{Kind: catalog.KindSubtitle, RemovalFlag: true}}
	if got := statusCell(removed, false); got != "not a subtitle" {
		t.Fatalf("statusCell = %q", got)
	}

	ready := pipeline.FileStatus{Record: &catalog.FileRecord{
		Kind:        catalog.KindSubtitle,
		ContentHash: "abc",
		Language:    "en",
		Identity:    &catalog.MovieIdentity{IMDBID: "tt1"},
	}}
	if got := statusCell(ready, false); got != "ready" {
		t.Fatalf("statusCell = %q", got)
	}

	dup := pipeline.FileStatus{Record: &catalog.FileRecord{
		Kind:      catalog.KindSubtitle,
		Duplicate: &catalog.DuplicateStatus{Exists: true},
	}}
	if got := statusCell(dup, false); got != "duplicate" {
		t.Fatalf("statusCell = %q", got)
	}
}

func TestIdentityCell(t *testing.T) {
	movie := &catalog.FileRecord{Identity: &catalog.MovieIdentity{Title: "The Matrix", Year: 1999, Kind: catalog.IdentityMovie}}
	if got := identityCell(movie); got != "The Matrix (1999)" {
		t.Fatalf("identityCell = %q", got)
	}

	episode := &catalog.FileRecord{Identity: &catalog.MovieIdentity{
		Title: "Severance", Year: 2022, Kind: catalog.IdentityEpisode, Season: 2, Episode: 4,
	}}
	if got := identityCell(episode); got != "Severance (2022) S02E04" {
		t.Fatalf("identityCell = %q", got)
	}

	unidentified := &catalog.FileRecord{Path: "The.Thing.1982.1080p.mkv", Name: "The.Thing.1982.1080p.mkv"}
	if got := identityCell(unidentified); got != "The Thing (?)" {
		t.Fatalf("identityCell = %q", got)
	}
}

func TestTagsCell(t *testing.T) {
	rec := &catalog.FileRecord{Tags: &catalog.ReleaseTags{Source: "bluray", Resolution: "1080p", Group: "SPARKS"}}
	if got := tagsCell(rec); got != "bluray 1080p SPARKS" {
		t.Fatalf("tagsCell = %q", got)
	}
	if got := tagsCell(&catalog.FileRecord{}); got != "" {
		t.Fatalf("tagsCell = %q", got)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]tableColumn{{Name: "A"}, {Name: "B", Numeric: true}},
		[][]string{{"only-a"}},
	)
	if !strings.Contains(out, "only-a") {
		t.Fatalf("render output missing row: %q", out)
	}
	if lines := strings.Split(out, "\n"); len(lines) < 4 {
		t.Fatalf("unexpected table shape: %q", out)
	}
}
