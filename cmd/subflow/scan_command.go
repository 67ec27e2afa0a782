package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"subflow/internal/cache"
	"subflow/internal/catalog"
	"subflow/internal/pairing"
	"subflow/internal/pipeline"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <dir>",
		Short: "Run identification over a folder and show per-file results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, store, _, err := runPipeline(ctx, cmd, args[0])
			if store != nil {
				defer store.Close()
			}
			if err != nil {
				return err
			}
			return renderScanResults(cmd, orch)
		},
	}
}

// runPipeline discovers files below dir and drives every stage to a
// terminal state. The returned store may be nil.
func runPipeline(ctx *commandContext, cmd *cobra.Command, dir string) (*pipeline.Orchestrator, *cache.Store, string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	orch, store, err := ctx.newOrchestrator()
	if err != nil {
		return nil, nil, "", err
	}

	files, err := catalog.Discover(cmd.Context(), root)
	if err != nil {
		return nil, store, "", fmt.Errorf("discover files: %w", err)
	}
	if len(files) == 0 {
		return nil, store, "", fmt.Errorf("no files found under %s", root)
	}

	orch.SetRoot(root)
	fmt.Fprintf(cmd.OutOrStdout(), "Processing %d files under %s\n", len(files), root)
	if err := orch.Process(cmd.Context(), files); err != nil {
		return nil, store, "", err
	}
	return orch, store, root, nil
}

func renderScanResults(cmd *cobra.Command, orch *pipeline.Orchestrator) error {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)

	statuses := orch.Snapshot()
	rows := make([][]string, 0, len(statuses))
	ready := 0
	for _, fs := range statuses {
		rec := fs.Record
		row := []string{
			rec.Path,
			string(rec.Kind),
			identityCell(rec),
			rec.Language,
			tagsCell(rec),
			statusCell(fs, color),
		}
		rows = append(rows, row)
		if rec.UploadReady() && (rec.Duplicate == nil || !rec.Duplicate.Exists) {
			ready++
		}
	}

	fmt.Fprintln(out, renderTable(
		[]tableColumn{
			{Name: "File", MaxWidth: 48},
			{Name: "Kind"},
			{Name: "Identity"},
			{Name: "Lang"},
			{Name: "Tags"},
			{Name: "Status"},
		},
		rows,
	))

	pairing := orch.Pairing()
	fmt.Fprintf(out, "%d groups, %d orphan subtitles, %d ready for upload\n",
		len(pairing.Groups), len(pairing.Orphans), ready)
	return nil
}

func identityCell(rec *catalog.FileRecord) string {
	id := rec.Identity
	if id == nil {
		// Unidentified: show the title guess derived from the filename.
		if title := pairing.DisplayTitle(pairing.QueryName(rec.Path)); title != "" {
			return title + " (?)"
		}
		return ""
	}
	label := id.Title
	if id.Year > 0 {
		label = fmt.Sprintf("%s (%d)", id.Title, id.Year)
	}
	if id.IsEpisode() {
		label = fmt.Sprintf("%s S%02dE%02d", label, id.Season, id.Episode)
	}
	return label
}

func tagsCell(rec *catalog.FileRecord) string {
	t := rec.Tags
	if t == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	if t.Source != "" {
		parts = append(parts, t.Source)
	}
	if t.Resolution != "" {
		parts = append(parts, t.Resolution)
	}
	if t.Group != "" {
		parts = append(parts, t.Group)
	}
	return strings.Join(parts, " ")
}

// statusCell collapses the per-stage states into one short label. Failed
// blocking stages win over everything else.
func statusCell(fs pipeline.FileStatus, color bool) string {
	rec := fs.Record
	var failed []string
	for stage, state := range fs.Stages {
		if state.Status == pipeline.StatusFailed {
			failed = append(failed, string(stage))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return colorize(color, ansiRed, "failed: "+strings.Join(failed, ","))
	}
	if rec.RemovalFlag {
		return colorize(color, ansiYellow, "not a subtitle")
	}
	if rec.Kind == catalog.KindVideo {
		return colorize(color, ansiGreen, "identified")
	}
	if rec.Duplicate != nil && rec.Duplicate.Exists {
		return colorize(color, ansiYellow, "duplicate")
	}
	if rec.UploadReady() {
		return colorize(color, ansiGreen, "ready")
	}
	return "incomplete"
}
