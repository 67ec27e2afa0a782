package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subflow/internal/catalog"
	"subflow/internal/services/subdb"
	"subflow/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var options catalog.UploadOptions

	cmd := &cobra.Command{
		Use:   "upload <dir>",
		Short: "Run identification over a folder and submit upload-ready subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, store, root, err := runPipeline(ctx, cmd, args[0])
			if store != nil {
				defer store.Close()
			}
			if err != nil {
				return err
			}
			if err := renderScanResults(cmd, orch); err != nil {
				return err
			}

			candidates := orch.UploadCandidates(options)
			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "Nothing to upload")
				return nil
			}

			coordinator, err := upload.New(upload.Deps{
				Config:     ctx.configValue(),
				Client:     ctx.newSubtitleDB(),
				Duplicates: ctx.newSubtitleDB(),
				Logger:     ctx.ensureLogger(),
				Progress: func(processed, total int, item string) {
					fmt.Fprintf(out, "  [%d/%d] %s\n", processed, total, item)
				},
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Uploading %d subtitles\n", len(candidates))
			result, err := coordinator.Upload(cmd.Context(), root, candidates)
			renderUploadResult(cmd, result)
			return err
		},
	}

	cmd.Flags().StringVar(&options.Comment, "comment", "", "Uploader comment attached to each submission")
	cmd.Flags().StringVar(&options.Translator, "translator", "", "Translator credit")
	cmd.Flags().BoolVar(&options.HearingImpaired, "hearing-impaired", false, "Mark submissions as hearing impaired")
	cmd.Flags().BoolVar(&options.ForeignPartsOnly, "foreign-parts-only", false, "Mark submissions as foreign parts only")
	cmd.Flags().BoolVar(&options.MachineTranslated, "machine-translated", false, "Mark submissions as machine translated")
	return cmd
}

func renderUploadResult(cmd *cobra.Command, result upload.Result) {
	out := cmd.OutOrStdout()
	color := shouldColorize(out)

	rows := make([][]string, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		rows = append(rows, []string{
			outcome.Path,
			outcomeCell(outcome, color),
			outcome.RemoteID,
			outcomeDetail(outcome),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]tableColumn{
			{Name: "File", MaxWidth: 48},
			{Name: "Result"},
			{Name: "Remote ID"},
			{Name: "Detail"},
		},
		rows,
	))
	fmt.Fprintf(out, "%d uploaded, %d already on server, %d rejected, %d failed\n",
		result.Uploaded, result.Existing, result.Rejected, result.Failed)
}

func outcomeCell(outcome upload.Outcome, color bool) string {
	switch {
	case outcome.Err != nil:
		return colorize(color, ansiRed, "failed")
	case outcome.Status == subdb.StatusUploaded:
		return colorize(color, ansiGreen, "uploaded")
	case outcome.Status == subdb.StatusExists:
		return colorize(color, ansiYellow, "exists")
	case outcome.Status == subdb.StatusRejected:
		return colorize(color, ansiRed, "rejected")
	default:
		return string(outcome.Status)
	}
}

func outcomeDetail(outcome upload.Outcome) string {
	if outcome.Err != nil {
		return outcome.Err.Error()
	}
	return outcome.Reason
}
