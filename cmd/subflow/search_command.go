package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subflow/internal/services/namer"
)

// newSearchCommand queries the identification service directly. It is the
// manual fallback when automatic identification picked nothing useful.
func newSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <title>",
		Short: "Search the identification service by title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client := namer.NewClient(cfg.Namer.APIKey, cfg.Namer.BaseURL, namer.WithTimeout(cfg.RequestTimeout()))

			candidates, err := client.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(candidates))
			for _, cand := range candidates {
				year := ""
				if cand.Identity.Year > 0 {
					year = strconv.Itoa(cand.Identity.Year)
				}
				rows = append(rows, []string{
					cand.Identity.IMDBID,
					cand.Identity.Title,
					year,
					string(cand.Identity.Kind),
					fmt.Sprintf("%.2f", cand.Score),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]tableColumn{
					{Name: "IMDB ID"},
					{Name: "Title"},
					{Name: "Year", Numeric: true},
					{Name: "Kind"},
					{Name: "Score", Numeric: true},
				},
				rows,
			))
			return nil
		},
	}
}
