package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"studydeck/internal/activity"
	"studydeck/internal/config"
)

func newActivityCmd(cfg *config.Config) *cobra.Command {
	var (
		page     string
		asJSON   bool
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show daily quiz activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			tracker := activity.NewTracker(kv)
			out := cmd.OutOrStdout()

			if clearAll {
				tracker.ClearAll()
				fmt.Fprintln(out, "Activity cleared")
				return nil
			}

			histogram := tracker.Histogram(page)
			summaries := tracker.Summaries()
			if asJSON {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(map[string]any{
					"page":      page,
					"histogram": histogram,
					"summaries": summaries,
				})
			}

			if len(histogram) == 0 {
				fmt.Fprintln(out, "No activity recorded")
				return nil
			}
			renderHistogram(out, histogram)
			if page == activity.AllPages {
				fmt.Fprintln(out)
				renderSummaries(out, summaries)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&page, "page", activity.AllPages, "restrict the histogram to one deck")
	flags.BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	flags.BoolVar(&clearAll, "clear", false, "delete all recorded activity")
	return cmd
}

func renderHistogram(w io.Writer, points []activity.Point) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Attempts", "Correct", "Accuracy"})
	for _, p := range points {
		table.Append([]string{p.Date, strconv.Itoa(p.TotalAttempts), strconv.Itoa(p.TotalCorrect), strconv.Itoa(p.AccuracyRate) + "%"})
	}
	table.Render()
}

func renderSummaries(w io.Writer, summaries []activity.PageSummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Deck", "Days", "Attempts", "Correct", "Accuracy", "Last active"})
	for _, s := range summaries {
		table.Append([]string{
			s.PageName,
			strconv.Itoa(s.Days),
			strconv.Itoa(s.QuizAttempts),
			strconv.Itoa(s.CorrectAnswers),
			strconv.Itoa(s.AccuracyRate) + "%",
			s.LastActive,
		})
	}
	table.Render()
}
