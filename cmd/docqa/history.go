package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func createHistoryCommand(a *app) *cobra.Command {
	var limit int
	var full bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openHistory()
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("history is disabled: set --history or HISTORY_DB")
			}
			defer db.Close()

			runs, err := db.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if full {
				for _, r := range runs {
					fmt.Printf("#%d %s %s (%s, %s)\nQ: %s\n%s\n\n", r.ID, r.At.Local().Format("2006-01-02 15:04"), r.Source, r.Format, r.Model, r.Question, r.Answer)
				}
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tFORMAT\tCHUNKS\tFAILED\tQUESTION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.At.Local().Format("2006-01-02 15:04"), r.Source, r.Format, r.Chunks, r.Failed, oneLine(r.Question, 60))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&full, "full", false, "Print full answers")

	return cmd
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
