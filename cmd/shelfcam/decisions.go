package main

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show the decision audit trail",
	RunE:  runDecisions,
}

var (
	decisionSession string
	decisionLimit   int
)

func init() {
	decisionsCmd.Flags().StringVar(&decisionSession, "session", "", "Only decisions of this session")
	decisionsCmd.Flags().IntVar(&decisionLimit, "limit", 50, "Maximum number of decisions")
	decisionsCmd.Flags().BoolVar(&outputJSON, "json", false, "Output as JSON")
}

func runDecisions(cmd *cobra.Command, args []string) error {
	return withBackend(func(b *backend) error {
		records, err := b.store.ListDecisions(decisionSession, decisionLimit)
		if err != nil {
			return err
		}
		if outputJSON {
			return printJSON(records)
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Time", "Session", "Action", "Outcome", "Details"})
		for _, r := range records {
			tw.AppendRow(table.Row{
				r.Timestamp.Local().Format("2006-01-02 15:04:05"),
				shortID(r.SessionID),
				r.Action,
				r.Outcome,
				truncate(r.Details, 48),
			})
		}
		tw.Render()
		return nil
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
