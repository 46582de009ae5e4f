package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cobra"

	"github.com/kilianp07/autoshutdown/core/schedule"
	"github.com/kilianp07/autoshutdown/infra/logger"
)

var checkAt string

var checkCmd = &cobra.Command{
	Use:   "check <schedule>",
	Short: "Evaluate a schedule tag value",
	Example: `  autoshutdown check "Saturday,Sunday,22:00->06:00"
  autoshutdown check "December 25" --at 2026-12-25T10:00:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkAt, "at", "", "evaluation time in UTC (default now)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	now := time.Now().UTC()
	if checkAt != "" {
		t, err := dateparse.ParseIn(checkAt, time.UTC)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		now = t.UTC()
	}
	value := args[0]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluated at %s\n", now.Format(time.RFC3339))
	if schedule.IsDoNotShutdown(value) {
		fmt.Fprintln(out, "DoNotShutdown: the machine is never started or stopped")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tENTRY\tIN WINDOW")
	for _, tok := range schedule.Split(value) {
		e := schedule.Parse(tok, now)
		fmt.Fprintf(tw, "%q\t%s\t%t\n", tok, e, e.Contains(now))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ev := schedule.NewEvaluator(logger.New("check"))
	verdict := "running (outside every window)"
	if ev.EvaluateSet(value, now) {
		verdict = "deallocated (inside a window)"
	}
	fmt.Fprintf(out, "Expected state: %s\n", verdict)
	return nil
}
