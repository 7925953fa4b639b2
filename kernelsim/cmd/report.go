package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/sarchlab/kernelsim/datarecording"
	"github.com/sarchlab/kernelsim/kernel"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <db>",
	Short: "Print the per-thread statistics recorded by a run.",
	Args:  cobra.ExactArgs(1),
	RunE:  printThreadStats,
}

func init() {
	reportCmd.Flags().String("order-by", "PID",
		"Column the threads are sorted by.")
	reportCmd.Flags().Int("limit", 0, "Print at most this many threads.")

	rootCmd.AddCommand(reportCmd)
}

func printThreadStats(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !strings.HasSuffix(path, ".sqlite3") {
		path += ".sqlite3"
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	reader.MapTable(kernel.ThreadStatsTable, kernel.ThreadStatsEntry{})

	orderBy, _ := cmd.Flags().GetString("order-by")
	limit, _ := cmd.Flags().GetInt("limit")

	rows, total, err := reader.Query(cmd.Context(), kernel.ThreadStatsTable,
		datarecording.QueryParams{OrderBy: orderBy, Limit: limit})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w,
		"PID\tPARENT\tNAME\tPRIORITY\tSTART\tEND\tCPU\tWAIT\tBURSTS\tSTATUS")

	for _, row := range rows {
		e := row.(*kernel.ThreadStatsEntry)
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			e.PID, e.ParentPID, e.Name, e.BasePriority, e.StartTime,
			e.EndTime, e.CPUTime, e.TotalWait, e.Bursts, e.ExitStatus)
	}

	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d threads\n", len(rows), total)

	return nil
}
