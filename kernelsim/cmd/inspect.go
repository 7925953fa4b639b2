package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sarchlab/kernelsim/noff"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <executable>...",
	Short: "Print the segments of NOFF executables.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer w.Flush()

		fmt.Fprintln(w, "FILE\tSEGMENT\tVADDR\tOFFSET\tSIZE")

		for _, name := range args {
			h, err := readHeader(name)
			if err != nil {
				return err
			}

			printSegment(w, name, "code", h.Code)
			printSegment(w, name, "data", h.InitData)
			printSegment(w, name, "bss", h.UninitData)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func readHeader(name string) (noff.Header, error) {
	f, err := os.Open(name)
	if err != nil {
		return noff.Header{}, err
	}
	defer f.Close()

	h, err := noff.ReadHeader(f)
	if err != nil {
		return noff.Header{}, fmt.Errorf("%s: %w", name, err)
	}

	return h, nil
}

func printSegment(w *tabwriter.Writer, file, name string, s noff.Segment) {
	fmt.Fprintf(w, "%s\t%s\t0x%x\t%d\t%d\n",
		file, name, s.VirtualAddr, s.InFileAddr, s.Size)
}
