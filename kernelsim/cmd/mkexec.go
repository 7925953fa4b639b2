package cmd

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/sarchlab/kernelsim/noff"
	"github.com/spf13/cobra"
)

var mkexecCmd = &cobra.Command{
	Use:   "mkexec <output>",
	Short: "Write a NOFF executable for the synthetic workload.",
	Long: `Mkexec writes an executable with random code and initialized data ` +
		`of the given sizes. The kernel only uses the layout of the ` +
		`segments, so the content does not matter.`,
	Args: cobra.ExactArgs(1),
	RunE: makeExecutable,
}

func init() {
	f := mkexecCmd.Flags()
	f.Int("code", 512, "Size of the code segment in bytes.")
	f.Int("data", 128, "Size of the initialized data segment in bytes.")
	f.Int("bss", 128, "Size of the uninitialized data segment in bytes.")
	f.Int64("seed", 1, "Seed of the random content.")

	rootCmd.AddCommand(mkexecCmd)
}

func makeExecutable(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	codeSize, _ := f.GetInt("code")
	dataSize, _ := f.GetInt("data")
	bssSize, _ := f.GetInt("bss")
	seed, _ := f.GetInt64("seed")

	if codeSize < 4 || dataSize < 0 || bssSize < 0 {
		return fmt.Errorf("bad segment sizes: code %d, data %d, bss %d",
			codeSize, dataSize, bssSize)
	}

	rng := rand.New(rand.NewSource(seed))
	code := make([]byte, codeSize)
	data := make([]byte, dataSize)
	rng.Read(code)
	rng.Read(data)

	return os.WriteFile(args[0], noff.Build(code, data, bssSize), 0o644)
}
