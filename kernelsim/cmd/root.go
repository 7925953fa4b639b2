// Package cmd provides the command-line interface of kernelsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

const envPrefix = "KERNELSIM_"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kernelsim",
	Short: "kernelsim simulates the memory manager and scheduler of a kernel.",
	Long: `kernelsim runs batches of user programs on a simulated machine ` +
		`with a small physical memory, demand paging, page replacement and ` +
		`a choice of CPU scheduling algorithms.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info",
		"Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().String("env-file", ".env",
		"File with KERNELSIM_* variables that give flag defaults.")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It exits through atexit, so that recorded data is flushed.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// setup loads the environment file, fills the flags the user did not set
// from the environment and configures logging.
func setup(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")

	err := godotenv.Load(envFile)
	if err != nil {
		// A missing default file is fine.
		optional := !cmd.Flags().Changed("env-file")
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	err = applyEnv(cmd.Flags())
	if err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")

	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	slog.SetDefault(logger)

	return nil
}

func envName(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func applyEnv(flags *pflag.FlagSet) error {
	var err error

	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "env-file" {
			return
		}

		value, ok := os.LookupEnv(envName(f.Name))
		if !ok {
			return
		}

		if setErr := flags.Set(f.Name, value); setErr != nil {
			err = fmt.Errorf("%s: %w", envName(f.Name), setErr)
		}
	})

	return err
}

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level

	err := l.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})

	return slog.New(handler), nil
}
