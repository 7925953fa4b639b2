package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pkg/browser"
	"github.com/sarchlab/kernelsim/kernel"
	"github.com/sarchlab/kernelsim/mem/vm/replacement"
	"github.com/sarchlab/kernelsim/sched"
	"github.com/sarchlab/kernelsim/sim"
	"github.com/sarchlab/kernelsim/simulation"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of executables.",
	Long: `Run loads every executable listed in a batch file and runs them ` +
		`until they all exit. The first line of the batch file selects the ` +
		`scheduling algorithm, each following line names an executable ` +
		`and optionally its priority.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	f := runCmd.Flags()
	w := kernel.DefaultWorkload()

	f.String("batch", "", "Batch file to run.")
	f.Int("frames", 32, "Number of physical frames.")
	f.Int("page-size", 128, "Page size in bytes.")
	f.String("replacement", "none",
		"Page replacement: none, random, fifo, lru or clock.")
	f.Int("algorithm", 0,
		"Scheduling algorithm 1 to 10. Zero keeps the one in the batch file.")
	f.Int64("seed", 1, "Seed of the random number generators.")
	f.String("db", "", "Record threads, dispatches and evictions into "+
		"<db>.sqlite3. Empty disables recording.")
	f.Bool("log-events", false,
		"Log every simulation event. Needs --log-level debug.")
	f.Bool("trace", false, "Also record thread and page fault traces.")
	f.Bool("monitor", false, "Start the web monitor.")
	f.Int("monitor-port", 0, "Port of the web monitor. Zero picks a free one.")
	f.Bool("open-browser", false, "Open the web monitor in a browser.")
	f.Int("instructions", w.Instructions,
		"Instructions each launched program runs.")
	f.Int("mean-burst", w.MeanBurst,
		"Mean instructions between I/O sleeps. Zero disables I/O.")
	f.Uint64("io-ticks", uint64(w.IOTicks), "Length of an I/O sleep.")
	f.Int("write-every", w.WriteEvery,
		"Store a word every n instructions. Zero disables stores.")
	f.Int("forks", w.Forks, "Children each launched program forks.")
	f.Int("shared-bytes", w.SharedBytes,
		"Shared memory each launched program allocates.")
	f.Uint64("fault-ticks", uint64(kernel.DefaultPageFaultTicks),
		"Ticks charged for each page fault.")

	_ = runCmd.MarkFlagRequired("batch")

	rootCmd.AddCommand(runCmd)
}

type runOptions struct {
	batchPath   string
	frames      int
	pageSize    int
	replacement replacement.Algorithm
	algorithm   sched.Algorithm
	seed        int64
	db          string
	trace       bool
	logEvents   bool
	monitor     bool
	port        int
	openBrowser bool
	workload    kernel.Workload
	faultTicks  sim.VTimeInTick
}

func parseRunOptions(cmd *cobra.Command) (runOptions, error) {
	f := cmd.Flags()

	var (
		o   runOptions
		err error
	)

	o.batchPath, _ = f.GetString("batch")
	o.frames, _ = f.GetInt("frames")
	o.pageSize, _ = f.GetInt("page-size")
	o.seed, _ = f.GetInt64("seed")
	o.db, _ = f.GetString("db")
	o.trace, _ = f.GetBool("trace")
	o.logEvents, _ = f.GetBool("log-events")
	o.monitor, _ = f.GetBool("monitor")
	o.port, _ = f.GetInt("monitor-port")
	o.openBrowser, _ = f.GetBool("open-browser")

	repl, _ := f.GetString("replacement")

	o.replacement, err = replacement.ParseAlgorithm(repl)
	if err != nil {
		return runOptions{}, err
	}

	alg, _ := f.GetInt("algorithm")
	o.algorithm = sched.Algorithm(alg)

	if alg != 0 && !o.algorithm.Valid() {
		return runOptions{}, fmt.Errorf("%w: %d", sched.ErrUnknownAlgorithm, alg)
	}

	if o.trace && o.db == "" {
		return runOptions{}, errors.New("--trace needs --db")
	}

	if o.frames <= 0 {
		return runOptions{}, fmt.Errorf("frames must be positive, got %d", o.frames)
	}

	if o.pageSize <= 0 || o.pageSize%4 != 0 {
		return runOptions{}, fmt.Errorf(
			"page size must be a positive multiple of 4, got %d", o.pageSize)
	}

	ioTicks, _ := f.GetUint64("io-ticks")
	faultTicks, _ := f.GetUint64("fault-ticks")

	o.workload.Instructions, _ = f.GetInt("instructions")
	o.workload.MeanBurst, _ = f.GetInt("mean-burst")
	o.workload.IOTicks = sim.VTimeInTick(ioTicks)
	o.workload.WriteEvery, _ = f.GetInt("write-every")
	o.workload.Forks, _ = f.GetInt("forks")
	o.workload.SharedBytes, _ = f.GetInt("shared-bytes")
	o.faultTicks = sim.VTimeInTick(faultTicks)

	return o, nil
}

func runBatch(cmd *cobra.Command, _ []string) error {
	o, err := parseRunOptions(cmd)
	if err != nil {
		return err
	}

	batch, err := readBatch(o.batchPath)
	if err != nil {
		return err
	}

	if o.algorithm != 0 {
		batch.Algorithm = o.algorithm
	}

	kb := kernel.MakeBuilder().
		WithNumPhysPages(o.frames).
		WithPageSize(o.pageSize).
		WithReplacement(o.replacement).
		WithSchedulingAlgorithm(batch.Algorithm).
		WithSeed(o.seed).
		WithPageFaultTicks(o.faultTicks).
		WithWorkload(o.workload).
		WithLogger(slog.Default())

	sb := simulation.MakeBuilder().WithKernelBuilder(kb)

	if o.db != "" {
		sb = sb.WithRecording().WithOutputFileName(o.db)
	}

	if o.trace {
		sb = sb.WithTracing()
	}

	if o.logEvents {
		sb = sb.WithEventLogging(slog.Default().With("component", "Engine"))
	}

	if o.monitor {
		sb = sb.WithMonitoring().WithMonitorPort(o.port)
	}

	s := sb.Build()
	defer s.Terminate()

	err = s.Kernel().LoadBatch(batch, fileOpener(filepath.Dir(o.batchPath)))
	if err != nil {
		return err
	}

	if o.monitor && o.openBrowser {
		err = browser.OpenURL(s.MonitorURL())
		if err != nil {
			slog.Warn("cannot open browser", "url", s.MonitorURL(), "err", err)
		}
	}

	slog.Info("running batch",
		"batch", o.batchPath,
		"algorithm", batch.Algorithm,
		"replacement", o.replacement,
		"jobs", len(batch.Jobs))

	err = s.Run()
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), s)

	return nil
}

func readBatch(path string) (kernel.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return kernel.Batch{}, err
	}
	defer f.Close()

	return kernel.ParseBatch(f)
}

// fileOpener opens executables relative to dir. The files stay open until
// the program exits.
func fileOpener(dir string) kernel.Opener {
	return func(name string) (io.ReaderAt, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}

		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}

		atexit.Register(func() { f.Close() })

		return f, nil
	}
}

func printReport(out io.Writer, s *simulation.Simulation) {
	r := s.Kernel().Report()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Ticks\t%d\n", r.Ticks)
	fmt.Fprintf(w, "Threads\t%d (%d exited)\n", r.Threads, r.Exited)
	fmt.Fprintf(w, "Instructions\t%d\n", r.Instructions)
	fmt.Fprintf(w, "CPU utilization\t%.2f%%\n", r.CPUUtilization*100)
	dispatches, threads := s.Dispatches()
	fmt.Fprintf(w, "Dispatches\t%d (%d threads)\n", dispatches, threads)
	fmt.Fprintf(w, "Average wait\t%.2f\n", r.AverageWait)
	fmt.Fprintf(w, "Average burst\t%.2f\n", r.AverageBurst)
	fmt.Fprintf(w, "Burst estimation error\t%d\n", r.Scheduling.EstimationError)
	fmt.Fprintf(w, "Page faults\t%d\n", r.Paging.PageFaults)
	fmt.Fprintf(w, "Page fault time\t%d (%.2f per fault)\n",
		s.PageFaultTime(), s.AveragePageFaultTime())
	fmt.Fprintf(w, "Evictions\t%d\n", r.Paging.Evictions)
	fmt.Fprintf(w, "Backing store writes\t%d\n", r.Paging.BackingWrites)
	fmt.Fprintf(w, "Backing store restores\t%d\n", r.Paging.BackingRestores)

	w.Flush()
}
