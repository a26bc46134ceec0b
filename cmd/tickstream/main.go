package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/tickstream/internal/analysis"
	"github.com/san-kum/tickstream/internal/automation"
	"github.com/san-kum/tickstream/internal/config"
	"github.com/san-kum/tickstream/internal/experiment"
	"github.com/san-kum/tickstream/internal/export"
	"github.com/san-kum/tickstream/internal/lsq"
	"github.com/san-kum/tickstream/internal/sim"
	"github.com/san-kum/tickstream/internal/storage"
	"github.com/san-kum/tickstream/internal/viz"
)

var (
	logger *log.Logger

	logLevel string
	// run
	configFile string
	preset     string
	logsDir    string
	logFile    string
	sequence   string
	monitor    bool
	samples    uint64
	loadLSQ    bool
	theme      string
	// analyze
	outDir     string
	strict     bool
	bodyCount  int
	preview    bool
	reportJSON bool
	// solve, bench
	seed        int64
	benchPreset string
	benchTicks  int
	// export
	exportFormat string
	exportOut    string
	// sweep
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	sweepTicks int
)

func main() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "tickstream",
	})

	rootCmd := &cobra.Command{
		Use:           "tickstream",
		Short:         "rigid-body simulation with a durable tick log",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(level)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate a scene and append every tick to a durable log",
		Args:  cobra.NoArgs,
		RunE:  runScene,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scene file (.yaml or .ini)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use a built-in scene")
	runCmd.Flags().StringVar(&logsDir, "logs", config.DefaultLogDir, "directory for new runs")
	runCmd.Flags().StringVar(&logFile, "log", "", "append to this log instead of creating a run")
	runCmd.Flags().StringVar(&sequence, "sequence", "resume", "sequence policy: resume or process")
	runCmd.Flags().BoolVar(&monitor, "monitor", false, "show the live monitor")
	runCmd.Flags().Uint64Var(&samples, "samples", 0, "stop after N ticks (0 runs until interrupted)")
	runCmd.Flags().BoolVar(&loadLSQ, "load-lsq", false, "solve a least-squares problem every tick")
	runCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "monitor theme")

	analyzeCmd := &cobra.Command{
		Use:   "analyze <log>",
		Short: "render timing and trajectory charts for a log",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeLog,
	}
	analyzeCmd.Flags().StringVar(&outDir, "out", "", "chart directory (default <log dir>/analysis)")
	analyzeCmd.Flags().BoolVar(&strict, "strict", false, "fail on the first malformed line")
	analyzeCmd.Flags().IntVar(&bodyCount, "bodies", analysis.DefaultBodyCount, "bodies per record")
	analyzeCmd.Flags().BoolVar(&preview, "preview", false, "print terminal previews")
	analyzeCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&logsDir, "logs", config.DefaultLogDir, "runs directory")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tENGINE\tDIMS\tBODIES")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", name, p.Engine, p.World.Dims, len(p.Bodies))
			}
			return w.Flush()
		},
	}

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve one random least-squares problem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := lsq.SolveRandom(rand.New(rand.NewSource(seed)))
			if err != nil {
				return err
			}
			fmt.Printf("x = %.6f\n", x.RawVector().Data)
			return nil
		},
	}
	solveCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare integrators on a scene without logging",
		Args:  cobra.NoArgs,
		RunE:  benchScene,
	}
	benchCmd.Flags().StringVar(&benchPreset, "preset", "pair", "scene to benchmark")
	benchCmd.Flags().IntVar(&benchTicks, "ticks", 1000, "ticks per integrator")

	exportCmd := &cobra.Command{
		Use:   "export <log>",
		Short: "convert a log to csv, or a body path to svg",
		Args:  cobra.ExactArgs(1),
		RunE:  exportLog,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv or svg")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&bodyCount, "bodies", analysis.DefaultBodyCount, "bodies per record")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one scene parameter and compare the runs",
		Args:  cobra.NoArgs,
		RunE:  sweepScene,
	}
	sweepCmd.Flags().StringVar(&benchPreset, "preset", "pair", "scene to sweep")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "restitution", fmt.Sprintf("parameter: %v", automation.Params))
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")
	sweepCmd.Flags().IntVar(&sweepTicks, "ticks", 600, "ticks per run")

	rootCmd.AddCommand(runCmd, analyzeCmd, listCmd, presetsCmd, solveCmd, benchCmd, exportCmd, sweepCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

// loadScene resolves preset, then config file, then flag overrides.
func loadScene(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("logs") {
		cfg.Log.Dir = logsDir
	}
	if flags.Changed("sequence") {
		cfg.Log.Sequence = sequence
	}
	if flags.Changed("samples") {
		cfg.Pipeline.Samples = samples
	}
	if flags.Changed("load-lsq") {
		cfg.Load.LeastSquares = loadLSQ
	}
	return cfg, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScene(cmd)
	if err != nil {
		return err
	}

	if monitor {
		// log lines would tear the alternate screen
		logger.SetLevel(log.ErrorLevel)
		viz.SetTheme(theme)
	}

	exp, err := experiment.New(cfg, experiment.Options{LogPath: logFile, Logger: logger})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if monitor {
		err = runMonitored(ctx, exp)
	} else {
		err = exp.Run(ctx)
	}

	s := exp.Stats()
	fmt.Printf("log:      %s\n", exp.LogPath())
	fmt.Printf("written:  %d (rejected %d, last sequence %d)\n", s.Written, s.Rejected, s.LastSequence)
	return err
}

func runMonitored(ctx context.Context, exp *experiment.Experiment) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- exp.Run(ctx)
		close(done)
	}()

	m := viz.NewMonitor(exp.MonitorConfig(), exp.MonitorStats, cancel, done)
	if err := viz.RunMonitor(m); err != nil {
		cancel()
		<-errc
		return err
	}
	cancel()
	return <-errc
}

func analyzeLog(cmd *cobra.Command, args []string) error {
	opts := analysis.Options{
		BodyCount: bodyCount,
		Strict:    strict,
		OutDir:    outDir,
		Logger:    logger,
	}
	report, err := analysis.Analyze(args[0], viz.NewPlotRenderer(viz.GetTheme("minimal")), opts)
	if err != nil {
		return err
	}

	if reportJSON {
		return report.WriteJSON(os.Stdout)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "records\t%d of %d lines\n", report.Records, report.Lines)
	fmt.Fprintf(w, "skipped\t%d %v\n", report.Skipped, report.Skips)
	fmt.Fprintf(w, "tick cost\tmean %.1fus  p50 %.0fus  p99 %.0fus  max %.0fus\n",
		report.Cost.Mean, report.Cost.P50, report.Cost.P99, report.Cost.Max)
	for _, a := range report.Artifacts {
		fmt.Fprintf(w, "chart\t%s\n", a)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if preview {
		return printPreview(args[0], opts)
	}
	return nil
}

func printPreview(path string, opts analysis.Options) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	opts.Strict = false
	ds, err := analysis.ParseLog(f, opts)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.Preview(ds.Costs(), 60, 10, "tick cost (us) per sample"))
	for i, t := range ds.Trajectories {
		fmt.Printf("\nbody %d\n", i+1)
		fmt.Println(analysis.PathToASCII(t, 60, 15))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(logsDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tENGINE\tDIMS\tBODIES\tLAST SEQ")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Engine,
			run.Dim,
			run.Bodies,
			run.LastSequence,
		)
	}
	return w.Flush()
}

func benchScene(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(benchPreset)
	if base == nil {
		return fmt.Errorf("unknown preset: %s", benchPreset)
	}
	if err := base.Validate(); err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	ens := sim.NewEnsemble()
	for _, name := range reg.ListIntegrators() {
		cfg := base.Clone()
		cfg.Integrator = name
		ens.Add(name, func() (*sim.Simulator, error) {
			s, err := experiment.BuildSimulator(cfg, reg)
			if err != nil {
				return nil, err
			}
			for _, m := range reg.DefaultMetrics(s) {
				s.AddMetric(m)
			}
			return s, nil
		})
	}

	start := time.Now()
	results, err := ens.Run(cmd.Context(), benchTicks)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s, %d ticks in %v\n\n", benchPreset, benchTicks, time.Since(start).Round(time.Millisecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tMEAN US\tMAX US\tENERGY DRIFT\tCONTAINED")
	for i, name := range ens.Names() {
		r := results[i]
		fmt.Fprintf(w, "%s\t%.1f\t%.0f\t%.4f\t%.0f%%\n",
			name,
			r.TotalCost/float64(r.Steps),
			r.MaxCost,
			r.Metrics["energy_drift"],
			100*r.Metrics["containment"],
		)
	}
	return w.Flush()
}

func exportLog(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	out := os.Stdout
	if exportOut != "" {
		if out, err = os.Create(exportOut); err != nil {
			return err
		}
		defer out.Close()
	}

	switch exportFormat {
	case "csv":
		st, err := export.LogToCSV(out, in)
		if err != nil {
			return err
		}
		logger.Info("exported", "rows", st.Rows, "skipped", st.Skipped)
	case "svg":
		ds, err := analysis.ParseLog(in, analysis.Options{BodyCount: bodyCount, Logger: logger})
		if err != nil {
			return err
		}
		colors := []string{"#00ffff", "#ff00ff", "#ffaa00", "#00ff00"}
		for i, t := range ds.Trajectories {
			svg := export.TrajectorySVG(t, 800, 600, colors[i%len(colors)])
			if svg == "" {
				continue
			}
			if _, err := fmt.Fprintln(out, svg); err != nil {
				return err
			}
			// one document per body; only the first goes to a named file
			if exportOut != "" {
				break
			}
		}
	default:
		return fmt.Errorf("unknown format: %s", exportFormat)
	}
	return nil
}

func sweepScene(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(benchPreset)
	if base == nil {
		return fmt.Errorf("unknown preset: %s", benchPreset)
	}

	sweep := &automation.ParameterSweep{
		Base:     base,
		Param:    sweepParam,
		ParamMin: sweepMin,
		ParamMax: sweepMax,
		NumSteps: sweepSteps,
		Ticks:    sweepTicks,
	}
	results, err := automation.RunSweep(cmd.Context(), sweep, experiment.NewRegistry())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tENERGY\tDRIFT\tCONTAINED\tMEAN US\n", sweepParam)
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%.3f\t%.4f\t%.0f%%\t%.1f\n", r.ParamValue, r.Energy, r.EnergyDrift, 100*r.Containment, r.MeanCostUS)
	}
	return w.Flush()
}
