package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/langevin/internal/analysis"
	"github.com/san-kum/langevin/internal/catalog"
	"github.com/san-kum/langevin/internal/config"
	"github.com/san-kum/langevin/internal/dynamo"
	"github.com/san-kum/langevin/internal/ensemble"
	"github.com/san-kum/langevin/internal/experiment"
	"github.com/san-kum/langevin/internal/export"
	"github.com/san-kum/langevin/internal/optim"
	"github.com/san-kum/langevin/internal/storage"
	"github.com/san-kum/langevin/internal/viz"
)

const (
	plotWidth  = 80
	plotHeight = 15
	barWidth   = 50
	// maxHistRows bounds the terminal histogram; finer bins go to --svg.
	maxHistRows = 40
	svgWidth    = 800
	svgHeight   = 400
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	svgPath    string
	progress   bool
	trialIndex int
	gridAxes   []string

	flags = *config.DefaultConfig()
)

// main registers the commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "langevin",
		Short:         "langevin dynamics and first-passage times between absorbing walls",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".langevin", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate one trajectory",
		Args:  cobra.NoArgs,
		RunE:  runTrajectory,
	}
	addPhysicsFlags(runCmd)

	fptCmd := &cobra.Command{
		Use:   "fpt",
		Short: "simulate an ensemble and histogram its first-passage times",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addPhysicsFlags(fptCmd)
	fptCmd.Flags().IntVar(&flags.Trials, "trials", config.DefaultTrials, "number of realizations")
	fptCmd.Flags().IntVar(&flags.Workers, "workers", 1, "parallel trials")
	fptCmd.Flags().BoolVar(&progress, "progress", false, "show a progress view")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "compare first-passage statistics over a parameter grid",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addPhysicsFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&flags.Trials, "trials", config.DefaultTrials, "realizations per grid point")
	sweepCmd.Flags().IntVar(&flags.Workers, "workers", 1, "parallel trials")
	sweepCmd.Flags().StringArrayVar(&gridAxes, "grid", nil, "grid axis as key=v1,v2,... (repeatable)")
	_ = sweepCmd.MarkFlagRequired("grid")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().IntVar(&trialIndex, "trial", 0, "trial to plot")
	showCmd.Flags().StringVar(&svgPath, "svg", "", "also write the plot as svg")

	histCmd := &cobra.Command{
		Use:   "hist [run_id...]",
		Short: "histogram of first-passage times pooled across catalogued runs",
		RunE:  pooledHistogram,
	}
	histCmd.Flags().StringVar(&svgPath, "svg", "", "also write the histogram as svg")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage config files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a config file with the defaults (or a preset)",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	configInitCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, fptCmd, sweepCmd, listCmd, showCmd, histCmd, presetsCmd, configCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}

func addPhysicsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&flags.Duration, "time", config.DefaultDuration, "total simulated time t_t")
	f.Float64Var(&flags.Dt, "dt", config.DefaultDt, "timestep")
	f.Float64Var(&flags.InitPos, "pos", config.DefaultInitPos, "initial position")
	f.Float64Var(&flags.InitVel, "vel", 0, "initial velocity")
	f.Float64Var(&flags.Mass, "mass", config.DefaultMass, "particle mass")
	f.Float64Var(&flags.Gamma, "gamma", config.DefaultGamma, "damping coefficient")
	f.Float64Var(&flags.Temperature, "temp", config.DefaultTemperature, "bath temperature")
	f.Float64Var(&flags.Lambda, "lambda", 0, "noise scale (0 uses gamma)")
	f.Float64Var(&flags.Wall, "wall", config.DefaultWall, "upper absorbing wall; the lower one is at 0")
	f.BoolVar(&flags.Noise, "noise", true, "apply thermal kicks")
	f.BoolVar(&flags.Print, "print", true, "print plots and statistics")
	f.BoolVar(&flags.Save, "save", false, "store trajectories under the data directory")
	f.Uint64Var(&flags.Seed, "seed", 0, "random seed (0 is time based)")
	f.StringVar(&flags.Units, "units", flags.Units, "unit system: reduced or si")
	f.StringVar(&flags.Integrator, "integrator", flags.Integrator, "deterministic stepper: rk4 or euler")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&svgPath, "svg", "", "also write the plot as svg")
}

// resolveConfig layers defaults, preset, config file and explicitly set
// flags, in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.GetPreset(preset)
		if err != nil {
			return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(config.PresetNames(), ", "))
		}
		cfg = p
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	overrides := []struct {
		name  string
		apply func()
	}{
		{"time", func() { cfg.Duration = flags.Duration }},
		{"dt", func() { cfg.Dt = flags.Dt }},
		{"pos", func() { cfg.InitPos = flags.InitPos }},
		{"vel", func() { cfg.InitVel = flags.InitVel }},
		{"mass", func() { cfg.Mass = flags.Mass }},
		{"gamma", func() { cfg.Gamma = flags.Gamma }},
		{"temp", func() { cfg.Temperature = flags.Temperature }},
		{"lambda", func() { cfg.Lambda = flags.Lambda }},
		{"wall", func() { cfg.Wall = flags.Wall }},
		{"noise", func() { cfg.Noise = flags.Noise }},
		{"print", func() { cfg.Print = flags.Print }},
		{"save", func() { cfg.Save = flags.Save }},
		{"seed", func() { cfg.Seed = flags.Seed }},
		{"units", func() { cfg.Units = flags.Units }},
		{"integrator", func() { cfg.Integrator = flags.Integrator }},
		{"trials", func() { cfg.Trials = flags.Trials }},
		{"workers", func() { cfg.Workers = flags.Workers }},
	}
	for _, o := range overrides {
		if f := cmd.Flags().Lookup(o.name); f != nil && f.Changed {
			o.apply()
		}
	}

	cfg.ResolveSeed(time.Now())
	return cfg, nil
}

func runTrajectory(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(*cfg, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	traj, err := exp.RunTrajectory(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if cfg.Save {
		st := storage.New(dataDir)
		run, err := st.Create(storage.KindTrajectory, *cfg)
		if err != nil {
			return err
		}
		if err := run.RecordTrajectory(traj); err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", run.Meta.ID)
	}

	if svgPath != "" {
		svg := export.TrajectoryToSVG(traj, cfg.Wall, svgWidth, svgHeight, "#00ccff")
		if err := export.WriteFile(svgPath, svg); err != nil {
			return err
		}
		slog.Info("wrote svg", slog.String("path", svgPath))
	}

	if !cfg.Print {
		return nil
	}
	printTrajectory(traj, cfg.Wall)
	if model, err := exp.Model(); err == nil {
		printModel(model)
		fmt.Println(viz.KeyValue("relaxation time", fmt.Sprintf("%.6g", model.RelaxationTime())))
	}
	fmt.Println(viz.KeyValue("seed", fmt.Sprint(cfg.Seed)))
	fmt.Println(viz.KeyValue("elapsed", elapsed.String()))
	return nil
}

func printTrajectory(traj *dynamo.Trajectory, wall float64) {
	fmt.Println(viz.PositionPlot(traj, wall, plotWidth, plotHeight))
	fmt.Println()

	t, x, v := traj.Final()
	fmt.Println(viz.KeyValue("samples", fmt.Sprint(traj.Len())))
	fmt.Println(viz.KeyValue("absorbed", fmt.Sprint(traj.Absorbed)))
	fmt.Println(viz.KeyValue("final", fmt.Sprintf("t=%.6g x=%.6g v=%.6g", t, x, v)))
	if traj.Absorbed {
		fmt.Println(viz.KeyValue("first passage", fmt.Sprintf("%.6g", t)))
	}
	for _, name := range sortedKeys(traj.Metrics) {
		fmt.Println(viz.KeyValue(name, fmt.Sprintf("%.6g", traj.Metrics[name])))
	}
}

func printModel(m dynamo.Configurable) {
	params := m.GetParams()
	for _, name := range sortedKeys(params) {
		fmt.Println(viz.KeyValue(name, fmt.Sprintf("%.6g", params[name])))
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := experiment.New(*cfg, nil)
	if err != nil {
		return err
	}

	// Without --save nothing touches the data directory until the ensemble
	// has finished.
	st := storage.New(dataDir)
	var (
		run  *storage.Run
		sink ensemble.Sink
	)
	if cfg.Save {
		if run, err = st.Create(storage.KindEnsemble, *cfg); err != nil {
			return err
		}
		sink = run.WriteTrajectory
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var res *ensemble.Result
	if progress {
		res, err = viz.RunWithProgress(os.Stderr, cfg.Trials, cancel, func(onTrial func(ensemble.Outcome)) (*ensemble.Result, error) {
			return exp.RunEnsemble(ctx, sink, onTrial)
		})
	} else {
		res, err = exp.RunEnsemble(ctx, sink, nil)
	}
	if err == nil && run == nil {
		run, err = st.Create(storage.KindEnsemble, *cfg)
	}
	if err == nil {
		err = run.RecordEnsemble(res)
	}
	if err == nil {
		err = recordCatalog(ctx, run, *cfg, res)
	}
	if err != nil {
		discardRun(run)
		return err
	}
	fmt.Printf("run id: %s\n", run.Meta.ID)

	if svgPath != "" {
		svg := export.HistogramToSVG(res.Histogram, svgWidth, svgHeight, "#00ff88")
		if err := export.WriteFile(svgPath, svg); err != nil {
			return err
		}
		slog.Info("wrote svg", slog.String("path", svgPath))
	}

	if cfg.Print {
		printHistogram(res.Samples, res.Histogram)
		fmt.Println(viz.Summary(res.Summary, res.Trials, res.Censored))
	}
	return nil
}

// discardRun removes a run whose ensemble did not complete.
func discardRun(run *storage.Run) {
	if run == nil {
		return
	}
	if err := os.RemoveAll(run.Dir()); err != nil {
		slog.Warn("failed to remove incomplete run", slog.String("dir", run.Dir()), slog.Any("err", err))
	}
}

func recordCatalog(ctx context.Context, run *storage.Run, cfg config.Config, res *ensemble.Result) error {
	cat := catalog.New(filepath.Join(dataDir, catalog.FileName))
	if err := cat.Init(ctx); err != nil {
		return err
	}
	defer cat.Close()

	row, samples := catalog.FromEnsemble(run.Meta.ID, run.Meta.Timestamp, cfg, res)
	if err := cat.RecordRun(ctx, row, samples); err != nil {
		return err
	}
	slog.Info("catalogued run", slog.String("id", row.ID), slog.Int("samples", len(samples)))
	return nil
}

// printHistogram rebins to at most maxHistRows rows over the same range.
func printHistogram(samples []float64, h analysis.Histogram) {
	if h.Bins() > maxHistRows {
		h = analysis.Bin(samples, h.Edges[0], h.Edges[h.Bins()], maxHistRows)
	}
	fmt.Println(viz.RenderHistogram(h, barWidth))
	fmt.Println()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridAxes))
	ranges := make([][]float64, 0, len(gridAxes))
	for _, axis := range gridAxes {
		name, values, err := optim.ParseAxis(axis)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	grid, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}
	slog.Info("starting sweep", slog.Int("points", grid.Size()), slog.Int("trials", cfg.Trials))

	points, err := grid.Search(cmd.Context(), *cfg, func(ctx context.Context, c config.Config) (*ensemble.Result, error) {
		exp, err := experiment.New(c, nil)
		if err != nil {
			return nil, err
		}
		return exp.RunEnsemble(ctx, nil, nil)
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tABSORBED\tCENSORED\tMEAN\tMEDIAN")
	for _, p := range points {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", p.Params[name])
		}
		s := p.Result.Summary
		fmt.Fprintf(w, "%d\t%d\t%.6g\t%.6g\n", p.Result.Absorbed, p.Result.Censored, optim.MeanPassageTime(p.Result), s.Median)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best, ok := optim.Best(points, optim.MeanPassageTime); ok {
		fmt.Println()
		fmt.Println(viz.KeyValue("fastest escape", fmt.Sprintf("%v (mean %.6g)", best.Params, best.Result.Summary.Mean)))
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tTRIALS\tABSORBED\tCENSORED\tUNITS\tSEED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%d\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Trials,
			run.Absorbed,
			run.Censored,
			run.Config.Units,
			run.Config.Seed,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render("run " + meta.ID))
	fmt.Println(viz.KeyValue("kind", meta.Kind))
	fmt.Println(viz.KeyValue("created", meta.Timestamp.Format(time.RFC3339)))
	fmt.Println(viz.KeyValue("seed", fmt.Sprint(meta.Config.Seed)))
	fmt.Println(viz.KeyValue("units", meta.Config.Units))
	fmt.Println(viz.Separator(plotWidth))

	traj, err := st.LoadTrajectory(runID, trialIndex)
	switch {
	case err == nil:
		printTrajectory(traj, meta.Config.Wall)
		if svgPath != "" {
			svg := export.TrajectoryToSVG(traj, meta.Config.Wall, svgWidth, svgHeight, "#00ccff")
			if err := export.WriteFile(svgPath, svg); err != nil {
				return err
			}
		}
	case os.IsNotExist(err):
		slog.Debug("no stored trajectory", slog.String("run", runID), slog.Int("trial", trialIndex))
	default:
		return err
	}

	if meta.Kind != storage.KindEnsemble {
		return nil
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	fmt.Println(viz.Separator(plotWidth))
	printHistogram(samples, analysis.AutoHistogram(samples))
	fmt.Println(viz.Summary(meta.Summary, meta.Trials, meta.Censored))
	return nil
}

func pooledHistogram(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := storage.New(dataDir).Init(); err != nil {
		return err
	}
	cat := catalog.New(filepath.Join(dataDir, catalog.FileName))
	if err := cat.Init(ctx); err != nil {
		return err
	}
	defer cat.Close()

	runs, err := pooledRuns(ctx, cat, args)
	if err != nil {
		return err
	}

	samples, err := cat.Samples(ctx, args...)
	if err != nil {
		return err
	}
	h := analysis.AutoHistogram(samples)

	if svgPath != "" {
		if err := export.WriteFile(svgPath, export.HistogramToSVG(h, svgWidth, svgHeight, "#00ff88")); err != nil {
			return err
		}
	}

	printHistogram(samples, h)
	s := analysis.Summarize(samples)
	fmt.Println(viz.KeyValue("runs", fmt.Sprint(runs)))
	fmt.Println(viz.KeyValue("samples", fmt.Sprint(s.Count)))
	if s.Count > 0 {
		fmt.Println(viz.KeyValue("mean", fmt.Sprintf("%.6g", s.Mean)))
		fmt.Println(viz.KeyValue("median", fmt.Sprintf("%.6g", s.Median)))
	}
	return nil
}

// pooledRuns checks that every id is catalogued and returns how many runs
// the pooled histogram covers. No ids means every catalogued run.
func pooledRuns(ctx context.Context, cat *catalog.Catalog, ids []string) (int, error) {
	if len(ids) == 0 {
		all, err := cat.Runs(ctx)
		if err != nil {
			return 0, err
		}
		return len(all), nil
	}
	for _, id := range ids {
		if _, ok, err := cat.GetRun(ctx, id); err != nil {
			return 0, err
		} else if !ok {
			return 0, fmt.Errorf("run %s is not in the catalog", id)
		}
	}
	return len(ids), nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("presets:")
	for _, name := range config.PresetNames() {
		values := config.Presets[name]
		parts := make([]string, 0, len(values))
		for _, k := range sortedKeys(values) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, values[k]))
		}
		fmt.Printf("  %-12s %s\n", name, strings.Join(parts, " "))
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.GetPreset(preset)
		if err != nil {
			return err
		}
		cfg = p
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
