package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/powertrain/internal/battery"
	"github.com/san-kum/powertrain/internal/config"
	"github.com/san-kum/powertrain/internal/logging"
	"github.com/san-kum/powertrain/internal/metrics"
	"github.com/san-kum/powertrain/internal/optim"
	"github.com/san-kum/powertrain/internal/storage"
	"github.com/san-kum/powertrain/internal/system"
	"github.com/san-kum/powertrain/internal/tui"
	"github.com/san-kum/powertrain/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool
	log        *zap.Logger

	// grid
	nRPM      int
	nTorque   int
	maxRPM    float64
	maxTorque float64
	gridSize  int

	// outputs
	jsonOut    string
	metricsOut string
	overload   float64
	themeName  string
	plotWidth  int
	plotHeight int

	// thermal
	level   float64
	horizon float64
	linear  float64

	// optimize
	params     []string
	targets    []string
	conditions []string
	top        int
	workers    int
)

var explorePaths = []string{
	"motor.scale.length",
	"motor.scale.radius",
	"motor.scale.turns",
	"motor.scale.slot_depth",
	"motor.scale.slot_width",
	"motor.scale.reluctance",
	"motor.scale.frequency",
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "powertrain",
		Short:         "electric powertrain operating map solver",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbose)
			if err != nil {
				return err
			}
			log = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".powertrain", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "system description file (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "ideal", "built-in system preset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve the torque/speed operating map and save it",
		Args:  cobra.NoArgs,
		RunE:  runSolve,
	}
	gridFlags(solveCmd)
	solveCmd.Flags().StringVar(&jsonOut, "json", "", "also export the map as json")
	solveCmd.Flags().StringVar(&metricsOut, "metrics-out", "", "write prometheus metrics to this textfile")
	solveCmd.Flags().Float64Var(&overload, "overload", 0, "report the share of cells dissipating more than this many watts")
	plotFlags(solveCmd)

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "detect the speed and torque envelope",
		Args:  cobra.NoArgs,
		RunE:  runDetect,
	}
	detectCmd.Flags().IntVar(&gridSize, "gridsize", config.DefaultGridSize, "field current sweep resolution")

	thermalCmd := &cobra.Command{
		Use:   "thermal",
		Short: "coil temperature rise over the operating map",
		Args:  cobra.NoArgs,
		RunE:  runThermal,
	}
	gridFlags(thermalCmd)
	thermalCmd.Flags().Float64Var(&level, "level", 100, "temperature rise limit in K")
	thermalCmd.Flags().Float64Var(&horizon, "horizon", config.DefaultHorizon, "heating time in s")
	thermalCmd.Flags().Float64Var(&linear, "linear", 0, "free stream air velocity in m/s")
	plotFlags(thermalCmd)

	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "grid search system parameters against target operating points",
		Args:  cobra.NoArgs,
		RunE:  runOptimize,
	}
	optimizeCmd.Flags().StringArrayVar(&params, "param", nil, "search axis path=lo:hi:n (repeatable)")
	optimizeCmd.Flags().StringArrayVar(&targets, "target", nil, "target torque@rpm:dissipation (repeatable)")
	optimizeCmd.Flags().StringArrayVar(&conditions, "condition", nil, "operating condition path=v,path=v (repeatable)")
	optimizeCmd.Flags().IntVar(&top, "top", 5, "number of candidates to show")
	optimizeCmd.Flags().IntVar(&workers, "workers", 0, "concurrent evaluations, all cpus by default")
	_ = optimizeCmd.MarkFlagRequired("param")
	_ = optimizeCmd.MarkFlagRequired("target")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in systems, controllers and cells",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	pathsCmd := &cobra.Command{
		Use:   "paths",
		Short: "list the system parameters optimize and explore can set",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range system.Paths() {
				fmt.Println(p)
			}
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&jsonOut, "json", "", "export the map as json")
	plotFlags(showCmd)

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the torque envelope and efficiency of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotFlags(plotCmd)

	exploreCmd := &cobra.Command{
		Use:   "explore [run_id]",
		Short: "browse an operating map and re-solve scaled motors",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExplore,
	}
	gridFlags(exploreCmd)

	rootCmd.AddCommand(solveCmd, detectCmd, thermalCmd, optimizeCmd, presetsCmd, pathsCmd, listCmd, showCmd, plotCmd, exploreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func gridFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&nRPM, "n-rpm", config.DefaultNRPM, "speed intervals")
	cmd.Flags().IntVar(&nTorque, "n-torque", config.DefaultNTorque, "torque intervals")
	cmd.Flags().Float64Var(&maxRPM, "max-rpm", 0, "top speed of the map, detected when zero")
	cmd.Flags().Float64Var(&maxTorque, "max-torque", 0, "largest torque of the map, detected when zero")
	cmd.Flags().IntVar(&gridSize, "gridsize", config.DefaultGridSize, "field current sweep resolution")
}

func plotFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&themeName, "theme", "inferno", "heat map theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	cmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	cmd.Flags().IntVar(&plotHeight, "height", 12, "plot height")
}

// loadConfig reads the config file, or the preset when there is none, and
// applies the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (string, *config.Config, error) {
	var name string
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return "", nil, fmt.Errorf("load config: %w", err)
		}
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
		cfg = c
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return "", nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		name = preset
	}

	flags := cmd.Flags()
	if flags.Changed("n-rpm") {
		cfg.Grid.NRPM = nRPM
	}
	if flags.Changed("n-torque") {
		cfg.Grid.NTorque = nTorque
	}
	if flags.Changed("max-rpm") {
		cfg.Grid.MaxRPM = maxRPM
	}
	if flags.Changed("max-torque") {
		cfg.Grid.MaxTorque = maxTorque
	}
	if flags.Changed("gridsize") {
		cfg.Grid.GridSize = gridSize
	}
	if flags.Changed("horizon") {
		cfg.Thermal.Horizon = horizon
	}
	if flags.Changed("linear") {
		cfg.Thermal.Linear = linear
	}
	return name, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// axes returns the solve grid, detecting whichever bound the config leaves open.
func axes(ctx context.Context, cfg *config.Config, s system.System) ([]float64, []float64, error) {
	var env system.Envelope
	if cfg.NeedsDetect() {
		var err error
		env, err = system.DetectLimits(ctx, s, system.DetectOptions{GridSize: cfg.Grid.GridSize, Logger: log})
		if err != nil {
			return nil, nil, fmt.Errorf("detect limits: %w", err)
		}
	}
	trange, rpm := cfg.Ranges(env)
	return trange, rpm, nil
}

func solveConfig(ctx context.Context, cfg *config.Config, s system.System) (*system.Result, time.Duration, error) {
	trange, rpm, err := axes(ctx, cfg, s)
	if err != nil {
		return nil, 0, err
	}
	start := time.Now()
	res, err := system.Limits(ctx, s, trange, rpm, system.Options{GridSize: cfg.Grid.GridSize, Logger: log})
	return res, time.Since(start), err
}

func summaryMetrics() []metrics.Metric {
	ms := metrics.Defaults()
	if overload > 0 {
		ms = append(ms, metrics.NewOverload(overload))
	}
	return ms
}

func runSolve(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.Build()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("solving %s...\n", name)
	res, elapsed, err := solveConfig(ctx, cfg, s)
	if err != nil {
		return err
	}
	summary := metrics.Summarize(res, summaryMetrics()...)

	st := storage.New(dataDir, log)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(name, cfg, cfg.Grid.GridSize, res, summary)
	if err != nil {
		return err
	}

	if jsonOut != "" {
		if err := storage.ExportJSON(jsonOut, name, res, summary); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", jsonOut)
	}
	if metricsOut != "" {
		exp := metrics.NewExporter()
		exp.ObserveSolve(elapsed, res)
		exp.Record(name, summary)
		if err := exp.WriteTextfile(metricsOut); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	rows, cols := res.Dims()
	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("grid: %d torques x %d speeds, %.1f%% feasible\n\n", rows, cols, 100*res.FeasibleFraction())
	fmt.Println(viz.Summary(name, viz.MetricRows(summary)))
	fmt.Println()
	fmt.Println(viz.PlotEnvelope(res, plotWidth, plotHeight))
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.Build()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	env, err := system.DetectLimits(ctx, s, system.DetectOptions{GridSize: cfg.Grid.GridSize, Logger: log})
	if err != nil {
		return err
	}
	fmt.Println(viz.Summary(name, []viz.Row{
		{Label: "max rpm", Value: fmt.Sprintf("%.4g", env.MaxRPM)},
		{Label: "max torque", Value: fmt.Sprintf("%.4g Nm", env.MaxTorque)},
		{Label: "peak torque", Value: fmt.Sprintf("%.4g Nm", s.Actuator.PeakTorque())},
		{Label: "bus voltage", Value: fmt.Sprintf("%.4g V", s.Battery.Voltage())},
		{Label: "weight", Value: fmt.Sprintf("%.4g kg", s.Weight())},
	}))
	return nil
}

func runThermal(cmd *cobra.Command, args []string) error {
	name, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := cfg.Build()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, _, err := solveConfig(ctx, cfg, s)
	if err != nil {
		return err
	}
	tmap, err := system.ThermalMap(ctx, s, res, system.ThermalOptions{
		Linear:  cfg.Thermal.Linear,
		Horizon: cfg.Thermal.Horizon,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	lo, hi := viz.Range(tmap)
	fmt.Println(viz.Summary(name, []viz.Row{
		{Label: "horizon", Value: fmt.Sprintf("%.4g s", cfg.Thermal.Horizon)},
		{Label: "air speed", Value: fmt.Sprintf("%.4g m/s", cfg.Thermal.Linear)},
		{Label: "coil rise", Value: fmt.Sprintf("%.4g .. %.4g K", lo, hi)},
	}))
	fmt.Println()
	fmt.Println(viz.PlotThermal(res, tmap, level, plotWidth, plotHeight))
	return nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	base, err := cfg.Build()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(params))
	ranges := make([][]float64, 0, len(params))
	for _, p := range params {
		path, r, err := parseRange(p)
		if err != nil {
			return err
		}
		names = append(names, path)
		ranges = append(ranges, r)
	}
	var ts []system.Target
	for _, t := range targets {
		target, err := parseTarget(t)
		if err != nil {
			return err
		}
		ts = append(ts, target)
	}
	var conds []optim.Condition
	for _, c := range conditions {
		cond, err := parseCondition(c)
		if err != nil {
			return err
		}
		conds = append(conds, cond)
	}

	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("evaluating %d candidates...\n", gs.Size())
	start := time.Now()
	cands, err := gs.Search(ctx, base, ts, conds, optim.Options{Workers: workers, Logger: log})
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := append([]string{"RANK"}, names...)
	header = append(header, "TORQUE", "DISSIPATION", "WEIGHT", "OBJECTIVE")
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for i, c := range cands[:min(top, len(cands))] {
		fields := []string{fmt.Sprint(i + 1)}
		for _, n := range names {
			fields = append(fields, fmt.Sprintf("%.4g", c.Params[n]))
		}
		fields = append(fields,
			fmt.Sprintf("%+.3f", c.Scores.Torque),
			fmt.Sprintf("%+.3f", c.Scores.Dissipation),
			fmt.Sprintf("%.2fkg", c.Weight),
			fmt.Sprintf("%.4f", c.Objective),
		)
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYSTEM\tCONTROLLER\tCELL\tS\tP\tVOLTAGE\tWEIGHT")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		s, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%.1fV\t%.2fkg\n",
			name,
			cfg.Controller.Preset,
			cfg.Battery.Cell,
			cfg.Battery.S,
			cfg.Battery.P,
			s.Battery.Voltage(),
			s.Weight(),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ncontrollers: %s\n", strings.Join(config.ListControllers(), ", "))
	fmt.Printf("cells: %s\n", strings.Join(battery.ListCells(), ", "))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir, log)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tGRID\tFEASIBLE\tPEAK POWER")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%.1f%%\t%.0fW\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Torques,
			run.Speeds,
			100*run.Feasible,
			run.Metrics["peak_power"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *system.Result, error) {
	st := storage.New(dataDir, log)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	res, err := st.LoadResult(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, res, nil
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}

	theme := viz.GetTheme(themeName)
	fmt.Println(viz.Summary(meta.Name, append([]viz.Row{
		{Label: "id", Value: meta.ID},
		{Label: "time", Value: meta.Timestamp.Format("2006-01-02 15:04:05")},
		{Label: "grid", Value: fmt.Sprintf("%dx%d, gridsize %d", meta.Torques, meta.Speeds, meta.GridSize)},
		{Label: "feasible", Value: viz.ProgressBar(meta.Feasible, 20) + fmt.Sprintf(" %.1f%%", 100*meta.Feasible)},
	}, viz.MetricRows(meta.Metrics)...)))
	fmt.Println()

	eff := res.Efficiency()
	fmt.Println(viz.HeatMap(eff, plotWidth, plotHeight, theme))
	lo, hi := viz.Range(eff)
	fmt.Println(viz.Legend(lo, hi, max(plotWidth-24, 4), "efficiency", theme))

	if jsonOut != "" {
		if err := storage.ExportJSON(jsonOut, meta.Name, res, meta.Metrics); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", jsonOut)
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s)\n\n", meta.ID, meta.Name)
	fmt.Println(viz.PlotEnvelope(res, plotWidth, plotHeight))
	fmt.Println()
	fmt.Println(viz.PlotEfficiency(res, plotWidth, plotHeight))
	fmt.Println()
	fmt.Println(viz.Outline(res, plotWidth/2, plotHeight/2).String())
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	var name string
	var cfg *config.Config
	var res *system.Result

	if len(args) == 1 {
		meta, r, err := loadRun(args[0])
		if err != nil {
			return err
		}
		c, err := storage.New(dataDir, log).LoadConfig(args[0])
		if err != nil {
			return fmt.Errorf("run %s has no system description: %w", args[0], err)
		}
		name, cfg, res = meta.Name, c, r
	} else {
		n, c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name, cfg = n, c
	}

	s, err := cfg.Build()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if res == nil {
		fmt.Printf("solving %s...\n", name)
		if res, _, err = solveConfig(ctx, cfg, s); err != nil {
			return err
		}
	}

	// re-solves keep the axes of the map being explored and stay quiet
	// while the alternate screen is up
	trange, rpm := res.Torque, res.RPM
	solve := func(s system.System) (*system.Result, error) {
		r, err := system.Limits(ctx, s, trange, rpm, system.Options{GridSize: cfg.Grid.GridSize})
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("solve interrupted")
		}
		return r, err
	}
	return tui.RunExplorer(name, s, res, solve, explorePaths)
}
