package main

import (
	"fmt"
	"os"

	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/logger"
	"github.com/san-kum/bondkit/internal/optim"
	"github.com/spf13/cobra"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	preset    string
	backend   string
	precision string
	// md
	dt          float64
	steps       int
	sampleEvery int
	seed        int64
	temperature float64
	exportPath  string
	showPlot    bool
	replicas    int
	// check
	checkSeed   int64
	fdStep      float64
	fdTolerance float64
	// live
	stepsPerFrame int
	// analysis
	seriesName   string
	maxSteps     int
	forceTol     float64
	maxMove      float64
	outPath      string
	gridArgs     []string
	svgPath      string
	canvasWidth  int
	canvasHeight int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "bondkit",
		Short:             "differentiable harmonic bond potentials",
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.NewFormat(logFormat, logLevel, os.Stderr)
			if err != nil {
				return err
			}
			logger.SetDefault(l)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bondkit", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	evalCmd := &cobra.Command{
		Use:   "eval [config]",
		Short: "evaluate energy and derivatives",
		Args:  cobra.MaximumNArgs(1),
		RunE:  evalSystem,
	}
	addSystemFlags(evalCmd)

	checkCmd := &cobra.Command{
		Use:   "check [config]",
		Short: "verify derivatives against finite differences",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkSystem,
	}
	addSystemFlags(checkCmd)
	checkCmd.Flags().Int64Var(&checkSeed, "seed", 1, "seed for random dx/dp directions")
	checkCmd.Flags().Float64Var(&fdStep, "step", 0, "finite difference step (0 = precision default)")
	checkCmd.Flags().Float64Var(&fdTolerance, "tol", 0, "relative tolerance (0 = precision default)")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "run molecular dynamics and store the energy trace",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSystemFlags(runCmd)
	addMDFlags(runCmd)
	runCmd.Flags().StringVar(&exportPath, "export", "", "also write the run as JSON to this path")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot energies when done")
	runCmd.Flags().IntVar(&replicas, "replicas", 1, "independent runs with consecutive seeds")

	liveCmd := &cobra.Command{
		Use:   "live [config]",
		Short: "run molecular dynamics with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSystemFlags(liveCmd)
	addMDFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 8, "md steps per frame")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energies of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "also write the total energy as SVG to this path")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&exportPath, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list built-in systems, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "show compute backends",
		Args:  cobra.NoArgs,
		RunE:  listBackends,
	}

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "power spectrum of a stored energy trace",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().StringVar(&seriesName, "series", "potential", "energy series (potential, kinetic, total)")

	minimizeCmd := &cobra.Command{
		Use:   "minimize [config]",
		Short: "relax the geometry by steepest descent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  minimizeSystem,
	}
	addSystemFlags(minimizeCmd)
	minimizeCmd.Flags().IntVar(&maxSteps, "max-steps", optim.DefaultMaxSteps, "maximum descent steps")
	minimizeCmd.Flags().Float64Var(&forceTol, "force-tol", optim.DefaultForceTol, "converged when every |dE/dx| row is below this")
	minimizeCmd.Flags().Float64Var(&maxMove, "max-move", optim.DefaultMaxMove, "initial displacement of the most loaded atom")
	minimizeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the relaxed system as a config file")

	scanCmd := &cobra.Command{
		Use:   "scan [config]",
		Short: "energy over a grid of parameter values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  scanSystem,
	}
	addSystemFlags(scanCmd)
	scanCmd.Flags().StringArrayVar(&gridArgs, "grid", nil, "slot=v1,v2,... where slot is an index or label such as r0(A-A)")

	drawCmd := &cobra.Command{
		Use:   "draw [config]",
		Short: "draw the molecule",
		Args:  cobra.MaximumNArgs(1),
		RunE:  drawSystem,
	}
	addSystemFlags(drawCmd)
	drawCmd.Flags().IntVar(&canvasWidth, "width", 40, "canvas width in cells")
	drawCmd.Flags().IntVar(&canvasHeight, "height", 12, "canvas height in cells")
	drawCmd.Flags().StringVar(&svgPath, "svg", "", "also write the drawing as SVG to this path")

	rootCmd.AddCommand(evalCmd, checkCmd, runCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd, backendsCmd,
		spectrumCmd, minimizeCmd, scanCmd, drawCmd)
	return rootCmd
}

func addSystemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use a built-in system instead of a config file")
	cmd.Flags().StringVar(&backend, "backend", config.DefaultBackend, "compute backend (auto, cpu, cuda)")
	cmd.Flags().StringVar(&precision, "precision", config.DefaultPrecision, "floating point precision (f32, f64)")
}

func addMDFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record energies every n steps")
	cmd.Flags().Int64Var(&seed, "seed", 0, "velocity seed")
	cmd.Flags().Float64Var(&temperature, "temperature", config.DefaultTemperature, "initial temperature (reduced units)")
}

// loadConfig resolves the system from --preset or a config path, then applies
// flags the user set explicitly on top of it.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case preset != "" && len(args) > 0:
		return nil, fmt.Errorf("use either --preset or a config file, not both")
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	case len(args) == 1:
		var err error
		cfg, err = config.Load(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	default:
		return nil, fmt.Errorf("a config file or --preset is required (presets: %v)", config.ListPresets())
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("precision") {
		cfg.Precision = precision
	}
	if flags.Lookup("dt") != nil {
		if flags.Changed("dt") {
			cfg.MD.Dt = dt
		}
		if flags.Changed("steps") {
			cfg.MD.Steps = steps
		}
		if flags.Changed("sample-every") {
			cfg.MD.SampleEvery = sampleEvery
		}
		if flags.Changed("seed") {
			cfg.MD.Seed = seed
		}
		if flags.Changed("temperature") {
			cfg.MD.Temperature = temperature
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
