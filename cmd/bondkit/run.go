package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/logger"
	"github.com/san-kum/bondkit/internal/md"
	"github.com/san-kum/bondkit/internal/metrics"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/storage"
	"github.com/san-kum/bondkit/internal/system"
	"github.com/san-kum/bondkit/internal/tui"
	"github.com/spf13/cobra"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if cfg.Precision == "f32" {
		return simulate[float32](ctx, cmd.OutOrStdout(), st, cfg)
	}
	return simulate[float64](ctx, cmd.OutOrStdout(), st, cfg)
}

func simulate[T ndarray.Float](ctx context.Context, w io.Writer, st *storage.Store, cfg *config.Config) error {
	if replicas > 1 && (exportPath != "" || showPlot) {
		return fmt.Errorf("--export and --plot apply to single runs only")
	}
	sys, err := buildSystem[T](cfg)
	if err != nil {
		return err
	}
	mdCfg := md.FromConfig(cfg.MD)
	if replicas > 1 {
		return simulateEnsemble(ctx, w, st, cfg, sys, mdCfg)
	}

	sim, err := md.New(sys, mdCfg, md.WithLogger[T](slog.Default()))
	if err != nil {
		return err
	}
	for _, m := range metrics.Default() {
		sim.AddMetric(m)
	}

	v0 := md.InitialVelocities(sys.Masses, sys.NumDims(), mdCfg.Temperature, mdCfg.Seed)

	fmt.Fprintf(w, "running %s for %s steps...\n", sys.Name, humanize.Comma(int64(mdCfg.Steps)))
	start := time.Now()
	result, runErr := sim.Run(ctx, v0)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	meta, energies, err := saveRun(st, cfg, sys, mdCfg, result, runErr)
	if err != nil {
		return errors.Join(runErr, err)
	}

	if exportPath != "" {
		if err := storage.ExportJSON(exportPath, storage.NewExport(meta, energies, rows(result.Positions))); err != nil {
			return errors.Join(runErr, err)
		}
	}

	stepsPerSec := float64(result.StepsTaken) / elapsed.Seconds()
	fmt.Fprintln(w, tui.Box("run "+meta.ID,
		tui.KV("elapsed", elapsed.Round(time.Millisecond).String()),
		tui.KV("steps", humanize.Comma(int64(result.StepsTaken))),
		tui.KV("steps/sec", humanize.Comma(int64(stepsPerSec))),
		tui.KV("samples", humanize.Comma(int64(len(result.Times)))),
	))
	fmt.Fprintln(w, metricsTable(result.Metrics))

	if showPlot {
		fmt.Fprintln(w, tui.PlotEnergies(result.Total, result.Potential, result.Kinetic, 80, 12, "total / potential / kinetic"))
	}
	return runErr
}

func simulateEnsemble[T ndarray.Float](ctx context.Context, w io.Writer, st *storage.Store, cfg *config.Config, sys *system.System[T], mdCfg md.Config) error {
	ens, err := md.NewEnsemble(sys, mdCfg, replicas, metrics.Default)
	if err != nil {
		return err
	}
	ens.SetLogger(slog.Default())

	fmt.Fprintf(w, "running %d replicas of %s for %s steps...\n", replicas, sys.Name, humanize.Comma(int64(mdCfg.Steps)))
	start := time.Now()
	reps, runErr := ens.Run(ctx, 0)
	elapsed := time.Since(start)

	errs := []error{runErr}
	table := make([][]string, 0, len(reps))
	for _, r := range reps {
		if r.Result == nil {
			if r.Err != nil {
				errs = append(errs, fmt.Errorf("seed %d: %w", r.Seed, r.Err))
			}
			continue
		}
		repCfg := mdCfg
		repCfg.Seed = r.Seed
		meta, _, err := saveRun(st, cfg, sys, repCfg, r.Result, r.Err)
		if err != nil {
			return errors.Join(append(errs, err)...)
		}
		status := "ok"
		if r.Err != nil {
			status = "failed"
			errs = append(errs, fmt.Errorf("seed %d: %w", r.Seed, r.Err))
		}
		table = append(table, []string{
			shortID(meta.ID),
			fmt.Sprintf("%d", r.Seed),
			humanize.Comma(int64(r.Result.StepsTaken)),
			fmt.Sprintf("%.2e", r.Result.Metrics["energy_drift"]),
			fmt.Sprintf("%.4g", r.Result.Metrics["mean_kinetic"]),
			status,
		})
	}

	fmt.Fprintln(w, tui.KV("elapsed", elapsed.Round(time.Millisecond).String()))
	fmt.Fprintln(w, tui.Table([]string{"id", "seed", "steps", "drift", "mean KE", "status"}, table))
	return errors.Join(errs...)
}

// saveRun stores one trajectory's energies under a new run id.
func saveRun[T ndarray.Float](st *storage.Store, cfg *config.Config, sys *system.System[T], mdCfg md.Config, result *md.Result[T], runErr error) (storage.RunMetadata, storage.Energies, error) {
	meta := storage.RunMetadata{
		System:      sys.Name,
		Precision:   cfg.Precision,
		Backend:     sys.Backend.Name(),
		NumAtoms:    sys.NumAtoms(),
		NumParams:   sys.NumParams(),
		Seed:        mdCfg.Seed,
		Dt:          mdCfg.Dt,
		Steps:       mdCfg.Steps,
		StepsTaken:  result.StepsTaken,
		Temperature: mdCfg.Temperature,
		Metrics:     result.Metrics,
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	energies := storage.Energies{
		Times:     result.Times,
		Potential: result.Potential,
		Kinetic:   result.Kinetic,
		Total:     result.Total,
	}

	id, err := st.Save(meta, energies)
	if err != nil {
		return meta, energies, err
	}
	meta.ID = id
	return meta, energies, nil
}

func metricsTable(m map[string]float64) string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, len(names))
	for i, name := range names {
		rows[i] = []string{name, fmt.Sprintf("%.6g", m[name])}
	}
	return tui.Table([]string{"metric", "value"}, rows)
}

func rows[T ndarray.Float](a *ndarray.Array[T]) [][]float64 {
	if a == nil {
		return nil
	}
	n, d := a.Dim(0), a.Dim(1)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, d)
		for j := range out[i] {
			out[i][j] = float64(a.At(i, j))
		}
	}
	return out
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// Log output would tear the alternate screen.
	logger.SetDefault(logger.Discard())

	if cfg.Precision == "f32" {
		return live[float32](cfg)
	}
	return live[float64](cfg)
}

func live[T ndarray.Float](cfg *config.Config) error {
	sys, err := buildSystem[T](cfg)
	if err != nil {
		return err
	}
	v0 := md.InitialVelocities(sys.Masses, sys.NumDims(), cfg.MD.Temperature, cfg.MD.Seed)

	m, err := tui.NewLiveModel(sys, cfg.MD.Dt, v0, stepsPerFrame)
	if err != nil {
		return err
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	return m.Err()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.System,
			humanize.Time(run.Timestamp),
			humanize.Comma(int64(run.StepsTaken)),
			fmt.Sprintf("%g", run.Dt),
			fmt.Sprintf("%.2e", run.Metrics["energy_drift"]),
			status,
		})
	}
	fmt.Fprintln(w, tui.Table([]string{"id", "system", "created", "steps", "dt", "drift", "status"}, rows))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveRun accepts a full run id or a unique prefix of one.
func resolveRun(st *storage.Store, idOrPrefix string) (*storage.RunMetadata, error) {
	if meta, err := st.Load(idOrPrefix); err == nil {
		return meta, nil
	}
	runs, err := st.List()
	if err != nil {
		return nil, err
	}
	var matches []storage.RunMetadata
	for _, run := range runs {
		if strings.HasPrefix(run.ID, idOrPrefix) {
			matches = append(matches, run)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, idOrPrefix)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run id %q is ambiguous (%d matches)", idOrPrefix, len(matches))
	}
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	energies, err := st.LoadEnergies(meta.ID)
	if err != nil {
		return err
	}
	if energies.Len() < 2 {
		return fmt.Errorf("no data to plot")
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, tui.Box(meta.System,
		tui.KV("run", meta.ID),
		tui.KV("created", humanize.Time(meta.Timestamp)),
		tui.KV("samples", humanize.Comma(int64(energies.Len()))),
	))
	fmt.Fprintln(w, tui.PlotSeries(energies.Total, 80, 10, "total energy"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, tui.PlotEnergies(energies.Total, energies.Potential, energies.Kinetic, 80, 12, "total / potential / kinetic"))

	if svgPath == "" {
		return nil
	}
	return writeSVGFile(svgPath, tui.SeriesToSVG(energies.Total, 800, 300, "#7D56F4"))
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	energies, err := st.LoadEnergies(meta.ID)
	if err != nil {
		return err
	}

	data := storage.NewExport(*meta, energies, nil)
	if exportPath != "" {
		return storage.ExportJSON(exportPath, data)
	}
	return storage.WriteJSON(cmd.OutOrStdout(), data)
}
