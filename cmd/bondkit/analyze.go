package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/san-kum/bondkit/internal/analysis"
	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/optim"
	"github.com/san-kum/bondkit/internal/storage"
	"github.com/san-kum/bondkit/internal/system"
	"github.com/san-kum/bondkit/internal/tui"
	"github.com/spf13/cobra"
)

func spectrumRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	energies, err := st.LoadEnergies(meta.ID)
	if err != nil {
		return err
	}

	var values []float64
	switch seriesName {
	case "potential":
		values = energies.Potential
	case "kinetic":
		values = energies.Kinetic
	case "total":
		values = energies.Total
	default:
		return fmt.Errorf("unknown series %q (potential, kinetic, total)", seriesName)
	}

	uniform, sampleDt, err := analysis.Uniform(energies.Times, values)
	if err != nil {
		return err
	}
	sp, err := analysis.PowerSpectrum(uniform, sampleDt)
	if err != nil {
		return err
	}
	peak, power := sp.Peak()

	lines := []string{
		tui.KV("run", meta.ID),
		tui.KV("series", seriesName),
		tui.KV("samples", humanize.Comma(int64(len(uniform)))),
		tui.KV("sample dt", fmt.Sprintf("%g", sampleDt)),
		tui.KV("resolution", fmt.Sprintf("%.4g", sp.Resolution())),
		tui.KV("peak", fmt.Sprintf("%.6g (power %.3g)", peak, power)),
	}
	if seriesName != "total" {
		lines = append(lines, tui.KV("vibration", fmt.Sprintf("%.6g", peak/2)))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, tui.Box(meta.System+" spectrum", lines...))
	fmt.Fprintln(w, tui.PlotSeries(sp.Power, 80, 10, "power vs frequency bin"))
	return nil
}

func minimizeSystem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	mcfg := optim.MinimizeConfig{MaxSteps: maxSteps, ForceTol: forceTol, MaxMove: maxMove}
	if cfg.Precision == "f32" {
		return minimize[float32](cmd.Context(), cmd.OutOrStdout(), cfg, mcfg)
	}
	return minimize[float64](cmd.Context(), cmd.OutOrStdout(), cfg, mcfg)
}

func minimize[T ndarray.Float](ctx context.Context, w io.Writer, cfg *config.Config, mcfg optim.MinimizeConfig) error {
	sys, err := buildSystem[T](cfg)
	if err != nil {
		return err
	}
	res, err := optim.Minimize(ctx, sys, mcfg, slog.Default())
	if err != nil {
		return err
	}

	status := tui.StatusOK.Render("converged")
	if !res.Converged {
		status = tui.StatusWarn.Render("not converged")
	}
	fmt.Fprintln(w, tui.Box(sys.Name+" "+status,
		tui.KV("initial", fmt.Sprintf("%.10g", res.Initial)),
		tui.KV("final", fmt.Sprintf("%.10g", res.Energy)),
		tui.KV("max |dE/dx|", fmt.Sprintf("%.3e", res.MaxForce)),
		tui.KV("steps", humanize.Comma(int64(res.Steps))),
	))

	if outPath == "" {
		return nil
	}
	relaxed := *cfg
	relaxed.Atoms = make([]config.AtomConfig, len(cfg.Atoms))
	pos := rows(res.Coords)
	for i, a := range cfg.Atoms {
		a.Position = pos[i]
		relaxed.Atoms[i] = a
	}
	if err := config.Save(outPath, &relaxed); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", outPath)
	return nil
}

func scanSystem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Precision == "f32" {
		return scan[float32](cmd.Context(), cmd.OutOrStdout(), cfg)
	}
	return scan[float64](cmd.Context(), cmd.OutOrStdout(), cfg)
}

func scan[T ndarray.Float](ctx context.Context, w io.Writer, cfg *config.Config) error {
	if len(gridArgs) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}
	sys, err := buildSystem[T](cfg)
	if err != nil {
		return err
	}
	axes := make([]optim.Axis, len(gridArgs))
	headers := make([]string, 0, len(gridArgs)+1)
	for i, arg := range gridArgs {
		axes[i], err = parseAxis(sys, arg)
		if err != nil {
			return err
		}
		headers = append(headers, sys.ParamLabels[axes[i].Slot])
	}
	headers = append(headers, "energy")

	g, err := optim.NewGridSearch(axes...)
	if err != nil {
		return err
	}
	base := make([]float64, sys.NumParams())
	for i, p := range sys.Params.Data() {
		base[i] = float64(p)
	}
	res, err := g.Search(ctx, base, optim.EnergyObjective(sys))
	if err != nil {
		return err
	}

	rows := make([][]string, len(res.Points))
	for i, pt := range res.Points {
		row := make([]string, 0, len(pt.Values)+1)
		for _, v := range pt.Values {
			row = append(row, fmt.Sprintf("%g", v))
		}
		rows[i] = append(row, fmt.Sprintf("%.6g", pt.Score))
	}
	fmt.Fprintln(w, tui.Table(headers, rows))

	best := make([]string, len(axes))
	for i, a := range axes {
		best[i] = tui.KV(sys.ParamLabels[a.Slot], fmt.Sprintf("%g", res.Best[a.Slot]))
	}
	fmt.Fprintln(w, tui.Box(fmt.Sprintf("best of %s (energy %.6g)", humanize.Comma(int64(g.Size())), res.BestScore), best...))
	return nil
}

// parseAxis reads "slot=v1,v2,..." where slot is a parameter index or label.
func parseAxis[T ndarray.Float](sys *system.System[T], arg string) (optim.Axis, error) {
	name, list, ok := strings.Cut(arg, "=")
	if !ok || list == "" {
		return optim.Axis{}, fmt.Errorf("invalid grid %q, want slot=v1,v2,...", arg)
	}
	slot, err := strconv.Atoi(name)
	if err != nil {
		slot = -1
		for i, label := range sys.ParamLabels {
			if label == name {
				slot = i
				break
			}
		}
	}
	if slot < 0 || slot >= sys.NumParams() {
		return optim.Axis{}, fmt.Errorf("unknown parameter %q (have %v)", name, sys.ParamLabels)
	}

	fields := strings.Split(list, ",")
	values := make([]float64, len(fields))
	for i, f := range fields {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return optim.Axis{}, fmt.Errorf("invalid grid value %q: %w", f, err)
		}
	}
	return optim.Axis{Slot: slot, Values: values}, nil
}

func drawSystem(cmd *cobra.Command, args []string) error {
	if canvasWidth < 1 || canvasHeight < 1 {
		return fmt.Errorf("canvas size must be positive, got %dx%d", canvasWidth, canvasHeight)
	}
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	points := make([][]float64, len(cfg.Atoms))
	for i, a := range cfg.Atoms {
		points[i] = a.Position
	}

	c := tui.NewCanvas(canvasWidth, canvasHeight)
	c.DrawMolecule(tui.FitViewport(c, points, 0.1), points, cfg.Bonds)

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, tui.Title.Render(cfg.Name))
	fmt.Fprint(w, c.String())

	if svgPath == "" {
		return nil
	}
	return writeSVGFile(svgPath, tui.CanvasToSVG(c, 4))
}

func writeSVGFile(path, doc string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tui.WriteSVG(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
