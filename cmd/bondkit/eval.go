package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/san-kum/bondkit/internal/compute"
	"github.com/san-kum/bondkit/internal/config"
	"github.com/san-kum/bondkit/internal/fdcheck"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/system"
	"github.com/san-kum/bondkit/internal/tui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func buildSystem[T ndarray.Float](cfg *config.Config) (*system.System[T], error) {
	return system.Build[T](cfg, system.WithLogger[T](slog.Default()))
}

func evalSystem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Precision == "f32" {
		return evaluate[float32](cmd.OutOrStdout(), cfg)
	}
	return evaluate[float64](cmd.OutOrStdout(), cfg)
}

func evaluate[T ndarray.Float](w io.Writer, cfg *config.Config) error {
	sys, err := buildSystem[T](cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := sys.Evaluate(nil)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	var elemSize int
	var zero T
	if _, ok := any(zero).(float32); ok {
		elemSize = 4
	} else {
		elemSize = 8
	}
	outBytes := uint64(elemSize * (1 + out.DEDp.Len() + out.DEDx.Len() + out.D2EDxDp.Len()))

	summary := tui.Box(sys.Name,
		tui.KV("atoms", humanize.Comma(int64(sys.NumAtoms()))),
		tui.KV("bonds", humanize.Comma(int64(len(sys.Bonds)))),
		tui.KV("params", humanize.Comma(int64(sys.NumParams()))),
		tui.KV("precision", cfg.Precision),
		tui.KV("backend", sys.Backend.Name()),
		tui.KV("outputs", humanize.Bytes(outBytes)),
		tui.KV("elapsed", elapsed.String()),
		"",
		tui.KV("energy", fmt.Sprintf("%.10g", float64(out.Energy()))),
		tui.KV("max |dE/dx|", fmt.Sprintf("%.6g", maxRowNorm(out.DEDx))),
	)
	fmt.Fprintln(w, summary)

	d, n := sys.NumDims(), sys.NumAtoms()
	rows := make([][]string, sys.NumParams())
	for p := range rows {
		label := fmt.Sprintf("p%d", p)
		if p < len(sys.ParamLabels) {
			label = sys.ParamLabels[p]
		}
		mixed := out.D2EDxDp.Data()[p*n*d : (p+1)*n*d]
		rows[p] = []string{
			label,
			fmt.Sprintf("%.6g", float64(sys.Params.Data()[p])),
			fmt.Sprintf("%.6g", float64(out.DEDp.Data()[p])),
			fmt.Sprintf("%.6g", norm(mixed)),
		}
	}
	fmt.Fprintln(w, tui.Table([]string{"param", "value", "dE/dp", "|d2E/dxdp|"}, rows))
	return nil
}

func maxRowNorm[T ndarray.Float](a *ndarray.Array[T]) float64 {
	d := a.Dim(1)
	if d == 0 {
		return 0
	}
	var peak float64
	data := a.Data()
	for i := 0; i+d <= len(data); i += d {
		peak = math.Max(peak, norm(data[i:i+d]))
	}
	return peak
}

func norm[T ndarray.Float](v []T) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func checkSystem(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.Precision == "f32" {
		return check[float32](cmd.OutOrStdout(), cfg)
	}
	return check[float64](cmd.OutOrStdout(), cfg)
}

func check[T ndarray.Float](w io.Writer, cfg *config.Config) error {
	sys, err := buildSystem[T](cfg)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(checkSeed))
	dxdps := ndarray.MustZeros[T](sys.NumParams(), sys.NumAtoms(), sys.NumDims())
	for i := range dxdps.Data() {
		dxdps.Data()[i] = T(rng.Float64() - 0.5)
	}

	opts := fdcheck.DefaultOptions[T]()
	if fdStep > 0 {
		opts.Step = fdStep
	}
	if fdTolerance > 0 {
		opts.Tolerance = fdTolerance
	}

	rep, err := fdcheck.Check[T](sys.Potential, sys.Coords, sys.Params, dxdps, opts)
	if err != nil {
		return err
	}

	status := tui.StatusOK.Render("PASS")
	if !rep.Pass() {
		status = tui.StatusFail.Render("FAIL")
	}
	fmt.Fprintln(w, tui.Box(sys.Name+" "+status,
		tui.KV("energy", fmt.Sprintf("%.10g", rep.Energy)),
		tui.KV("step", fmt.Sprintf("%g", opts.Step)),
		tui.KV("tolerance", fmt.Sprintf("%g", opts.Tolerance)),
		tui.KV("dE/dx err", fmt.Sprintf("%.3e", rep.MaxErrDEDx)),
		tui.KV("dE/dp err", fmt.Sprintf("%.3e", rep.MaxErrDEDp)),
		tui.KV("d2E/dxdp err", fmt.Sprintf("%.3e", rep.MaxErrD2EDx)),
	))

	if failures := rep.Failures(); len(failures) > 0 {
		return fmt.Errorf("derivative check failed: %v", failures)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	}

	rows := make([][]string, 0, len(config.Presets))
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		rows = append(rows, []string{
			name,
			humanize.Comma(int64(len(cfg.Atoms))),
			humanize.Comma(int64(len(cfg.Bonds))),
			humanize.Comma(int64(len(cfg.ForceField.HarmonicBond))),
			fmt.Sprintf("%g", cfg.MD.Dt),
		})
	}
	fmt.Fprintln(w, tui.Table([]string{"preset", "atoms", "bonds", "bond types", "dt"}, rows))
	return nil
}

func listBackends(cmd *cobra.Command, args []string) error {
	active := compute.GetBackend().Name()
	rows := make([][]string, 0, 2)
	for _, name := range []string{"cpu", "cuda"} {
		available := "yes"
		b, err := compute.Lookup(name)
		if err != nil {
			available = "no"
		}
		detail := ""
		if cpu, ok := b.(*compute.CPUBackend); ok {
			detail = fmt.Sprintf("%d workers", cpu.Workers())
		}
		mark := ""
		if name == active {
			mark = "*"
		}
		rows = append(rows, []string{mark, name, available, detail})
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.Table([]string{"", "backend", "available", "detail"}, rows))
	return nil
}
