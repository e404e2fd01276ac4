package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/storage"
	"github.com/san-kum/rigidsim/internal/stream"
	"github.com/san-kum/rigidsim/internal/tui"
	"github.com/san-kum/rigidsim/internal/world"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	dt         float64
	duration   float64
	gravityY   float64
	iterations int
	workers    int
	padding    float64
	configFile string
	preset     string
	addr       string
	noSave     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rigidsim",
		Short: "rigid body simulation lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the live viewer when no command given
			return tui.Run(config.DefaultConfig(), "drop")
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".rigidsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run simulation headless and record the trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	benchCmd := &cobra.Command{
		Use:   "bench [scene]",
		Short: "benchmark scene",
		Args:  cobra.ExactArgs(1),
		RunE:  benchScene,
	}
	benchCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "narrow phase workers")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run simulation with live terminal visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	serveCmd := &cobra.Command{
		Use:   "serve [scene]",
		Short: "stream simulation snapshots over websocket",
		Args:  cobra.ExactArgs(1),
		RunE:  serveScene,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	scenesCmd := &cobra.Command{
		Use:   "scenes",
		Short: "list available scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range scene.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list available presets for a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scene: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportJSONCmd, benchCmd, liveCmd, serveCmd, scenesCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&gravityY, "gravity", config.DefaultGravity, "gravity along y")
	cmd.Flags().IntVar(&iterations, "iterations", config.DefaultIterations, "solver iterations")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "narrow phase workers")
	cmd.Flags().Float64Var(&padding, "padding", config.DefaultPadding, "broad phase AABB padding")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig builds the effective config: defaults, then preset, then
// config file, with explicitly set CLI flags taking precedence over both.
func resolveConfig(cmd *cobra.Command, sceneName string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(sceneName, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(sceneName))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("gravity") {
		cfg.Gravity.Y = gravityY
	}
	if cmd.Flags().Changed("iterations") {
		cfg.Iterations = iterations
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	if cmd.Flags().Changed("padding") {
		cfg.BroadPhase.Padding = padding
	}

	cfg.Scene = sceneName
	return cfg, nil
}

func buildWorld(cfg *config.Config) (*world.World, error) {
	w := world.New(cfg)
	if err := scene.Build(cfg.Scene, w); err != nil {
		return nil, err
	}
	return w, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	w, err := buildWorld(cfg)
	if err != nil {
		return err
	}

	steps := int(cfg.Duration / cfg.Dt)
	traj := &storage.Trajectory{
		Times:  make([]float64, 0, steps),
		Series: make([][]float64, 0, steps),
	}

	fmt.Printf("running %s scene (%d steps)...\n", cfg.Scene, steps)
	start := time.Now()

	var last world.StepInfo
	unstable := 0
	for i := 0; i < steps; i++ {
		info, err := w.Step(cfg.Dt)
		if err != nil {
			return err
		}
		last = info
		unstable += len(info.Unstable)

		row := []float64{info.KineticEnergy, float64(info.Awake), float64(info.Contacts)}
		for _, snap := range w.Snapshot() {
			if snap.Motion == world.Static {
				continue
			}
			row = append(row, snap.Position.X(), snap.Position.Y(), snap.Position.Z())
		}
		traj.Times = append(traj.Times, info.Time)
		traj.Series = append(traj.Series, row)
	}

	elapsed := time.Since(start)

	metrics := map[string]float64{
		"final_kinetic_energy": last.KineticEnergy,
		"final_awake":          float64(last.Awake),
		"final_contacts":       float64(last.Contacts),
		"unstable_bodies":      float64(unstable),
		"steps_per_sec":        float64(steps) / elapsed.Seconds(),
	}

	fmt.Printf("completed in %v\n", elapsed)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunMetadata{
			Scene:      cfg.Scene,
			Dt:         cfg.Dt,
			Duration:   cfg.Duration,
			Iterations: cfg.Iterations,
			Bodies:     w.BodyCount(),
			Metrics:    metrics,
		}, traj)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Printf("steps: %d\n", steps)
	fmt.Println("\nmetrics:")
	for name, val := range metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
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
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tDURATION\tDT\tITER\tBODIES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Iterations,
			run.Bodies,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	if len(traj.Series) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("samples: %d\n\n", len(traj.Series))

	column := func(idx int) []float64 {
		data := make([]float64, len(traj.Series))
		for i := range traj.Series {
			if idx < len(traj.Series[i]) {
				data[i] = traj.Series[i][idx]
			}
		}
		return data
	}

	fmt.Println(asciigraph.Plot(column(0),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("kinetic energy"),
	))
	fmt.Println()

	fmt.Println(asciigraph.Plot(column(2),
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("contact count"),
	))
	fmt.Println()

	// Heights of the first few non-static bodies.
	bodies := (len(traj.Series[0]) - 3) / 3
	maxPlots := 4
	if bodies > maxPlots {
		bodies = maxPlots
	}
	for b := 0; b < bodies; b++ {
		fmt.Println(asciigraph.Plot(column(3+b*3+1),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("b%d height", b)),
		))
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}

	if len(traj.Series) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"time"}
	for i := range traj.Series[0] {
		header = append(header, fmt.Sprintf("c%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range traj.Series {
		row := []string{strconv.FormatFloat(traj.Times[i], 'f', 6, 64)}
		for _, val := range traj.Series[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}

	return storage.ExportJSONStdout(meta, traj)
}

func benchScene(cmd *cobra.Command, args []string) error {
	sceneName := args[0]

	durations := []float64{1.0, 5.0, 10.0}
	iterationCounts := []int{4, 10, 20}

	fmt.Printf("benchmarking %s\n\n", sceneName)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tITER\tSTEPS\tBODIES\tTIME\tSTEPS/SEC")

	for _, dur := range durations {
		for _, iters := range iterationCounts {
			cfg := config.DefaultConfig()
			cfg.Scene = sceneName
			cfg.Iterations = iters
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}

			sim, err := buildWorld(cfg)
			if err != nil {
				return err
			}

			steps := int(dur / cfg.Dt)
			start := time.Now()
			for i := 0; i < steps; i++ {
				if _, err := sim.Step(cfg.Dt); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.1fs\t%d\t%d\t%d\t%v\t%.0f\n",
				dur, iters, steps, sim.BodyCount(), elapsed,
				float64(steps)/elapsed.Seconds())
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}

	// Per-step cost over a fresh run at defaults.
	cfg := config.DefaultConfig()
	cfg.Scene = sceneName
	sim, err := buildWorld(cfg)
	if err != nil {
		return err
	}

	steps := int(5.0 / cfg.Dt)
	stepMs := make([]float64, 0, steps)
	for i := 0; i < steps; i++ {
		start := time.Now()
		if _, err := sim.Step(cfg.Dt); err != nil {
			return err
		}
		stepMs = append(stepMs, float64(time.Since(start).Microseconds())/1000)
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(stepMs,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("step time (ms)"),
	))

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	return tui.Run(cfg, cfg.Scene)
}

func serveScene(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	w, err := buildWorld(cfg)
	if err != nil {
		return err
	}

	srv := stream.NewServer()
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", srv.Handler())

	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		httpSrv.Shutdown(context.Background())
	}()

	go func() {
		reset := func() (*world.World, error) { return buildWorld(cfg) }
		if err := stream.RunLoop(ctx, w, cfg, srv, reset); err != nil && err != context.Canceled {
			fmt.Fprintf(os.Stderr, "stream loop: %v\n", err)
		}
	}()

	fmt.Printf("serving %s scene on ws://%s/ws\n", cfg.Scene, addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
