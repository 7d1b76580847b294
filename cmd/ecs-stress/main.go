// Command ecs-stress drives synthetic entity workloads through the
// scheduler and reports per-task timings.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ashkettle/ecs"
)

const (
	flagScenario    = "scenario"
	flagEntities    = "entities"
	flagBatches     = "batches"
	flagWorkers     = "workers"
	flagSeed        = "seed"
	flagChurn       = "churn"
	flagProfile     = "profile"
	flagMetricsAddr = "metrics-addr"
	flagVerbose     = "verbose"
)

func main() {
	if err := buildApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("ecs-stress: %v", err))
		os.Exit(1)
	}
}

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = "ecs-stress"
	app.Usage = "Drive synthetic entity workloads through the scheduler"
	app.Commands = []*cli.Command{
		newRunCommand(),
		newScenarioCommand(),
	}
	return app
}

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run a stress scenario and report per-task timings",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagScenario,
				Usage: "Path to a YAML scenario file; omit for the baked-in defaults",
			},
			&cli.IntFlag{
				Name:  flagEntities,
				Usage: "Override the entity population",
			},
			&cli.IntFlag{
				Name:  flagBatches,
				Usage: "Override the number of batches",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "Override the scheduler worker count",
			},
			&cli.Int64Flag{
				Name:  flagSeed,
				Usage: "Override the churn seed",
			},
			&cli.Float64Flag{
				Name:  flagChurn,
				Usage: "Override the per-batch churn rate",
			},
			&cli.StringFlag{
				Name:  flagProfile,
				Usage: "Write a profile to the working directory: cpu or mem",
			},
			&cli.StringFlag{
				Name:  flagMetricsAddr,
				Usage: "Serve Prometheus metrics on this address while running",
			},
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "Log task and batch completions",
			},
		},
		Action: runStress,
	}
}

func newScenarioCommand() *cli.Command {
	return &cli.Command{
		Name:  "scenario",
		Usage: "Print the default scenario as YAML, ready to edit",
		Action: func(c *cli.Context) error {
			out, err := yaml.Marshal(DefaultScenario())
			if err != nil {
				return err
			}
			_, err = c.App.Writer.Write(out)
			return err
		},
	}
}

func runStress(c *cli.Context) error {
	scenario := DefaultScenario()
	if path := c.String(flagScenario); path != "" {
		loaded, err := LoadScenario(path)
		if err != nil {
			return err
		}
		scenario = loaded
	}
	applyOverrides(c, &scenario)
	if err := scenario.Validate(); err != nil {
		return err
	}

	switch c.String(flagProfile) {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", c.String(flagProfile))
	}

	logger := ecs.NewNopLogger()
	if c.Bool(flagVerbose) {
		zl, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() { _ = zl.Sync() }()
		logger = ecs.NewZapLogger(zl)
	}

	stats := newStatsObserver()
	observers := []ecs.Observer{stats}
	if c.Bool(flagVerbose) {
		observers = append(observers, ecs.NewLoggingObserver(logger))
	}
	registry := prometheus.NewRegistry()
	metricsAddr := c.String(flagMetricsAddr)
	if metricsAddr != "" {
		observers = append(observers, ecs.NewPrometheusObserver(registry))
	}

	sim, err := newSimulation(scenario, logger, ecs.NewCompositeObserver(observers...))
	if err != nil {
		return err
	}
	defer sim.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: metricsAddr, Handler: mux}
		group.Go(func() error {
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	started := time.Now()
	group.Go(func() error {
		// Stopping the simulation also stops the metrics listener.
		defer cancel()
		return sim.RunBatches(ctx)
	})
	if err := group.Wait(); err != nil {
		return err
	}

	writeReport(c.App.Writer, scenario, stats, sim.Population(), sim.Checksum(), time.Since(started))
	return nil
}

func applyOverrides(c *cli.Context, scenario *Scenario) {
	if c.IsSet(flagEntities) {
		scenario.Entities = c.Int(flagEntities)
	}
	if c.IsSet(flagBatches) {
		scenario.Batches = c.Int(flagBatches)
	}
	if c.IsSet(flagWorkers) {
		scenario.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagSeed) {
		scenario.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagChurn) {
		scenario.ChurnRate = c.Float64(flagChurn)
	}
}
