package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/santinoo1919/medtrixmap/internal/config"
	"github.com/santinoo1919/medtrixmap/internal/datasource"
	"github.com/santinoo1919/medtrixmap/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check [source...]",
	Short: "Load configured sources in parallel and report which are reachable",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Int("workers", runtime.NumCPU(), "Number of parallel loads")
	checkCmd.Flags().Bool("progress", true, "Show a progress line")
	checkCmd.Flags().Bool("allow-failures", false, "Exit successfully even when a source is unavailable")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, checkCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("check.workers", "workers")
	mustBind("check.progress", "progress")
	mustBind("check.allow_failures", "allow-failures")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	defs := cfg.Sources
	if len(args) > 0 {
		defs = defs[:0:0]
		for _, id := range args {
			def, ok := cfg.Find(id)
			if !ok {
				return fmt.Errorf("unknown source %q", id)
			}
			defs = append(defs, def)
		}
	}

	tasks := make([]worker.Task, 0, len(defs))
	for _, def := range defs {
		src, err := datasource.NewSource(def, logger)
		if err != nil {
			return err
		}
		tasks = append(tasks, worker.Task{Source: src})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progress := worker.NewProgress(len(tasks), viper.GetBool("check.progress"))
	pool := worker.New(worker.Config{
		Workers:    viper.GetInt("check.workers"),
		Loader:     datasource.NewLoader(datasource.LoaderConfig{Logger: logger}),
		OnProgress: progress.Callback(),
	})

	logger.Info("checking sources", "count", len(tasks), "workers", viper.GetInt("check.workers"))
	results := pool.Run(ctx, tasks)
	progress.Done()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("source unavailable", "source", r.Task.Source.ID(), "elapsed", r.Elapsed, "error", r.Err)
			continue
		}
		logger.Info("source loaded",
			"source", r.Task.Source.ID(),
			"features", r.Features,
			"skipped", r.Skipped,
			"elapsed", r.Elapsed,
		)
	}
	logger.Info(progress.Summary())

	if failed > 0 && !viper.GetBool("check.allow_failures") {
		return fmt.Errorf("%d of %d sources unavailable", failed, len(results))
	}
	return nil
}
