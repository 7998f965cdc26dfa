package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vjranagit/memtrend/pkg/archive"
	"github.com/vjranagit/memtrend/pkg/runner"
	"github.com/vjranagit/memtrend/pkg/sampler"
	"github.com/vjranagit/memtrend/pkg/store"
	"github.com/vjranagit/memtrend/pkg/workload"
)

var (
	runWorkload   string
	runIterations int
	runInterval   int
	runOut        string
	runArchive    string
	runJournal    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload and record its resident memory series",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runWorkload, "workload",
		getEnvDefault("MEMTREND_WORKLOAD", "leaky"),
		"workload to run (leaky or clean)")
	runCmd.Flags().IntVar(&runIterations, "iterations", 0,
		"workload iterations (default from config)")
	runCmd.Flags().IntVar(&runInterval, "interval", 0,
		"iterations between samples (default from config)")
	runCmd.Flags().StringVar(&runOut, "out", "",
		"output CSV path (default <workload>_memory_<timestamp>.csv)")
	runCmd.Flags().StringVar(&runArchive, "archive", "",
		"archive directory to store the run in (empty disables)")
	runCmd.Flags().StringVar(&runJournal, "journal", "",
		"journal file for crash-safe sample capture (empty disables)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	w, err := workloadByName(runWorkload)
	if err != nil {
		return err
	}

	iterations := cfg.Run.Iterations
	if cmd.Flags().Changed("iterations") {
		iterations = runIterations
	}
	interval := cfg.Run.Interval
	if cmd.Flags().Changed("interval") {
		interval = runInterval
	}

	tracker, err := sampler.New(w.Name())
	if err != nil {
		return fmt.Errorf("failed to create tracker: %w", err)
	}

	r := &runner.Runner{Interval: interval, Log: log.StandardLogger()}

	if runJournal != "" {
		journal, err := archive.NewJournal(runJournal)
		if err != nil {
			return err
		}
		defer journal.Close()
		r.Sink = journal
	}

	ctx, cancel := signalContext()
	defer cancel()

	startedAt := time.Now()
	result, err := r.Run(ctx, tracker, w, iterations)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	outPath := runOut
	if outPath == "" {
		name := fmt.Sprintf("%s_memory_%s.csv", w.Name(), startedAt.Format("20060102-150405"))
		outPath = filepath.Join(cfg.Run.OutputDir, name)
	}
	if err := store.Save(result.Series, outPath); err != nil {
		return err
	}
	log.WithField("path", outPath).Info("series saved")

	if runArchive != "" {
		if err := archiveRun(runArchive, w.Name(), startedAt, result); err != nil {
			return err
		}
	}

	first, _ := result.Series.First()
	last, _ := result.Series.Last()
	log.WithFields(log.Fields{
		"workload": w.Name(),
		"initial":  fmtMB(first.Value),
		"final":    fmtMB(last.Value),
		"growth":   fmtMB(last.Value - first.Value),
	}).Info("memory growth measured")

	return nil
}

func workloadByName(name string) (workload.Workload, error) {
	switch name {
	case "leaky":
		return workload.NewLeaky(), nil
	case "clean":
		return workload.NewClean(), nil
	default:
		return nil, fmt.Errorf("unknown workload %q (want leaky or clean)", name)
	}
}

func archiveRun(path, name string, startedAt time.Time, result runner.Result) error {
	acfg := cfg.ToArchiveConfig()
	acfg.Path = path

	arc, err := archive.Open(acfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer arc.Close()

	run := &archive.Run{
		ID:         fmt.Sprintf("%s-%s", name, startedAt.Format("20060102-150405")),
		Label:      name,
		Workload:   name,
		CreatedAt:  startedAt,
		Iterations: result.Iterations,
		StepErrors: result.StepErrors,
		Samples:    result.Series.Samples,
	}

	if err := arc.Put(context.Background(), run); err != nil {
		return fmt.Errorf("failed to archive run: %w", err)
	}

	log.WithField("run_id", run.ID).Info("run archived")
	return nil
}
