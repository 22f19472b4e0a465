package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/gene2go-expander/pkg/config"
	"github.com/ritzau/gene2go-expander/pkg/logging"
	"github.com/ritzau/gene2go-expander/pkg/output"
	"github.com/ritzau/gene2go-expander/pkg/pipeline"
	"github.com/ritzau/gene2go-expander/pkg/store/sqlite"
	"github.com/ritzau/gene2go-expander/pkg/watcher"
	"github.com/ritzau/gene2go-expander/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("gene2go-expander", pflag.ExitOnError)
	config.RegisterFlags(f)
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gene2go-expander --obo go.obo --gene2go gene2go [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Propagates gene to GO annotations up the is_a hierarchy.\n\n")
		f.PrintDefaults()
	}
	_ = f.Parse(os.Args[1:])

	cfg, err := config.Load(f)
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}

	logging.SetOutput(os.Stderr, logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.JSONLogs)

	if err := cfg.Validate(); err != nil {
		var cerr *config.Error
		if errors.As(err, &cerr) {
			logging.Error("invalid configuration", "key", cerr.Key, "error", cerr.Msg)
		} else {
			logging.Error("invalid configuration", "error", err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("gene2go-expander failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	var store *sqlite.Store
	if cfg.SQLite != "" {
		s, err := sqlite.NewStore(cfg.SQLite)
		if err != nil {
			return fmt.Errorf("opening sqlite export: %w", err)
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	var (
		server   *web.Server
		notifier pipeline.Notifier
		serveErr = make(chan error, 1)
	)
	if cfg.Serve {
		server = web.NewServer()
		defer func() { _ = server.Close() }()
		notifier = server

		go func() {
			serveErr <- server.Start(ctx, cfg.Port)
		}()
	}

	runner, err := pipeline.NewRunner(cfg, notifier, store)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, pipeline.Options{Reason: "initial run"})
	if err != nil && !cfg.Watch {
		return err
	}
	report(cfg, server, res)

	if cfg.Watch {
		if err := watch(ctx, cfg, runner, server); err != nil {
			return err
		}
	}

	if cfg.Serve {
		logging.Info("serving results, press Ctrl+C to stop", "port", cfg.Port)
		select {
		case <-ctx.Done():
		case err := <-serveErr:
			return err
		}
	}
	return nil
}

func report(cfg *config.Config, server *web.Server, res *pipeline.Result) {
	if res == nil {
		return
	}
	if server != nil {
		server.SetResult(res)
	}
	output.PrintRunReport(os.Stdout, res.Report(cfg.OBO, cfg.Gene2Go, cfg.MaxChildNum))
}

// watch re-runs the pipeline whenever an input file changes, until ctx ends.
func watch(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, server *web.Server) error {
	fw, err := watcher.NewFileWatcher(cfg.OBO, cfg.Gene2Go)
	if err != nil {
		return err
	}
	defer func() { _ = fw.Stop() }()
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 5*time.Second)
	debouncer.Start(ctx)

	logging.Info("watching inputs for changes, press Ctrl+C to stop")
	for batch := range debouncer.Output() {
		changes := watcher.AnalyzeChanges(batch...)
		logging.Info("input changed", "reason", changes.Reason, "files", changes.ChangedFiles)

		res, err := runner.Run(ctx, pipeline.Options{
			Reason:         changes.Reason,
			ReloadOntology: changes.ReloadOntology,
		})
		if err != nil {
			// The previous result stays in place until the inputs are fixed
			continue
		}
		report(cfg, server, res)
	}
	return nil
}
