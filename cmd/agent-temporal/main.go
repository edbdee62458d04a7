// Command agent-temporal hosts the durable Mission Executor
// (internal/temporalrt) as a Temporal worker: the same planning and action
// set cmd/agent runs in-process, but with every action dispatch and
// character refresh running as a Temporal Activity so a worker restart
// resumes mid-mission instead of losing progress.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actions"
	"github.com/blentz/artifacts-goap/internal/config"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/temporalrt"
)

func main() {
	configPath := flag.String("config", "config/agent.yaml", "path to agent.yaml")
	dev := flag.Bool("dev", false, "use a human-readable text log handler instead of JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent-temporal: %v\n", err)
		os.Exit(1)
	}

	logger := configureLogger(cfg.Logging.Level, cfg.Logging.Dev || *dev)

	knowledgeStore, err := knowledge.NewStore(cfg.Paths.Knowledge)
	if err != nil {
		logger.Error("opening knowledge base", "error", err)
		os.Exit(1)
	}
	knowledgeStore.Base().SetTileCacheDuration(cfg.Thresholds.TileCacheDuration.Duration)

	registry := action.NewRegistry(logger)
	if err := registry.LoadDeclarations(cfg.Paths.Actions); err != nil {
		logger.Error("loading action declarations", "error", err)
		os.Exit(1)
	}
	actions.Register(registry, actions.Deps{
		Character:  cfg.API.Character,
		Knowledge:  knowledgeStore,
		Hunt:       cfg.Hunt,
		HuntRadius: cfg.Thresholds.DefaultSearchRadius,
	})

	apiClient := gameapi.NewHTTPClient(cfg.API.BaseURL, cfg.API.Token, cfg.API.RequestsPerSecond, cfg.API.Burst, cfg.API.Timeout.Duration)

	temporalClient, err := client.Dial(client.Options{HostPort: cfg.Temporal.HostPort})
	if err != nil {
		logger.Error("connecting to temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	acts := &temporalrt.Activities{API: apiClient, Character: cfg.API.Character, Registry: registry}
	w := temporalrt.NewWorker(temporalClient, cfg.Temporal.TaskQueue, acts)

	logger.Info("starting temporal worker", "task_queue", cfg.Temporal.TaskQueue, "host_port", cfg.Temporal.HostPort)
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("worker stopped", "error", err)
		os.Exit(1)
	}
}

func configureLogger(level string, dev bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if dev {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
