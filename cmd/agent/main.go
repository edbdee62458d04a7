// Command agent drives one character through the ArtifactsMMO-style game
// API using GOAP planning, wiring together every core component
// (internal/worldstate, internal/knowledge, internal/action,
// internal/goal, internal/goap, internal/cooldown, internal/execution,
// internal/mission) behind a single supervising loop. Shaped like the
// teacher's cmd/cortex/main.go: flags, signal-driven cancellation, a logger
// built once and threaded by reference into every constructor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/blentz/artifacts-goap/internal/action"
	"github.com/blentz/artifacts-goap/internal/actioncontext"
	"github.com/blentz/artifacts-goap/internal/actions"
	"github.com/blentz/artifacts-goap/internal/config"
	"github.com/blentz/artifacts-goap/internal/cooldown"
	"github.com/blentz/artifacts-goap/internal/diagnostics"
	"github.com/blentz/artifacts-goap/internal/execution"
	"github.com/blentz/artifacts-goap/internal/gameapi"
	"github.com/blentz/artifacts-goap/internal/goal"
	"github.com/blentz/artifacts-goap/internal/knowledge"
	"github.com/blentz/artifacts-goap/internal/mission"
	"github.com/blentz/artifacts-goap/internal/worldstate"
)

func main() {
	configPath := flag.String("config", "config/agent.yaml", "path to agent.yaml")
	once := flag.Bool("once", false, "run a single mission and exit")
	dev := flag.Bool("dev", false, "use a human-readable text log handler instead of JSON")
	dryRun := flag.Bool("dry-run", false, "load configuration and wire components without starting a mission")
	targetLevel := flag.Int("target-level", 0, "override mission.target_level from agent.yaml")
	diagnose := flag.Bool("diagnose", false, "print a world state / knowledge base / goal trace snapshot and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
	if *targetLevel > 0 {
		cfg.Mission.TargetLevel = *targetLevel
	}

	logger := configureLogger(cfg.Logging.Level, cfg.Logging.Dev || *dev)

	knowledgeStore, err := knowledge.NewStore(cfg.Paths.Knowledge)
	if err != nil {
		logger.Error("opening knowledge base", "error", err)
		os.Exit(1)
	}
	knowledgeStore.Base().SetTileCacheDuration(cfg.Thresholds.TileCacheDuration.Duration)

	goalMgr := goal.NewManager()
	if err := goalMgr.LoadConfig(cfg.Paths.GoalTemplates); err != nil {
		logger.Error("loading goal templates", "error", err)
		os.Exit(1)
	}

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

	cooldownMgr := cooldown.NewManager(logger)
	execMgr := execution.NewManager(registry, cooldownMgr, logger)

	store := worldstate.NewStore()
	actx := actioncontext.New()

	refresh := func(ctx context.Context) (gameapi.CharacterResponse, error) {
		return apiClient.GetCharacter(ctx, cfg.API.Character)
	}

	if *diagnose {
		runDiagnose(store, goalMgr, knowledgeStore)
		return
	}

	if *dryRun {
		logger.Info("dry run: components wired, not starting a mission")
		return
	}

	executor := mission.NewExecutor(knowledgeStore, goalMgr, execMgr, registry.All(), store, actx, apiClient, refresh, logger)

	params := mission.Params{
		CharacterName:        cfg.API.Character,
		TargetLevel:          cfg.Mission.TargetLevel,
		MaxMissionIterations: cfg.Mission.MaxMissionIterations,
		MaxGoalFailures:      cfg.Mission.MaxGoalFailures,
		PersistenceBonusBase: cfg.Mission.PersistenceBonusBase,
		HuntingGoalName:      cfg.Mission.HuntingGoalName,
		SafetyGoalName:       cfg.Mission.SafetyGoalName,
		StuckWindow:          cfg.Thresholds.StuckWindow,
		StuckThreshold:       cfg.Thresholds.StuckThreshold,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		reached := executor.ExecuteProgressionMission(ctx, params)
		logger.Info("mission finished", "reached_target_level", reached)
		return
	}

	for ctx.Err() == nil {
		reached := executor.ExecuteProgressionMission(ctx, params)
		logger.Info("mission iteration finished", "reached_target_level", reached)
		if reached {
			params.TargetLevel += 1
			logger.Info("raising target level for next mission", "target_level", params.TargetLevel)
		}
	}
	logger.Info("agent stopped")
}

func runDiagnose(store *worldstate.Store, goalMgr *goal.Manager, knowledgeStore *knowledge.Store) {
	lvl := 1
	if n, ok := store.Get(worldstate.CharacterLevel); ok {
		if f, numOK := n.(int); numOK {
			lvl = f
		}
	}
	snapshot := diagnostics.Snapshot{
		State:          store.Snapshot(),
		GoalMgr:        goalMgr,
		Knowledge:      knowledgeStore.Base(),
		CharacterLevel: lvl,
	}
	if err := diagnostics.Dump(os.Stdout, snapshot); err != nil {
		fmt.Fprintf(os.Stderr, "agent: %v\n", err)
		os.Exit(1)
	}
}

// configureLogger selects a JSON handler for production or a text handler
// for -dev, matching the teacher's configureLogger helper.
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
