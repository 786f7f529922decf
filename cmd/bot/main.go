package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"voxelbot.ai/internal/bot"
	"voxelbot.ai/internal/bot/blockcache"
	"voxelbot.ai/internal/bot/cyclelog"
	"voxelbot.ai/internal/bot/journal"
	"voxelbot.ai/internal/bot/modes"
	"voxelbot.ai/internal/bot/nav"
	"voxelbot.ai/internal/bot/txn"
	"voxelbot.ai/internal/config"
	"voxelbot.ai/internal/remote"
	"voxelbot.ai/internal/voxel"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "agent config path (empty: built-in defaults)")
		url     = flag.String("url", "", "ws url (overrides config)")
		name    = flag.String("name", "", "agent name (overrides config)")
		entity  = flag.String("entity", "", "entity id (overrides config)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if strings.TrimSpace(*url) != "" {
		cfg.Server.URL = *url
	}
	if strings.TrimSpace(*name) != "" {
		cfg.Server.AgentName = *name
	}
	if strings.TrimSpace(*entity) != "" {
		cfg.Server.EntityID = *entity
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	retry := cfg.RetryPolicy()

	var client *remote.Client
	err = txn.Retry(ctx, retry, func(ctx context.Context) error {
		dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		var derr error
		client, derr = remote.Dial(dialCtx, cfg.Server.URL, cfg.Server.AgentName, cfg.Server.EntityID, logger)
		return derr
	})
	if err != nil {
		logger.Fatalf("connect: %v", err)
	}
	defer client.Close()

	jnl, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		logger.Fatalf("journal: %v", err)
	}
	defer jnl.Close()
	if stale, err := jnl.Unresolved(); err == nil && len(stale) > 0 {
		logger.Printf("%d submissions were unresolved at last shutdown", len(stale))
	}

	cycles := cyclelog.NewWriter(cfg.CycleLog.Dir)
	defer cycles.Close()

	obs := remote.NewObserver(client)
	ledger := remote.NewLedger(client)
	exec := txn.New(ledger, logger,
		txn.WithRecorder(jnl),
		txn.WithDefaultGas(cfg.GasProfile()),
		txn.WithMaxOutstanding(cfg.Executor.MaxOutstanding),
	)
	cache := blockcache.New(obs.Block, obs.Blocks)
	planner := nav.New(cache, cfg.Passable(), cfg.CostModel())

	agent := &bot.Agent{
		Log:     logger,
		Obs:     obs,
		Exec:    exec,
		Blocks:  cache,
		Planner: planner,
		Retry:   retry,
		Activate: txn.Call{
			System:      "entity",
			Fn:          "activate()",
			Description: "activate entity",
		},
	}

	harvest := modes.HarvestConfig{
		Targets:      cfg.Modes.Harvest.Targets,
		SearchRadius: cfg.Modes.Harvest.SearchRadius,
		BatchSize:    cfg.Movement.BatchSize,
		BatchDelay:   cfg.BatchDelay(),
	}
	if c := cfg.Modes.Harvest.Chest; c != nil {
		harvest.Chest = voxel.FromArray(*c)
		harvest.HasChest = true
	}

	sched := bot.NewScheduler(agent, logger, cycles)
	mustRegister(logger, sched, modes.NewSurvival(cfg.Modes.Survival.EnergyThreshold, cfg.Modes.Survival.FoodItem))
	mustRegister(logger, sched, modes.NewHarvest(harvest))

	logger.Printf("running as %s (entity %s) against %s", cfg.Server.AgentName, client.EntityID(), cfg.Server.URL)
	if err := sched.RunForever(ctx); err != nil && ctx.Err() == nil {
		logger.Printf("agent stopped: %v", err)
		os.Exit(1)
	}
}

func mustRegister(logger *log.Logger, s *bot.Scheduler, m bot.Mode) {
	if err := s.Register(m); err != nil {
		logger.Fatalf("register mode: %v", err)
	}
}
