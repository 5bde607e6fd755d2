package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aigenflow/internal/batch"
	"aigenflow/internal/cache"
	"aigenflow/internal/config"
	"aigenflow/internal/fallback"
	"aigenflow/internal/gateway"
	"aigenflow/internal/pipeline"
	"aigenflow/internal/prompt"
	"aigenflow/internal/router"
	"aigenflow/internal/summarizer"
	"aigenflow/internal/tokens"
	"aigenflow/internal/types"
)

// app holds the wired pipeline stack: registry -> fallback chain ->
// cache -> router -> executor -> orchestrator.
type app struct {
	registry     *gateway.Registry
	chain        *fallback.Chain
	cacheMgr     *cache.Manager
	tracker      *tokens.Tracker
	orchestrator *pipeline.Orchestrator
	gateways     []*gateway.WebGateway
}

var providerTags = []string{
	types.ProviderClaude,
	types.ProviderGemini,
	types.ProviderChatGPT,
	types.ProviderPerplexity,
}

func buildApp(cfg *config.Config) (*app, error) {
	a := &app{registry: gateway.NewRegistry()}

	gwCfg := gateway.DefaultConfig()
	gwCfg.DebuggerURL = cfg.Browser.DebuggerURL
	gwCfg.Headless = cfg.Browser.Headless
	gwCfg.SessionDir = cfg.Browser.SessionDir
	selectors := gateway.DefaultSelectors()
	for _, tag := range providerTags {
		gw := gateway.NewWebGateway(tag, gwCfg, selectors[tag])
		gw.LoadSession()
		a.registry.Register(tag, gw)
		a.gateways = append(a.gateways, gw)
	}

	chainRetries := cfg.Fallback.MaxRetries
	if chainRetries == 0 {
		chainRetries = -1
	}
	a.chain = fallback.NewChain(a.registry, fallback.Options{
		Providers:      cfg.Fallback.ProviderOrder,
		MaxRetries:     chainRetries,
		MaxFallbacks:   cfg.Fallback.MaxFallbacks,
		BreakerEnabled: true,
		Threshold:      cfg.Fallback.BreakerThreshold,
		BreakerTimeout: cfg.BreakerTimeout(),
	})

	var sender gateway.Sender = a.chain
	if cfg.Cache.Enabled {
		mgr, err := cache.NewManager(cfg.Cache.Dir, cfg.CacheTTL(), cfg.Cache.MaxSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("cache init: %w", err)
		}
		a.cacheMgr = mgr
		sender = cache.NewCachedSender(a.chain, mgr)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home dir: %w", err)
	}
	tracker, err := tokens.NewTracker(filepath.Join(home, ".aigenflow"), tokens.NewCostCalculator(), tokens.Budgets{
		DailyUSD:   cfg.Budget.DailyUSD,
		WeeklyUSD:  cfg.Budget.WeeklyUSD,
		MonthlyUSD: cfg.Budget.MonthlyUSD,
	})
	if err != nil {
		return nil, fmt.Errorf("usage tracker init: %w", err)
	}
	a.tracker = tracker

	counter := tokens.NewCounter()
	rt := router.New(sender, nil, time.Duration(cfg.Pipeline.TimeoutSeconds)*time.Second).
		WithAccounting(counter, tracker)

	exec := pipeline.NewExecutor(rt, prompt.NewRenderer())
	if cfg.Batch.Enabled {
		exec.WithBatch(batch.NewProcessor(batch.NewQueue(cfg.Batch.MaxBatchSize), rt))
	}

	summ := summarizer.New(sender, counter, summarizer.Options{
		Disabled:    !cfg.Summarizer.Enabled,
		Threshold:   cfg.Summarizer.Threshold,
		TargetRatio: cfg.Summarizer.TargetRatio,
		MaxRetries:  cfg.Summarizer.MaxRetries,
	})

	a.orchestrator = pipeline.NewOrchestrator(exec, rt, summ, cfg.Pipeline.OutputDir)
	return a, nil
}

func (a *app) Close() {
	if a.tracker != nil {
		_ = a.tracker.Save()
	}
	for _, gw := range a.gateways {
		_ = gw.Close()
	}
}
