// Package app wires the executor's components from a loaded config. Both
// binaries build through here so they share one construction path.
package app

import (
	"fmt"

	"github.com/aman-zulfiqar/goblin-executor/internal/buffer"
	"github.com/aman-zulfiqar/goblin-executor/internal/cache"
	"github.com/aman-zulfiqar/goblin-executor/internal/config"
	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/aman-zulfiqar/goblin-executor/internal/ledger"
	"github.com/aman-zulfiqar/goblin-executor/internal/quotes"
	"github.com/aman-zulfiqar/goblin-executor/internal/routes"
	"github.com/aman-zulfiqar/goblin-executor/internal/swapengine"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// App holds the process-wide components. It is built once at startup.
type App struct {
	Ledger   *ledger.Client
	Jupiter  *jupiter.Client
	Resolver *routes.Resolver
	Quotes   *quotes.Store
	Engine   *swapengine.Engine

	redis *redis.Client
}

func New(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	hardCap, err := cfg.HardCapLamports()
	if err != nil {
		return nil, fmt.Errorf("hard cap: %w", err)
	}

	a := &App{}

	a.Ledger = ledger.New(ledger.Config{
		RPCURL:       cfg.RPCUrl,
		Timeout:      cfg.RPCTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		PrivateKey:   cfg.PrivateKey,
		Commitment:   cfg.Commitment,
		Logger:       logger,
	})

	a.Jupiter = jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey).WithTokensURL(cfg.JupiterTokensURL)

	// The shared catalog is optional; without Redis each process keeps its own.
	var shared routes.SharedCatalog
	if cfg.RedisAddr != "" {
		cc, rc, err := cache.NewCatalogCache(cfg.RedisAddr, logger)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, token catalog stays in-process")
		} else {
			shared = cc
			a.redis = rc
		}
	}

	a.Resolver = routes.NewResolver(routes.Config{
		Source: a.Jupiter,
		Shared: shared,
		TTL:    cfg.CatalogTTL,
		Logger: logger,
	})

	a.Quotes = quotes.NewStore(cfg.QuoteTTL, nil)

	a.Engine = swapengine.New(swapengine.Config{
		HardCapLamports:    hardCap,
		Buffer:             buffer.NewCalculator(cfg.TokenAccountSize, cfg.BaseFeeLamports, cfg.PriorityTipLamports),
		DefaultSlippageBps: cfg.DefaultSlippageBps,
		ComputeUnitPrice:   cfg.ComputeUnitPrice,
		QuoteTimeout:       cfg.QuoteTimeout,
		BuildTimeout:       cfg.BuildTimeout,
		ConfirmTimeout:     cfg.ConfirmTimeout,
	}, swapengine.Deps{
		Ledger:     swapengine.FromLedger(a.Ledger),
		Aggregator: a.Jupiter,
		Resolver:   a.Resolver,
		Quotes:     a.Quotes,
		Logger:     logger,
	})

	logger.WithFields(logrus.Fields{
		"hard_cap_lamports": hardCap,
		"quote_ttl":         cfg.QuoteTTL,
		"shared_catalog":    shared != nil,
	}).Info("executor initialized")

	return a, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
