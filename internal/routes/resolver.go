// Package routes maps asset symbols to mint addresses.
//
// Lookup order is the built-in table, then a literal mint passthrough, then
// the aggregator token catalog (exact symbol first, substring second). The
// catalog is held in memory for a fixed TTL and optionally shared across
// instances through a SharedCatalog.
package routes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/aman-zulfiqar/goblin-executor/internal/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("route not found")

// ErrCatalogUnavailable means the catalog has never loaded and the
// aggregator could not be reached.
var ErrCatalogUnavailable = errors.New("token catalog unavailable")

// Token is a resolved catalog entry. Decimals is -1 when unknown.
type Token struct {
	Symbol   string `json:"symbol"`
	Mint     string `json:"mint"`
	Decimals int    `json:"decimals"`
}

// CatalogSource fetches the full token catalog.
type CatalogSource interface {
	Tokens(ctx context.Context) ([]jupiter.Token, error)
}

// Snapshot is a catalog as fetched from the aggregator at FetchedAt.
type Snapshot struct {
	Tokens    []jupiter.Token `json:"tokens"`
	FetchedAt time.Time       `json:"fetchedAt"`
}

// SharedCatalog is an out-of-process catalog snapshot. Load reports false
// on a miss.
type SharedCatalog interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Store(ctx context.Context, snap Snapshot, ttl time.Duration) error
}

type Config struct {
	Source CatalogSource
	Shared SharedCatalog // optional
	TTL    time.Duration
	Logger *logrus.Logger
	Now    func() time.Time
}

type Resolver struct {
	source CatalogSource
	shared SharedCatalog
	ttl    time.Duration
	logger *logrus.Logger
	now    func() time.Time

	static map[string]Token // upper-case symbol -> token

	mu        sync.Mutex
	catalog   []jupiter.Token
	fetchedAt time.Time
}

func NewResolver(cfg Config) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = constants.CatalogTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	static := make(map[string]Token, len(constants.TokenSymbols))
	for mint, sym := range constants.TokenSymbols {
		static[sym] = Token{Symbol: sym, Mint: mint, Decimals: int(constants.TokenDecimals[sym])}
	}

	return &Resolver{
		source: cfg.Source,
		shared: cfg.Shared,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
		now:    cfg.Now,
		static: static,
	}
}

// Resolve accepts a symbol or a literal mint address.
func (r *Resolver) Resolve(ctx context.Context, symbolOrMint string) (Token, error) {
	s := strings.TrimSpace(symbolOrMint)
	if s == "" {
		return Token{}, ErrNotFound
	}

	if tok, ok := r.static[strings.ToUpper(s)]; ok {
		return tok, nil
	}

	if pk, err := solana.PublicKeyFromBase58(s); err == nil {
		return r.literal(pk.String()), nil
	}

	catalog, err := r.ensureCatalog(ctx)
	if err != nil {
		return Token{}, err
	}

	for _, t := range catalog {
		if strings.EqualFold(t.Symbol, s) {
			return fromCatalog(t), nil
		}
	}

	// Shortest matching symbol wins; catalog order breaks ties.
	needle := strings.ToLower(s)
	best := -1
	for i, t := range catalog {
		if !strings.Contains(strings.ToLower(t.Symbol), needle) {
			continue
		}
		if best < 0 || len(t.Symbol) < len(catalog[best].Symbol) {
			best = i
		}
	}
	if best >= 0 {
		return fromCatalog(catalog[best]), nil
	}

	return Token{}, ErrNotFound
}

// literal fills symbol and decimals for a mint when they are known without
// a network call.
func (r *Resolver) literal(mint string) Token {
	if sym, ok := constants.TokenSymbols[mint]; ok {
		return r.static[sym]
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.catalog {
		if t.Address == mint {
			return fromCatalog(t)
		}
	}
	return Token{Mint: mint, Decimals: -1}
}

// ensureCatalog refreshes a stale catalog and returns the current one. The
// lock is held across the fetch so concurrent misses share one refresh. A
// failed refresh keeps serving the stale catalog; with none loaded yet it
// returns ErrCatalogUnavailable.
func (r *Resolver) ensureCatalog(ctx context.Context) ([]jupiter.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.catalog != nil && now.Sub(r.fetchedAt) < r.ttl {
		return r.catalog, nil
	}

	if r.shared != nil {
		snap, ok, err := r.shared.Load(ctx)
		switch {
		case err != nil:
			metrics.CatalogRefreshes.WithLabelValues("shared", "error").Inc()
			r.logger.WithError(err).Warn("shared token catalog unavailable")
		case ok && len(snap.Tokens) > 0 && now.Sub(snap.FetchedAt) < r.ttl:
			metrics.CatalogRefreshes.WithLabelValues("shared", "ok").Inc()
			r.setCatalog(snap.Tokens, snap.FetchedAt)
			return r.catalog, nil
		}
	}

	if r.source == nil {
		return r.catalog, nil
	}

	tokens, err := r.source.Tokens(ctx)
	if err != nil {
		metrics.CatalogRefreshes.WithLabelValues("aggregator", "error").Inc()
		if r.catalog == nil {
			r.logger.WithError(err).Warn("token catalog fetch failed, no catalog loaded")
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		r.logger.WithError(err).WithField("stale_tokens", len(r.catalog)).
			Warn("token catalog refresh failed, serving stale catalog")
		return r.catalog, nil
	}
	if tokens == nil {
		tokens = []jupiter.Token{}
	}
	metrics.CatalogRefreshes.WithLabelValues("aggregator", "ok").Inc()
	r.setCatalog(tokens, now)

	if r.shared != nil {
		if err := r.shared.Store(ctx, Snapshot{Tokens: tokens, FetchedAt: now}, r.ttl); err != nil {
			r.logger.WithError(err).Warn("failed to publish token catalog")
		}
	}
	return r.catalog, nil
}

func (r *Resolver) setCatalog(tokens []jupiter.Token, fetchedAt time.Time) {
	r.catalog = tokens
	r.fetchedAt = fetchedAt
	metrics.CatalogSize.Set(float64(len(tokens)))
	r.logger.WithFields(logrus.Fields{
		"tokens":     len(tokens),
		"fetched_at": fetchedAt,
	}).Debug("token catalog refreshed")
}

func fromCatalog(t jupiter.Token) Token {
	return Token{Symbol: t.Symbol, Mint: t.Address, Decimals: t.Decimals}
}
