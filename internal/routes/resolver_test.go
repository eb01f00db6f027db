package routes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/jupiter"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu     sync.Mutex
	tokens []jupiter.Token
	err    error
	calls  int
}

func (f *fakeSource) Tokens(context.Context) ([]jupiter.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tokens, nil
}

type memShared struct {
	snap   *Snapshot
	stored int
}

func (m *memShared) Load(context.Context) (Snapshot, bool, error) {
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return *m.snap, true, nil
}

func (m *memShared) Store(_ context.Context, snap Snapshot, _ time.Duration) error {
	m.snap = &snap
	m.stored++
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func catalog() []jupiter.Token {
	return []jupiter.Token{
		{Address: "WifMint111", Symbol: "WIF", Decimals: 6},
		{Address: "PopcatMint1", Symbol: "POPCAT", Decimals: 9},
		{Address: "CatMint1111", Symbol: "CATX", Decimals: 6},
		{Address: "CatMint2222", Symbol: "MCAT", Decimals: 8},
		{Address: "PopMint1111", Symbol: "pop", Decimals: 4},
	}
}

func newResolver(src CatalogSource, shared SharedCatalog, c *clock) *Resolver {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	cfg := Config{Source: src, Logger: l, Now: c.now}
	if shared != nil {
		cfg.Shared = shared
	}
	return NewResolver(cfg)
}

func TestResolve_StaticTableSkipsCatalog(t *testing.T) {
	src := &fakeSource{tokens: catalog()}
	r := newResolver(src, nil, &clock{t: time.Unix(0, 0)})

	tok, err := r.Resolve(context.Background(), "usdc")
	require.NoError(t, err)
	assert.Equal(t, Token{Symbol: "USDC", Mint: constants.MintUSDC, Decimals: 6}, tok)

	tok, err = r.Resolve(context.Background(), " JitoSOL ")
	require.NoError(t, err)
	assert.Equal(t, "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn", tok.Mint)

	assert.Equal(t, 0, src.calls)
}

func TestResolve_LiteralMint(t *testing.T) {
	src := &fakeSource{tokens: catalog()}
	r := newResolver(src, nil, &clock{t: time.Unix(0, 0)})

	tok, err := r.Resolve(context.Background(), constants.MintWSOL)
	require.NoError(t, err)
	assert.Equal(t, "SOL", tok.Symbol)
	assert.Equal(t, 9, tok.Decimals)

	unknown := "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	tok, err = r.Resolve(context.Background(), unknown)
	require.NoError(t, err)
	assert.Equal(t, Token{Mint: unknown, Decimals: -1}, tok)

	assert.Equal(t, 0, src.calls)
}

func TestResolve_ExactThenSubstring(t *testing.T) {
	src := &fakeSource{tokens: catalog()}
	r := newResolver(src, nil, &clock{t: time.Unix(0, 0)})
	ctx := context.Background()

	tok, err := r.Resolve(ctx, "wif")
	require.NoError(t, err)
	assert.Equal(t, "WifMint111", tok.Mint)

	// exact match on "pop" beats the longer POPCAT
	tok, err = r.Resolve(ctx, "POP")
	require.NoError(t, err)
	assert.Equal(t, "PopMint1111", tok.Mint)

	// CATX and MCAT tie on length; catalog order wins
	tok, err = r.Resolve(ctx, "cat")
	require.NoError(t, err)
	assert.Equal(t, "CatMint1111", tok.Mint)

	_, err = r.Resolve(ctx, "FOO")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.Resolve(ctx, "  ")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, 1, src.calls)
}

func TestResolve_RefreshesAfterTTL(t *testing.T) {
	src := &fakeSource{tokens: catalog()}
	c := &clock{t: time.Unix(0, 0)}
	r := newResolver(src, nil, c)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "WIF")
	require.NoError(t, err)

	c.t = c.t.Add(9 * time.Minute)
	_, err = r.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	c.t = c.t.Add(2 * time.Minute)
	_, err = r.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestResolve_StaleCatalogSurvivesFailedRefresh(t *testing.T) {
	src := &fakeSource{tokens: catalog()}
	c := &clock{t: time.Unix(0, 0)}
	r := newResolver(src, nil, c)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "WIF")
	require.NoError(t, err)

	src.err = errors.New("catalog down")
	c.t = c.t.Add(time.Hour)

	tok, err := r.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, "WifMint111", tok.Mint)
	assert.Equal(t, 2, src.calls)
}

func TestResolve_ColdCatalogOutageIsUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("catalog down")}
	r := newResolver(src, nil, &clock{t: time.Unix(0, 0)})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "WIF")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
	assert.False(t, errors.Is(err, ErrNotFound))

	// static symbols and literal mints never need the catalog
	tok, err := r.Resolve(ctx, "USDC")
	require.NoError(t, err)
	assert.Equal(t, constants.MintUSDC, tok.Mint)

	// once the aggregator is back the symbol resolves
	src.err = nil
	src.tokens = catalog()
	tok, err = r.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, "WifMint111", tok.Mint)
}

func TestResolve_EmptyCatalogIsNotFound(t *testing.T) {
	src := &fakeSource{}
	r := newResolver(src, nil, &clock{t: time.Unix(0, 0)})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "WIF")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = r.Resolve(ctx, "BONKX")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 1, src.calls)
}

func TestResolve_SharedCatalog(t *testing.T) {
	ctx := context.Background()
	shared := &memShared{}

	src := &fakeSource{tokens: catalog()}
	first := newResolver(src, shared, &clock{t: time.Unix(0, 0)})
	_, err := first.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, 1, shared.stored)

	// A second instance reads the snapshot instead of the aggregator.
	other := &fakeSource{err: errors.New("must not be called")}
	second := newResolver(other, shared, &clock{t: time.Unix(0, 0)})
	tok, err := second.Resolve(ctx, "POPCAT")
	require.NoError(t, err)
	assert.Equal(t, "PopcatMint1", tok.Mint)
	assert.Equal(t, 0, other.calls)
}

func TestResolve_SharedSnapshotAgesFromOriginalFetch(t *testing.T) {
	ctx := context.Background()
	start := time.Unix(0, 0)
	shared := &memShared{snap: &Snapshot{Tokens: catalog(), FetchedAt: start}}

	// loaded 8 minutes after the original fetch
	src := &fakeSource{tokens: []jupiter.Token{{Address: "FreshWif111", Symbol: "WIF", Decimals: 6}}}
	c := &clock{t: start.Add(8 * time.Minute)}
	r := newResolver(src, shared, c)

	tok, err := r.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, "WifMint111", tok.Mint)
	assert.Equal(t, 0, src.calls)

	// 10 minutes after the original fetch the catalog is stale
	c.t = start.Add(10 * time.Minute)
	tok, err = r.Resolve(ctx, "WIF")
	require.NoError(t, err)
	assert.Equal(t, "FreshWif111", tok.Mint)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, c.t, shared.snap.FetchedAt)
}

func TestResolve_ExpiredSharedSnapshotIsIgnored(t *testing.T) {
	start := time.Unix(0, 0)
	shared := &memShared{snap: &Snapshot{Tokens: catalog(), FetchedAt: start}}
	src := &fakeSource{tokens: []jupiter.Token{{Address: "FreshWif111", Symbol: "WIF", Decimals: 6}}}
	r := newResolver(src, shared, &clock{t: start.Add(11 * time.Minute)})

	tok, err := r.Resolve(context.Background(), "WIF")
	require.NoError(t, err)
	assert.Equal(t, "FreshWif111", tok.Mint)
	assert.Equal(t, 1, src.calls)
}

func TestResolve_LiteralUsesLoadedCatalogDecimals(t *testing.T) {
	src := &fakeSource{tokens: []jupiter.Token{
		{Address: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", Symbol: "XYZ", Decimals: 7},
	}}
	r := newResolver(src, nil, &clock{t: time.Unix(0, 0)})
	ctx := context.Background()

	_, err := r.Resolve(ctx, "XYZ")
	require.NoError(t, err)

	tok, err := r.Resolve(ctx, "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	require.NoError(t, err)
	assert.Equal(t, Token{Symbol: "XYZ", Mint: "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", Decimals: 7}, tok)
}
