// Package quotes holds the per-payer quote records that bind a swap to the
// exact route and amount the caller last inspected.
package quotes

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/buffer"
	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/aman-zulfiqar/goblin-executor/internal/metrics"
)

var ErrRequoteRequired = errors.New("quote missing, mismatched or expired")

// RouteHint is the resolved trade shape a quote was computed for.
type RouteHint struct {
	InputMint        string  `json:"inputMint"`
	OutputMint       string  `json:"outputMint"`
	SlippageBps      uint16  `json:"slippageBps"`
	InputDecimals    int     `json:"inputDecimals"`
	ComputeUnitPrice *uint64 `json:"computeUnitPriceMicroLamports,omitempty"`
}

type Record struct {
	RouteID   string
	Payer     string
	Amount    uint64 // clamped, base units
	CreatedAt time.Time
	Quote     json.RawMessage // aggregator payload, passed back verbatim
	Hint      RouteHint
	Buffer    buffer.Snapshot
}

// Store keeps at most one record per payer. All methods are safe for
// concurrent use.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	records map[string]*Record
}

func NewStore(ttl time.Duration, now func() time.Time) *Store {
	if ttl <= 0 {
		ttl = constants.QuoteTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Store{ttl: ttl, now: now, records: make(map[string]*Record)}
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Put sweeps expired records and stores rec, replacing any earlier record
// for the same payer. CreatedAt is stamped when zero.
func (s *Store) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	s.records[rec.Payer] = &rec
	metrics.LiveQuotes.Set(float64(len(s.records)))
}

// Take removes and returns the payer's record if routeID and amount match it
// exactly and it has not expired. Any other outcome also clears the payer's
// slot and returns ErrRequoteRequired. Two concurrent Takes for the same
// quote cannot both succeed.
func (s *Store) Take(payer, routeID string, amount uint64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[payer]
	delete(s.records, payer)
	metrics.LiveQuotes.Set(float64(len(s.records)))

	if !ok || rec.RouteID != routeID || rec.Amount != amount || s.expired(rec, s.now()) {
		return Record{}, ErrRequoteRequired
	}
	return *rec, nil
}

// Get returns the payer's live record without consuming it.
func (s *Store) Get(payer string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[payer]
	if !ok || s.expired(rec, s.now()) {
		return Record{}, false
	}
	return *rec, true
}

// Sweep deletes expired records and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.sweepLocked(s.now())
	metrics.LiveQuotes.Set(float64(len(s.records)))
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) sweepLocked(now time.Time) int {
	n := 0
	for payer, rec := range s.records {
		if s.expired(rec, now) {
			delete(s.records, payer)
			n++
		}
	}
	return n
}

// A record is usable while its age is strictly below the TTL.
func (s *Store) expired(rec *Record, now time.Time) bool {
	return now.Sub(rec.CreatedAt) >= s.ttl
}
