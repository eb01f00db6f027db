// Package ledger owns the process-wide ledger connection and signing key.
//
// Both are resolved at most once: the key is decoded in New, the RPC
// connection is built on the first successful Connect and reused afterwards.
// Missing configuration is reported as ErrConfigMissing on use rather than
// at startup, so the service can come up degraded and explain itself via
// Status.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	projectrpc "github.com/aman-zulfiqar/goblin-executor/internal/rpc"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

var ErrConfigMissing = errors.New("ledger configuration missing")

type Config struct {
	RPCURL       string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	PrivateKey string // base58-encoded 64-byte key OR solana-keygen JSON array

	Commitment string // e.g. "confirmed"
	Logger     *logrus.Logger
}

type Client struct {
	cfg    Config
	logger *logrus.Logger

	priv   solana.PrivateKey
	pub    solana.PublicKey
	keyErr error

	mu   sync.Mutex
	conn *Conn
}

// Status is a side-effect free view of what the client has been given.
type Status struct {
	HasRPC    bool
	HasKey    bool
	PublicKey string
}

func New(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	cfg.RPCURL = strings.TrimSpace(cfg.RPCURL)

	c := &Client{cfg: cfg, logger: cfg.Logger}

	if strings.TrimSpace(cfg.PrivateKey) == "" {
		c.keyErr = fmt.Errorf("%w: WALLET_PRIVATE_KEY is not set", ErrConfigMissing)
	} else if priv, err := ParsePrivateKey(cfg.PrivateKey); err != nil {
		c.keyErr = fmt.Errorf("%w: %v", ErrConfigMissing, err)
	} else {
		c.priv = priv
		c.pub = priv.PublicKey()
	}
	// The secret is not needed past this point.
	c.cfg.PrivateKey = ""

	if c.keyErr != nil {
		c.logger.WithError(c.keyErr).Warn("wallet key unavailable, swaps disabled")
	} else {
		c.logger.WithField("pubkey", c.pub.String()).Info("wallet key loaded")
	}
	if c.cfg.RPCURL == "" {
		c.logger.Warn("SOLANA_RPC_URL is not set, ledger calls disabled")
	}

	return c
}

// Connect returns the shared ledger connection, creating it on first use.
func (c *Client) Connect() (*Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}
	if c.cfg.RPCURL == "" {
		return nil, fmt.Errorf("%w: SOLANA_RPC_URL is not set", ErrConfigMissing)
	}

	c.conn = &Conn{
		rpc: projectrpc.NewClient(projectrpc.ClientConfig{
			BaseURL:      c.cfg.RPCURL,
			Timeout:      c.cfg.Timeout,
			MaxRetries:   c.cfg.MaxRetries,
			RetryBackoff: c.cfg.RetryBackoff,
			Logger:       c.logger,
		}),
		commitment: c.cfg.Commitment,
	}
	c.logger.WithField("commitment", c.cfg.Commitment).Info("ledger connection ready")
	return c.conn, nil
}

// Signer returns the process-wide signing key.
func (c *Client) Signer() (solana.PrivateKey, error) {
	if c.keyErr != nil {
		return nil, c.keyErr
	}
	return c.priv, nil
}

func (c *Client) Status() Status {
	st := Status{
		HasRPC: c.cfg.RPCURL != "",
		HasKey: c.keyErr == nil,
	}
	if st.HasKey {
		st.PublicKey = c.pub.String()
	}
	return st
}

func (s Status) Ready() bool { return s.HasRPC && s.HasKey }
