package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/goblin-executor/internal/constants"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Ledger settings
	RPCUrl       string
	PrivateKey   string
	Commitment   string
	RPCTimeout   time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// API settings
	APIAddr      string
	APIKey       string
	DevMode      bool
	RateLimitRPS float64

	// Trade limits
	HardCapSOL          string
	PriorityTipLamports uint64
	BaseFeeLamports     uint64
	TokenAccountSize    uint64
	ComputeUnitPrice    *uint64 // micro-lamports, optional
	DefaultSlippageBps  uint16

	// Timeouts
	QuoteTTL       time.Duration
	QuoteTimeout   time.Duration
	BuildTimeout   time.Duration
	ConfirmTimeout time.Duration

	// Aggregator settings
	JupiterBaseURL   string
	JupiterAPIKey    string
	JupiterTokensURL string
	CatalogTTL       time.Duration

	// Redis settings (optional shared token catalog)
	RedisAddr string

	errs []string
}

func Load() *Config {
	cfg := &Config{
		// Ledger
		RPCUrl:       strings.TrimSpace(os.Getenv("SOLANA_RPC_URL")),
		PrivateKey:   strings.TrimSpace(os.Getenv("WALLET_PRIVATE_KEY")),
		Commitment:   getEnv("WALLET_COMMITMENT", "confirmed"),
		RPCTimeout:   getDurationEnv("RPC_TIMEOUT", 15*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 2),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 500*time.Millisecond),

		// API
		APIAddr:      getEnv("API_ADDR", ":8080"),
		APIKey:       os.Getenv("API_KEY"),
		DevMode:      getBoolEnv("DEV_MODE", false),
		RateLimitRPS: getFloatEnv("RATE_LIMIT_RPS", 2),

		// Limits
		HardCapSOL:          getEnv("HARD_CAP_SOL", constants.DefaultHardCapSOL),
		PriorityTipLamports: getUintEnv("PRIORITY_TIP_LAMPORTS", constants.DefaultPriorityTipLamports),
		BaseFeeLamports:     getUintEnv("BASE_FEE_LAMPORTS", constants.DefaultBaseFeeLamports),
		TokenAccountSize:    getUintEnv("TOKEN_ACCOUNT_SIZE", constants.TokenAccountSize),
		DefaultSlippageBps:  uint16(getUintEnv("DEFAULT_SLIPPAGE_BPS", constants.DefaultSlippageBps)),

		// Timeouts
		QuoteTTL:       getDurationEnv("QUOTE_TTL", constants.QuoteTTL),
		QuoteTimeout:   getDurationEnv("QUOTE_TIMEOUT", constants.QuoteTimeout),
		BuildTimeout:   getDurationEnv("SWAP_BUILD_TIMEOUT", constants.BuildTimeout),
		ConfirmTimeout: getDurationEnv("CONFIRM_TIMEOUT", constants.ConfirmTimeout),

		// Jupiter
		JupiterBaseURL:   os.Getenv("JUPITER_BASE_URL"),
		JupiterAPIKey:    os.Getenv("JUPITER_API_KEY"),
		JupiterTokensURL: os.Getenv("JUPITER_TOKENS_URL"),
		CatalogTTL:       getDurationEnv("CATALOG_TTL", constants.CatalogTTL),

		// Redis
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	// PORT is what most PaaS runtimes hand us.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.APIAddr = ":" + port
	}

	if v := strings.TrimSpace(os.Getenv("COMPUTE_UNIT_PRICE_MICROLAMPORTS")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			cfg.errs = append(cfg.errs, "COMPUTE_UNIT_PRICE_MICROLAMPORTS must be an unsigned integer")
		} else {
			cfg.ComputeUnitPrice = &n
		}
	}

	return cfg
}

// Validate rejects settings that are present but unusable. A missing RPC URL
// or wallet key is not an error here: the service starts degraded and
// reports it through /health.
func (c *Config) Validate() error {
	errs := append([]string(nil), c.errs...)

	if _, err := c.HardCapLamports(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.DefaultSlippageBps == 0 || c.DefaultSlippageBps > constants.MaxSlippageBps {
		errs = append(errs, fmt.Sprintf("DEFAULT_SLIPPAGE_BPS must be in 1..%d", constants.MaxSlippageBps))
	}
	if c.QuoteTTL <= 0 {
		errs = append(errs, "QUOTE_TTL must be positive")
	}
	if c.TokenAccountSize == 0 {
		errs = append(errs, "TOKEN_ACCOUNT_SIZE must be positive")
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HardCapLamports converts HARD_CAP_SOL (whole SOL, decimal) into lamports.
func (c *Config) HardCapLamports() (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.HardCapSOL))
	if err != nil {
		return 0, fmt.Errorf("HARD_CAP_SOL is not a number: %q", c.HardCapSOL)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("HARD_CAP_SOL must be positive")
	}
	lamports := d.Shift(constants.SOLDecimals).Floor()
	if !lamports.IsPositive() || lamports.GreaterThan(decimal.NewFromUint64(^uint64(0))) {
		return 0, fmt.Errorf("HARD_CAP_SOL out of range: %s", c.HardCapSOL)
	}
	return lamports.BigInt().Uint64(), nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUintEnv(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
