package constants

import "time"

// Units
const (
	LamportsPerSOL = 1_000_000_000
	SOLDecimals    = 9
)

// Quote lifecycle
const (
	QuoteTTL     = 60 * time.Second
	CatalogTTL   = 10 * time.Minute
	QuoteTimeout = 15 * time.Second // aggregator quote + balance reads
	BuildTimeout = 20 * time.Second // aggregator swap-transaction build

	ConfirmTimeout  = 60 * time.Second
	DiagnoseTimeout = 10 * time.Second
)

// Buffer defaults (lamports)
const (
	DefaultBaseFeeLamports     = 500_000
	DefaultPriorityTipLamports = 100_000
	TokenAccountSize           = 165 // SPL token account data length
)

// Trade defaults
const (
	DefaultHardCapSOL   = "0.25"
	DefaultSlippageBps  = 50
	MaxSlippageBps      = 5_000
	MaxDiagnosticLength = 300
)

// Redis keys
const (
	RedisKeyTokenCatalog = "catalog:tokens"
)

// Well-known mints
const (
	MintWSOL = "So11111111111111111111111111111111111111112"
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// Token mint addresses to symbols
var TokenSymbols = map[string]string{
	MintWSOL: "SOL",
	MintUSDC: "USDC",
	MintUSDT: "USDT",
	"J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn": "JITOSOL",
	"mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So":  "MSOL",
	"bSo13r4TkiE4KumL71LsHTPpL2euBYLFx6h9HP3piy1":  "BSOL",
	"JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN":  "JUP",
	"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": "BONK",
}

// TokenDecimals maps token symbols to their decimal places
var TokenDecimals = map[string]uint8{
	"SOL":     9,
	"USDC":    6,
	"USDT":    6,
	"JITOSOL": 9,
	"MSOL":    9,
	"BSOL":    9,
	"JUP":     6,
	"BONK":    5,
}
