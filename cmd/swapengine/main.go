package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/goblin-executor/internal/app"
	"github.com/aman-zulfiqar/goblin-executor/internal/config"
	"github.com/aman-zulfiqar/goblin-executor/internal/swapengine"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	mode := flag.String("mode", "quote", "health | quote | swap")
	payer := flag.String("payer", "", "payer address (defaults to the wallet public key)")
	inTok := flag.String("in", "SOL", "input symbol or mint")
	outTok := flag.String("out", "USDC", "output symbol or mint")
	lamports := flag.Uint64("lamports", 0, "requested input amount in base units")
	slippageBps := flag.Uint("slippage-bps", 0, "slippage in bps (0 = configured default)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Println("invalid configuration:", err)
		os.Exit(2)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Println("failed to init executor:", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	st := a.Ledger.Status()
	if *mode == "health" {
		printJSON(map[string]any{"ok": st.Ready(), "hasRPC": st.HasRPC, "hasKey": st.HasKey, "pubkey": st.PublicKey})
		if !st.Ready() {
			os.Exit(1)
		}
		return
	}

	if *mode != "quote" && *mode != "swap" {
		fmt.Println("invalid -mode (use health|quote|swap)")
		os.Exit(2)
	}
	if *lamports == 0 {
		fmt.Println("missing -lamports (must be > 0)")
		os.Exit(2)
	}
	if *payer == "" {
		*payer = st.PublicKey
	}

	hint := swapengine.RouteHint{Input: *inTok, Output: *outTok}
	if *slippageBps > 0 {
		s := uint16(*slippageBps)
		hint.SlippageBps = &s
	}

	q, err := a.Engine.RequestQuote(ctx, swapengine.QuoteRequest{Payer: *payer, Amount: *lamports, Hint: hint})
	if err != nil {
		fail("quote", err)
	}
	if *mode == "quote" {
		printJSON(q)
		return
	}

	res, err := a.Engine.ExecuteSwap(ctx, swapengine.SwapRequest{Payer: *payer, Amount: q.Amount, RouteID: q.RouteID})
	if err != nil {
		fail("swap", err)
	}
	printJSON(res)
}

func fail(step string, err error) {
	e := swapengine.AsError(err)
	printJSON(map[string]any{"step": step, "error": e.Code, "message": e.Message, "details": e.Details, "logs": e.Logs})
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
