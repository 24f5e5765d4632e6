// Command settlement-worker drives a queue of payment intents through an
// EVM-style chain until each settles or lands in the dead-letter queue.
//
// Usage: a flag with an environment-derived default, then dial/open the
// external capabilities, then run.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/nemeth06/settlement-worker/internal/chain"
	"github.com/nemeth06/settlement-worker/internal/config"
	"github.com/nemeth06/settlement-worker/internal/signer"
	"github.com/nemeth06/settlement-worker/internal/store"
	"github.com/nemeth06/settlement-worker/internal/supervisor"
)

func main() {
	defaultConfig := os.Getenv("SETTLEMENT_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "settlement.yaml"
	}
	configPath := flag.String("config", defaultConfig, "path to the worker's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	ch, err := chain.Dial(ctx, cfg.RPCURL)
	if err != nil {
		log.Fatalf("chain: %v", err)
	}
	defer ch.Close()

	sgn, err := signer.NewECDSASigner(cfg.PrivateKey)
	if err != nil {
		log.Fatalf("signer: %v", err)
	}

	sup := supervisor.New(cfg, st, ch, sgn)
	if err := sup.Run(ctx); err != nil {
		log.Fatalf("supervisor: %v", err)
	}
}
