// Copyright 2025 Certen Protocol
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/blobstream0/pkg/config"
	"github.com/certen/blobstream0/pkg/contractbind"
	"github.com/certen/blobstream0/pkg/metrics"
	"github.com/certen/blobstream0/pkg/prover"
	"github.com/certen/blobstream0/pkg/service"
	"github.com/certen/blobstream0/pkg/settlement"
	"github.com/certen/blobstream0/pkg/tmfetch"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting blobstream0 bridge")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load configuration: %v", err)
	}
	if cfg.DevMode {
		if err := cfg.ValidateForDevelopment(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
		log.Println("running in dev mode: proofs are digest-only, not verified on-chain")
	} else {
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid configuration: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tm, err := tmfetch.NewClient(cfg.TendermintRPCURL)
	if err != nil {
		log.Fatalf("connect to tendermint rpc: %v", err)
	}

	ethClient, err := ethclient.DialContext(ctx, cfg.EthereumRPCURL)
	if err != nil {
		log.Fatalf("connect to ethereum rpc: %v", err)
	}

	contract := contractbind.New(common.HexToAddress(cfg.ContractAddress), ethClient)

	provider, err := buildProvider(cfg, ethClient)
	if err != nil {
		log.Fatalf("build settlement provider: %v", err)
	}

	p := prover.New(cfg.DevMode, cfg.MaxConcurrentProofs)
	if !cfg.DevMode {
		ccsPath := filepath.Join(cfg.ProvingKeyDir, "circuit.ccs")
		pkPath := filepath.Join(cfg.ProvingKeyDir, "proving.key")
		vkPath := filepath.Join(cfg.ProvingKeyDir, "verifying.key")
		if err := p.LoadKeys(ccsPath, pkPath, vkPath); err != nil {
			log.Fatalf("load proving keys from %s (run cmd/proofkey-setup first): %v", cfg.ProvingKeyDir, err)
		}
		log.Printf("loaded proving keys from %s", cfg.ProvingKeyDir)
	}

	m, reg := metrics.New()
	startObservabilityServers(cfg, reg)

	svc := service.New(tm, contract, provider, p, service.Config{
		BatchSize: cfg.BatchSize,
		GasLimit:  cfg.GasLimit,
	}, m)

	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("service loop exited: %v", err)
	}
	log.Println("shutdown complete")
}

func buildProvider(cfg *config.Config, ethClient *ethclient.Client) (settlement.TransactionProvider, error) {
	if cfg.ExternalSignerURL != "" {
		from := common.HexToAddress(cfg.ExternalSignerFrom)
		return settlement.NewExternalSignerProvider(ethClient, from, newHTTPExternalSigner(cfg.ExternalSignerURL)), nil
	}

	keyHex := strings.TrimPrefix(cfg.EthPrivateKey, "0x")
	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, err
	}
	return settlement.NewLocalSignerProvider(ethClient, bigChainID(cfg.EthChainID), privateKey), nil
}

func startObservabilityServers(cfg *config.Config, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", metrics.HealthHandler())
	go func() {
		if err := http.ListenAndServe(cfg.HealthAddr, healthMux); err != nil {
			log.Printf("health server stopped: %v", err)
		}
	}()
}
