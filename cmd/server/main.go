package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"xrplprover/AmplifierRPC"
	"xrplprover/config"
	"xrplprover/events"
	"xrplprover/prover"
	"xrplprover/redis"
	"xrplprover/types"
	"xrplprover/workers"
	"xrplprover/workers/handlers"
	"xrplprover/xrpl"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

func proverConfig() (prover.Config, error) {
	cfg := config.Config

	account, err := xrpl.ParseAddress(cfg.XRPL.MultisigAccount)
	if err != nil {
		return prover.Config{}, fmt.Errorf("multisig account: %w", err)
	}

	return prover.Config{
		ChainName:                cfg.XRPL.ChainName,
		MultisigAccount:          account,
		XRPTokenID:               common.HexToHash(cfg.XRPL.XRPTokenID),
		Fee:                      cfg.XRPL.Fee,
		TicketCountThreshold:     cfg.XRPL.TicketCountThreshold,
		SigningThresholdNum:      cfg.SigningThreshold.Numerator,
		SigningThresholdDen:      cfg.SigningThreshold.Denominator,
		VerifierSetDiffThreshold: cfg.VerifierSetDiffThreshold,
		VerifierAddress:          cfg.Amplifier.VerifierAddress,
		GovernanceAddress:        cfg.Amplifier.GovernanceAddress,
		AdminAddress:             cfg.Amplifier.AdminAddress,
		InitialTicketPool: types.TicketPool{
			AvailableTickets:         cfg.XRPL.AvailableTickets,
			NextSequenceNumber:       cfg.XRPL.NextSequenceNumber,
			LastAssignedTicketNumber: cfg.XRPL.LastAssignedTicketNumber,
		},
	}, nil
}

func main() {
	log.Info("Starting XRPL multisig prover")

	config.Init()

	if err := os.MkdirAll(config.Config.Server.LogDir, 0755); err != nil {
		log.Fatalf("error creating log directory: %v", err)
	}
	f, err := os.OpenFile(filepath.Join(config.Config.Server.LogDir, fmt.Sprintf("log_%s.txt", time.Now().Format("2006-01-02"))), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file for writing: %v", err)
	}
	defer f.Close()

	log.SetOutput(f)
	log.SetFormatter(&log.JSONFormatter{})
	if level, err := log.ParseLevel(config.Config.Server.LogLevel); err == nil {
		log.SetLevel(level)
	}

	// connect to Redis, without persistence do not continue
	store := redis.Init()
	if err := store.Ping(); err != nil {
		log.Fatalf("error connecting to Redis: %v", err)
	}
	defer store.Close()

	var publisher *events.Publisher
	if config.Config.NATS.URL != "" {
		publisher, err = events.Connect(config.Config.NATS.URL, config.Config.NATS.SubjectPrefix)
		if err != nil {
			log.Fatalf("error connecting to NATS: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Warn("NATS is not configured, events are not published")
	}

	cfg, err := proverConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	amplifier := AmplifierRPC.FromConfig()
	p, err := prover.New(cfg, store, amplifier, amplifier, amplifier, publisher)
	if err != nil {
		log.Fatalf("error starting prover: %v", err)
	}

	// two worker threads:
	// * relay completed proofs and keep the ticket pool topped up
	// * API serving HTTP(S) server (serves as main worker thread)
	relayer := &workers.Relayer{
		Prover:   p,
		Ledger:   store,
		Interval: config.Config.ProofRelayInterval,
	}
	if publisher != nil {
		relayer.Publisher = publisher
	}
	go relayer.Worker_relayProofs()

	workers.Worker_HTTP(handlers.New(p))
}
