// Copyright 2025 OpenGrantStack
//
// grantledgerd is the grant disbursement ledger's service entrypoint,
// grounded on the certen-validator's main.go: flag parsing, config
// loading, component wiring with degradation on optional dependencies,
// an HTTP server, and signal-driven graceful shutdown.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/chainsink"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/config"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/httpapi"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/kvstore"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/metrics"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/persistence"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/secretbox"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/zkproof"
)

// kvSnapshotSink adapts a pkg/kvstore.Adapter to ledger.SnapshotSink.
// It lives here rather than in pkg/kvstore so that package stays free
// of any import-time dependency on pkg/ledger's types.
type kvSnapshotSink struct {
	adapter *kvstore.Adapter
	log     cmtlog.Logger
}

func (s *kvSnapshotSink) SaveEntry(e ledger.Entry) error {
	snap := kvstore.SnapshotEntry{
		ID:            e.ID,
		TransactionID: e.TransactionID,
		AccountID:     e.Account.ID,
		Amount:        e.Amount.String(),
		Currency:      e.Currency,
		EntryType:     string(e.EntryType),
		Hash:          e.Hash,
		PreviousHash:  e.PreviousHash,
		Status:        string(e.Status),
	}

	existing, ok, err := s.adapter.GetSnapshotEntry(e.ID)
	if err == nil && ok && existing.Hash == snap.Hash {
		return nil
	}
	if err := s.adapter.PutSnapshotEntry(snap); err != nil {
		return err
	}
	s.log.Debug("entry snapshot written", "entry", e.ID)
	return nil
}

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to the ledger configuration file")
		listenAddr = flag.String("listen", ":8080", "HTTP API listen address")
		showHelp   = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *showHelp {
		flag.Usage()
		return
	}

	stdLogger := log.New(os.Stdout, "[grantledgerd] ", log.LstdFlags|log.Lmicroseconds)
	stdLogger.Printf("starting grant disbursement ledger")

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdLogger.Printf("config load failed, falling back to defaults: %v", err)
		cfg = config.Default()
	}

	ledgerCfg, err := cfg.ToLedgerConfig()
	if err != nil {
		stdLogger.Fatalf("invalid ledger configuration: %v", err)
	}

	cmtLogger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	if cfg.LogLevel != "" {
		filtered, lerr := cmtlog.ParseLogLevel(cfg.LogLevel, cmtLogger, "info")
		if lerr != nil {
			stdLogger.Printf("invalid log level %q, using info: %v", cfg.LogLevel, lerr)
		} else {
			cmtLogger = filtered
		}
	}

	opts := []ledger.Option{ledger.WithLogger(cmtLogger)}

	snapshotStore := kvstore.NewMemAdapter()
	opts = append(opts, ledger.WithSnapshotSink(&kvSnapshotSink{adapter: snapshotStore, log: cmtLogger}))
	stdLogger.Printf("snapshot store: in-memory (configure a durable backend via pkg/kvstore.NewAdapter for production)")

	recorder, merr := metrics.NewRegistered(prometheus.DefaultRegisterer)
	if merr != nil {
		stdLogger.Printf("metrics registration failed, running without instrumentation: %v", merr)
	} else {
		opts = append(opts, ledger.WithMetrics(recorder))
		stdLogger.Printf("metrics registered with the default Prometheus registry")
	}

	if cfg.Chain.RPCURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sink, serr := chainsink.NewEVMSink(ctx, chainsink.Config{
			RPCURL:        cfg.Chain.RPCURL,
			ChainID:       cfg.Chain.ChainID,
			AnchorAddress: cfg.Chain.AnchorAddress,
			PrivateKeyHex: os.Getenv("GRANTLEDGER_CHAIN_SIGNING_KEY"),
			ConfirmWait:   time.Duration(cfg.Chain.ConfirmWaitSecs) * time.Second,
		})
		cancel()
		if serr != nil {
			stdLogger.Printf("blockchain sink unavailable, running without anchoring: %v", serr)
		} else {
			opts = append(opts, ledger.WithSink(sink))
			stdLogger.Printf("blockchain sink connected: %s (chain %d)", cfg.Chain.RPCURL, cfg.Chain.ChainID)
		}
	} else {
		stdLogger.Printf("no chain.rpc_url configured, transactions will fail to execute without ledger.WithSink")
	}

	if ledgerCfg.EnableZKProofs {
		prover := zkproof.NewProver()
		if err := prover.Initialize(); err != nil {
			stdLogger.Printf("zk prover setup failed, disabling proof attachment: %v", err)
		} else {
			opts = append(opts, ledger.WithZKProvider(prover))
			stdLogger.Printf("zk proof provider initialized (%s)", "commitment-preimage-bn254-v1")
		}
	}

	engine := ledger.New(ledgerCfg, opts...)

	var repo *persistence.EntryRepository
	if cfg.Database.DSN != "" {
		client, perr := persistence.Open(cfg.Database.DSN)
		if perr != nil {
			stdLogger.Printf("audit database unavailable, running without durable export: %v", perr)
		} else {
			box, berr := loadAuditEncryptionBox()
			if berr != nil {
				stdLogger.Printf("audit metadata encryption disabled: %v", berr)
			} else if box != nil {
				stdLogger.Printf("audit metadata encryption enabled")
			}
			repo = persistence.NewEntryRepository(client, box)
			stdLogger.Printf("audit database connected")
		}
	} else {
		stdLogger.Printf("no database.dsn configured, running without durable audit export")
	}

	handlers := httpapi.NewHandlers(engine, repo)
	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: handlers.Mux(),
	}

	go func() {
		stdLogger.Printf("HTTP API listening on %s", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			stdLogger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stdLogger.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		stdLogger.Printf("HTTP server shutdown error: %v", err)
	}
	stdLogger.Printf("stopped")
}

// loadAuditEncryptionBox builds a secretbox.Box from a 32-byte hex key
// in GRANTLEDGER_AUDIT_ENCRYPTION_KEY. It returns (nil, nil) when the
// variable is unset, so audit export degrades to plaintext metadata
// rather than failing startup.
func loadAuditEncryptionBox() (*secretbox.Box, error) {
	hexKey := os.Getenv("GRANTLEDGER_AUDIT_ENCRYPTION_KEY")
	if hexKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("GRANTLEDGER_AUDIT_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("GRANTLEDGER_AUDIT_ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
	}
	box, err := secretbox.New(key)
	if err != nil {
		return nil, err
	}
	return box, nil
}
