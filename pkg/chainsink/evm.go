// Copyright 2025 OpenGrantStack
//
// Package chainsink implements ledger.BlockchainSink against a real EVM
// chain, grounded on the certen-validator ethereum client's connection,
// transaction-sending, and receipt-waiting shape, narrowed down to
// exactly what anchoring a merkle root requires.
package chainsink

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
)

// EVMSink anchors a transaction's merkle root as calldata to a fixed
// address on an EVM chain and reports confirmation status back through
// ledger.BlockchainSink's interface.
type EVMSink struct {
	client     *ethclient.Client
	chainID    *big.Int
	anchorAddr common.Address
	privateKey string
	confirmWait time.Duration
}

// Config carries the connection details for one EVM anchor target.
type Config struct {
	RPCURL        string
	ChainID       int64
	AnchorAddress string
	PrivateKeyHex string
	ConfirmWait   time.Duration
}

// NewEVMSink dials rpcURL and returns a ready EVMSink.
func NewEVMSink(ctx context.Context, cfg Config) (*EVMSink, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chainsink: connect to %s: %w", cfg.RPCURL, err)
	}
	wait := cfg.ConfirmWait
	if wait == 0 {
		wait = 30 * time.Second
	}
	return &EVMSink{
		client:      client,
		chainID:     big.NewInt(cfg.ChainID),
		anchorAddr:  common.HexToAddress(cfg.AnchorAddress),
		privateKey:  strings.TrimPrefix(cfg.PrivateKeyHex, "0x"),
		confirmWait: wait,
	}, nil
}

// Submit anchors merkleRoot as the calldata of a zero-value transaction
// to the configured anchor address, returning the transaction hash as
// the opaque blockchainRef (ledger.BlockchainSink).
func (s *EVMSink) Submit(ctx context.Context, tx ledger.Transaction, merkleRoot string) (string, error) {
	if s.privateKey == "" {
		return "", fmt.Errorf("chainsink: no signing key configured")
	}
	privateKey, err := crypto.HexToECDSA(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("chainsink: parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, s.chainID)
	if err != nil {
		return "", fmt.Errorf("chainsink: create transactor: %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, auth.From)
	if err != nil {
		return "", fmt.Errorf("chainsink: nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chainsink: gas price: %w", err)
	}

	calldata := append([]byte("GRANT_LEDGER_ANCHOR:"), []byte(merkleRoot)...)
	unsigned := types.NewTransaction(nonce, s.anchorAddr, big.NewInt(0), 100_000, gasPrice, calldata)

	signed, err := types.SignTx(unsigned, types.NewEIP155Signer(s.chainID), privateKey)
	if err != nil {
		return "", fmt.Errorf("chainsink: sign: %w", err)
	}
	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return "", &ledger.SinkFailureError{TransactionID: tx.ID, Cause: err}
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.confirmWait)
	defer cancel()
	if _, err := bind.WaitMined(waitCtx, s.client, signed); err != nil {
		return signed.Hash().Hex(), &ledger.SinkFailureError{TransactionID: tx.ID, Cause: fmt.Errorf("waiting for confirmation: %w", err)}
	}

	return signed.Hash().Hex(), nil
}

// Verify reports whether blockchainRef was mined successfully.
func (s *EVMSink) Verify(ctx context.Context, blockchainRef string) (bool, error) {
	receipt, err := s.client.TransactionReceipt(ctx, common.HexToHash(blockchainRef))
	if err != nil {
		return false, fmt.Errorf("chainsink: receipt for %s: %w", blockchainRef, err)
	}
	return receipt.Status == types.ReceiptStatusSuccessful, nil
}

// Metadata returns the chain label, tx hash, block number, and gas used
// for blockchainRef; it does not report a confirmation count.
func (s *EVMSink) Metadata(ctx context.Context, blockchainRef string) (ledger.BlockchainMetadata, error) {
	receipt, err := s.client.TransactionReceipt(ctx, common.HexToHash(blockchainRef))
	if err != nil {
		return ledger.BlockchainMetadata{}, fmt.Errorf("chainsink: receipt for %s: %w", blockchainRef, err)
	}
	return ledger.BlockchainMetadata{
		Blockchain:  fmt.Sprintf("evm:%s", s.chainID.String()),
		TxHash:      blockchainRef,
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}
