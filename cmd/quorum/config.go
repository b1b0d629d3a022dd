package main

import (
	"flag"
	"fmt"
	"time"

	"quorumsig/internal/multisig"
)

// Config holds the walkthrough configuration.
type Config struct {
	// NodeAddr is the ledger node's HTTP address.
	NodeAddr string

	// DataPath is the keystore directory.
	DataPath string

	// SuiteName selects the signature suite ("ed25519" or "bls").
	SuiteName string

	// Suite is the resolved signature suite.
	Suite multisig.Suite

	// Amount is the amount transferred from the joint account.
	Amount uint64

	// FaucetAmount is the amount minted into the joint account.
	FaucetAmount uint64

	// Remote collects partial signatures over QUIC instead of in-process.
	Remote bool

	// WaitTimeout bounds waiting for transaction commitment.
	WaitTimeout time.Duration

	// Verbose enables debug logging.
	Verbose bool
}

// parseFlags parses command-line flags into Config.
func parseFlags() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.NodeAddr, "node", "127.0.0.1:8080", "Ledger node HTTP address")
	flag.StringVar(&cfg.DataPath, "data", "./data/keystore", "Keystore directory path")
	flag.StringVar(&cfg.SuiteName, "suite", "ed25519", "Signature suite (ed25519 or bls)")
	flag.Uint64Var(&cfg.Amount, "amount", 100, "Amount to transfer from the joint account")
	flag.Uint64Var(&cfg.FaucetAmount, "faucet-amount", 40_000_000, "Amount to mint into the joint account")
	flag.BoolVar(&cfg.Remote, "remote", false, "Collect partial signatures over QUIC signer endpoints")
	flag.DurationVar(&cfg.WaitTimeout, "wait", 30*time.Second, "Timeout waiting for transaction commitment")
	flag.BoolVar(&cfg.Verbose, "v", false, "Enable debug logging")
	flag.Parse()

	suite, err := multisig.SuiteByName(cfg.SuiteName)
	if err != nil {
		return nil, fmt.Errorf("resolve suite:\n%w", err)
	}

	cfg.Suite = suite

	return cfg, nil
}
