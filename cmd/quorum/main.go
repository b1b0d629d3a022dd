// Command quorum walks a 2-of-3 joint account through a full
// authorization: build the composite identity, fund the accounts, sign a
// transfer with two of the three holders, combine, verify and submit.
// It is a thin caller around the core packages; no scheme logic lives here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"quorumsig/internal/keystore"
	"quorumsig/internal/ledger"
	"quorumsig/internal/logger"
	"quorumsig/internal/multisig"
	"quorumsig/internal/remote"
	"quorumsig/internal/txn"
)

// holderNames are the three key holders of the joint account.
var holderNames = []string{"alice", "bob", "carol"}

// jointThreshold is the joint account's signing threshold.
const jointThreshold = 2

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "quorum: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger.Init(level)

	if err := run(cfg); err != nil {
		logger.Error("walkthrough failed", "error", err)
		os.Exit(1)
	}
}

// run executes the walkthrough.
func run(cfg *Config) error {
	store, err := keystore.Open(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("open keystore:\n%w", err)
	}
	defer store.Close()

	holders, err := loadOrCreateHolders(store, cfg.Suite)
	if err != nil {
		return fmt.Errorf("prepare holders:\n%w", err)
	}

	jointKey, err := multisig.BuildFromHolders(cfg.Suite, holders, jointThreshold)
	if err != nil {
		return fmt.Errorf("build joint key:\n%w", err)
	}

	jointAddr := jointKey.Address()
	logger.Info("joint account ready",
		"address", jointAddr,
		"holders", jointKey.Len(),
		"threshold", jointKey.Threshold(),
		"suite", cfg.Suite.Name())

	if err := store.SaveAccount(&keystore.AccountRecord{
		Name:         "joint",
		SchemeID:     cfg.Suite.SchemeID(),
		CompositeKey: jointKey.Encode(),
	}); err != nil {
		return fmt.Errorf("save joint account:\n%w", err)
	}

	client, err := ledger.New(cfg.NodeAddr)
	if err != nil {
		return fmt.Errorf("connect to ledger:\n%w", err)
	}

	logger.Info("connected to ledger", "node", cfg.NodeAddr, "chainId", client.ChainID())

	personal := personalAddresses(cfg.Suite, holders)

	if err := fundAll(client, append(personal, jointAddr), cfg.FaucetAmount); err != nil {
		return fmt.Errorf("fund accounts:\n%w", err)
	}

	if err := reportBalances(client, personal, jointAddr); err != nil {
		return err
	}

	// Carol receives the transfer on her personal account.
	raw := &txn.RawTransaction{
		Sender:              jointAddr,
		SequenceNumber:      0,
		Payload:             txn.Transfer{Recipient: personal[2], Amount: cfg.Amount},
		MaxGasAmount:        2000,
		GasUnitPrice:        100,
		ExpirationTimestamp: uint64(time.Now().Unix()) + 600,
		ChainID:             client.ChainID(),
	}

	message := raw.SigningMessage()

	// Alice and Bob authorize; Carol sits this one out.
	partials, err := collectPartials(cfg, jointKey, holders[:jointThreshold], message)
	if err != nil {
		return fmt.Errorf("collect partial signatures:\n%w", err)
	}

	sig, err := multisig.Combine(partials, jointKey.Len(), jointKey.Threshold())
	if err != nil {
		return fmt.Errorf("combine:\n%w", err)
	}

	logger.Info("composite signature ready", "signers", sig.SignerIndices())

	// Check our own work before bothering the ledger.
	if err := multisig.Verify(jointKey, sig, message); err != nil {
		return fmt.Errorf("local verification:\n%w", err)
	}

	hash, err := client.Submit(txn.NewSignedTransaction(raw, jointKey, sig))
	if err != nil {
		return fmt.Errorf("submit:\n%w", err)
	}

	logger.Info("transaction submitted", "hash", fmt.Sprintf("%x", hash[:8]))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.WaitTimeout)
	defer cancel()

	start := time.Now()
	if err := client.WaitForTransaction(ctx, hash); err != nil {
		return fmt.Errorf("wait for commitment:\n%w", err)
	}

	logger.Info("transaction committed", logger.Timed(start))

	return reportBalances(client, personal, jointAddr)
}

// loadOrCreateHolders loads the three holders from the keystore, creating
// and persisting any that are missing.
func loadOrCreateHolders(store *keystore.Store, suite multisig.Suite) ([]multisig.KeyHolder, error) {
	holders := make([]multisig.KeyHolder, len(holderNames))

	for i, name := range holderNames {
		rec, err := store.LoadHolder(name)

		switch {
		case err == nil:
			if rec.SchemeID != suite.SchemeID() {
				return nil, fmt.Errorf("holder %q uses scheme 0x%02x, want 0x%02x", name, rec.SchemeID, suite.SchemeID())
			}

		case errors.Is(err, keystore.ErrNotFound):
			rec, err = createHolder(store, name, suite)
			if err != nil {
				return nil, err
			}

			logger.Info("created holder", "name", name, "suite", suite.Name())

		default:
			return nil, err
		}

		holder, err := rec.Holder()
		if err != nil {
			return nil, fmt.Errorf("reconstruct holder %q:\n%w", name, err)
		}

		holders[i] = holder
	}

	return holders, nil
}

// createHolder generates and persists a new holder.
func createHolder(store *keystore.Store, name string, suite multisig.Suite) (*keystore.HolderRecord, error) {
	var seed []byte

	switch suite.SchemeID() {
	case multisig.Ed25519SchemeID:
		holder, err := multisig.GenerateEd25519Holder()
		if err != nil {
			return nil, err
		}
		seed = holder.Seed()

	case multisig.BLSSchemeID:
		holder, err := multisig.GenerateBLSHolder()
		if err != nil {
			return nil, err
		}
		seed = holder.Seed()

	default:
		return nil, fmt.Errorf("unknown scheme: 0x%02x", suite.SchemeID())
	}

	rec := &keystore.HolderRecord{Name: name, SchemeID: suite.SchemeID(), Seed: seed}

	if err := store.SaveHolder(rec); err != nil {
		return nil, err
	}

	return rec, nil
}

// personalAddresses derives each holder's personal 1-of-1 account address.
func personalAddresses(suite multisig.Suite, holders []multisig.KeyHolder) []multisig.Address {
	addrs := make([]multisig.Address, len(holders))

	for i, h := range holders {
		key, _ := multisig.Build(suite, []multisig.PublicKey{h.PublicKey()}, 1)
		addrs[i] = key.Address()
	}

	return addrs
}

// fundAll requests faucet funding for every address in parallel.
func fundAll(client *ledger.Client, addrs []multisig.Address, amount uint64) error {
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	for _, addr := range addrs {
		wg.Add(1)

		go func(addr multisig.Address) {
			defer wg.Done()

			if err := client.Fund(addr, amount); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}(addr)
	}

	wg.Wait()

	return firstErr
}

// reportBalances logs every account's balance.
func reportBalances(client *ledger.Client, personal []multisig.Address, joint multisig.Address) error {
	for i, addr := range personal {
		balance, err := client.Balance(addr)
		if err != nil {
			return fmt.Errorf("balance of %s:\n%w", holderNames[i], err)
		}

		logger.Info("balance", "account", holderNames[i], "amount", balance)
	}

	balance, err := client.Balance(joint)
	if err != nil {
		return fmt.Errorf("balance of joint account:\n%w", err)
	}

	logger.Info("balance", "account", "joint", "amount", balance)

	return nil
}

// collectPartials gathers partial signatures from the signing holders,
// either in-process or through QUIC signer endpoints.
func collectPartials(cfg *Config, key *multisig.CompositePublicKey, signers []multisig.KeyHolder, message []byte) ([]multisig.IndexedSignature, error) {
	if !cfg.Remote {
		return signInProcess(signers, message), nil
	}

	endpoints := make([]remote.Endpoint, len(signers))

	for i, holder := range signers {
		server, err := remote.NewServer(remote.ServerConfig{
			Holder:     holder,
			ListenAddr: "127.0.0.1:0",
		})
		if err != nil {
			return nil, fmt.Errorf("create signer endpoint %d:\n%w", i, err)
		}

		if err := server.Start(); err != nil {
			return nil, fmt.Errorf("start signer endpoint %d:\n%w", i, err)
		}
		defer server.Close()

		endpoints[i] = remote.Endpoint{Index: i, Addr: server.Addr()}
		logger.Debug("signer endpoint up", "index", i, "addr", server.Addr())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.WaitTimeout)
	defer cancel()

	return remote.Collect(ctx, key, endpoints, message)
}

// signInProcess collects partials from in-process holders in parallel.
// The holders are independent; the combiner is order-insensitive.
func signInProcess(signers []multisig.KeyHolder, message []byte) []multisig.IndexedSignature {
	partials := make([]multisig.IndexedSignature, len(signers))

	var wg sync.WaitGroup

	for i, holder := range signers {
		wg.Add(1)

		go func(i int, holder multisig.KeyHolder) {
			defer wg.Done()

			partials[i] = multisig.IndexedSignature{
				Index:     i,
				Signature: holder.Sign(message),
			}
		}(i, holder)
	}

	wg.Wait()

	return partials
}
