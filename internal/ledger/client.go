// Package ledger is the narrow client for the external ledger service:
// chain identity, balances, faucet funding and transaction submission.
// The signature core never touches the network; everything here happens
// before signing (message construction inputs) or after verification
// (submission by the relying party).
package ledger

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"quorumsig/internal/multisig"
	"quorumsig/internal/txn"
)

// defaultPollInterval is the delay between transaction status polls.
const defaultPollInterval = 500 * time.Millisecond

// Client connects to a ledger node via HTTP.
type Client struct {
	nodeAddr string // nodeAddr is the HTTP address (e.g. "127.0.0.1:8080")
	chainID  uint8  // chainID is the node's chain identifier
}

// New creates a client connected to a node. It fetches the chain id from
// the node's /status endpoint; the chain id is folded into every signing
// message to bind transactions to this chain.
func New(nodeAddr string) (*Client, error) {
	var status struct {
		ChainID uint8 `json:"chainId"`
	}

	if err := httpGet("http://"+nodeAddr+"/status", &status); err != nil {
		return nil, fmt.Errorf("get status:\n%w", err)
	}

	return &Client{
		nodeAddr: nodeAddr,
		chainID:  status.ChainID,
	}, nil
}

// ChainID returns the node's chain identifier.
func (c *Client) ChainID() uint8 {
	return c.chainID
}

// Balance returns the account's balance in base units.
func (c *Client) Balance(addr multisig.Address) (uint64, error) {
	var resp struct {
		Balance uint64 `json:"balance"`
	}

	url := "http://" + c.nodeAddr + "/account/" + addr.String()
	if err := httpGet(url, &resp); err != nil {
		return 0, fmt.Errorf("get balance:\n%w", err)
	}

	return resp.Balance, nil
}

// Fund requests tokens for the account from the faucet endpoint.
func (c *Client) Fund(addr multisig.Address, amount uint64) error {
	body := map[string]any{
		"address": addr.String(),
		"amount":  amount,
	}

	var resp struct {
		Funded bool `json:"funded"`
	}

	if err := httpPostJSON("http://"+c.nodeAddr+"/faucet", body, &resp); err != nil {
		return fmt.Errorf("faucet:\n%w", err)
	}

	return nil
}

// Submit sends a signed transaction envelope to the node and returns the
// transaction hash the node acknowledged.
func (c *Client) Submit(signed *txn.SignedTransaction) ([32]byte, error) {
	var resp struct {
		Hash string `json:"hash"`
	}

	if err := httpPostBytes("http://"+c.nodeAddr+"/tx", signed.Encode(), &resp); err != nil {
		return [32]byte{}, fmt.Errorf("submit transaction:\n%w", err)
	}

	return decodeHash(resp.Hash)
}

// WaitForTransaction polls the node until the transaction commits or the
// context is done.
func (c *Client) WaitForTransaction(ctx context.Context, hash [32]byte) error {
	url := "http://" + c.nodeAddr + "/tx/" + hex.EncodeToString(hash[:])

	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for {
		var resp struct {
			Committed bool `json:"committed"`
		}

		if err := httpGet(url, &resp); err != nil {
			return fmt.Errorf("poll transaction:\n%w", err)
		}

		if resp.Committed {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for transaction %x:\n%w", hash[:8], ctx.Err())
		case <-ticker.C:
		}
	}
}

// decodeHash decodes a 64-char hex string to a [32]byte.
func decodeHash(hexStr string) ([32]byte, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		return [32]byte{}, fmt.Errorf("invalid hash: %q", hexStr)
	}

	var hash [32]byte
	copy(hash[:], b)

	return hash, nil
}
