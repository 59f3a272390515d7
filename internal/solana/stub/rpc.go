package stub

import (
	"context"
	"errors"
	"sync"

	"x1-token-verifier/internal/solana"
)

// ErrNotFound is returned when a transaction is not found.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
// Err* fields force the matching method to fail.
type RPCClient struct {
	mu           sync.Mutex
	Accounts     map[string]*solana.AccountInfo
	Supplies     map[string]*solana.TokenAmount
	Transactions map[string]*solana.Transaction
	Signatures   map[string][]solana.SignatureInfo

	AccountErr     error
	SupplyErr      error
	SignaturesErr  error
	TransactionErr error

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:     make(map[string]*solana.AccountInfo),
		Supplies:     make(map[string]*solana.TokenAmount),
		Transactions: make(map[string]*solana.Transaction),
		Signatures:   make(map[string][]solana.SignatureInfo),
		calls:        make(map[string]int),
	}
}

func (c *RPCClient) record(method string) {
	c.mu.Lock()
	c.calls[method]++
	c.mu.Unlock()
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// GetAccountInfo returns the stored account, or nil when absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.record("getAccountInfo")
	if c.AccountErr != nil {
		return nil, c.AccountErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetTokenSupply returns the stored supply for mint.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (*solana.TokenAmount, error) {
	c.record("getTokenSupply")
	if c.SupplyErr != nil {
		return nil, c.SupplyErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	supply, ok := c.Supplies[mint]
	if !ok {
		return nil, ErrNotFound
	}
	return supply, nil
}

// GetTransaction retrieves a transaction by signature from the stub store.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	c.record("getTransaction")
	if c.TransactionErr != nil {
		return nil, c.TransactionErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, ok := c.Transactions[signature]
	if !ok {
		return nil, ErrNotFound
	}
	return tx, nil
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	c.record("getSignaturesForAddress")
	if c.SignaturesErr != nil {
		return nil, c.SignaturesErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sigs, ok := c.Signatures[address]
	if !ok {
		return []solana.SignatureInfo{}, nil
	}

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// AddAccount stores an account under address.
func (c *RPCClient) AddAccount(address string, info *solana.AccountInfo) {
	c.mu.Lock()
	c.Accounts[address] = info
	c.mu.Unlock()
}

// AddSupply stores the token supply for mint.
func (c *RPCClient) AddSupply(mint string, amount *solana.TokenAmount) {
	c.mu.Lock()
	c.Supplies[mint] = amount
	c.mu.Unlock()
}

// AddTransaction adds a transaction to the stub store.
func (c *RPCClient) AddTransaction(tx *solana.Transaction) {
	c.mu.Lock()
	c.Transactions[tx.Signature] = tx
	c.mu.Unlock()
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	c.Signatures[address] = sigs
	c.mu.Unlock()
}

var _ solana.RPCClient = (*RPCClient)(nil)
