package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Default configuration values.
const (
	DefaultCallTimeout = 5 * time.Second
	maxResponseBytes   = 16 << 20
)

// ErrAllEndpointsFailed is returned when every configured endpoint failed
// or returned no usable result.
var ErrAllEndpointsFailed = errors.New("all rpc endpoints failed")

// Observer receives per-endpoint call outcomes.
type Observer interface {
	ObserveRPC(endpoint, method string, elapsed time.Duration, err error)
}

// Gateway sends JSON-RPC 2.0 requests to a prioritized endpoint list.
// Failover is the only retry strategy: each endpoint is tried once per call.
type Gateway struct {
	endpoints   []Endpoint
	client      *http.Client
	callTimeout time.Duration
	observer    Observer
	logger      logrus.FieldLogger
	requestID   atomic.Uint64
}

// GatewayOption configures Gateway.
type GatewayOption func(*Gateway)

// WithCallTimeout bounds each endpoint attempt.
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.callTimeout = d
		}
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) GatewayOption {
	return func(g *Gateway) {
		g.observer = o
	}
}

// WithLogger sets the gateway logger.
func WithLogger(l logrus.FieldLogger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGateway creates a gateway over endpoints in priority order.
func NewGateway(endpoints []Endpoint, opts ...GatewayOption) (*Gateway, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("at least one rpc endpoint is required")
	}
	for i, ep := range endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("rpc endpoint %d has empty url", i)
		}
	}

	g := &Gateway{
		endpoints:   append([]Endpoint(nil), endpoints...),
		client:      &http.Client{},
		callTimeout: DefaultCallTimeout,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// errEmptyResult marks a response whose result was null, false, 0 or "".
var errEmptyResult = errors.New("empty result")

// Call performs method against each endpoint in order and decodes the first
// usable result into out. It fails with ErrAllEndpointsFailed only after
// every endpoint has been tried.
func (g *Gateway) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      g.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for i, ep := range g.endpoints {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAllEndpointsFailed, method, err)
		}

		name := ep.label(i)
		start := time.Now()
		result, err := g.callEndpoint(ctx, ep, body)
		if g.observer != nil {
			g.observer.ObserveRPC(name, method, time.Since(start), err)
		}
		if err != nil {
			lastErr = err
			g.logger.WithFields(logrus.Fields{
				"endpoint": name,
				"method":   method,
			}).Debugf("[rpc] endpoint failed: %v", err)
			continue
		}

		if out != nil {
			if err := json.Unmarshal(result, out); err != nil {
				lastErr = fmt.Errorf("unmarshal result: %w", err)
				continue
			}
		}
		return nil
	}

	return fmt.Errorf("%w: %s: %v", ErrAllEndpointsFailed, method, lastErr)
}

// callEndpoint performs one bounded attempt against a single endpoint.
func (g *Gateway) callEndpoint(ctx context.Context, ep Endpoint, body []byte) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	if !isTruthy(rpcResp.Result) {
		return nil, errEmptyResult
	}
	return rpcResp.Result, nil
}

// isTruthy mirrors JSON-RPC clients that only accept a truthy result field.
// Empty arrays and objects count as truthy.
func isTruthy(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// GetAccountInfo retrieves account info with jsonParsed encoding.
// Returns nil if account not found.
func (g *Gateway) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "jsonParsed",
		},
	}

	var result getAccountInfoResult
	if err := g.Call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
	}
	data, err := decodeAccountData(result.Value.Data)
	if err != nil {
		return nil, err
	}
	info.Data = data
	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64          `json:"lamports"`
	Owner      string          `json:"owner"`
	Data       json.RawMessage `json:"data"` // parsed object or [base64_data, encoding]
	Executable bool            `json:"executable"`
}

type parsedAccountData struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string          `json:"type"`
		Info json.RawMessage `json:"info"`
	} `json:"parsed"`
}

// decodeAccountData accepts both jsonParsed objects and the base64 tuple
// nodes fall back to for accounts they cannot parse.
func decodeAccountData(raw json.RawMessage) (AccountData, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return AccountData{}, nil
	}

	if trimmed[0] == '[' {
		var tuple []string
		if err := json.Unmarshal(trimmed, &tuple); err != nil {
			return AccountData{}, fmt.Errorf("decode account data tuple: %w", err)
		}
		if len(tuple) == 0 {
			return AccountData{}, nil
		}
		decoded, err := decodeBase64(tuple[0])
		if err != nil {
			return AccountData{}, fmt.Errorf("decode account data: %w", err)
		}
		return AccountData{Raw: decoded}, nil
	}

	var parsed parsedAccountData
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return AccountData{}, fmt.Errorf("decode parsed account data: %w", err)
	}
	return AccountData{
		Program:    parsed.Program,
		ParsedType: parsed.Parsed.Type,
		Info:       parsed.Parsed.Info,
	}, nil
}

// GetTokenSupply retrieves the total supply of a mint.
func (g *Gateway) GetTokenSupply(ctx context.Context, mint string) (*TokenAmount, error) {
	var result struct {
		Value struct {
			Amount         string `json:"amount"`
			Decimals       uint8  `json:"decimals"`
			UIAmountString string `json:"uiAmountString"`
		} `json:"value"`
	}
	if err := g.Call(ctx, "getTokenSupply", []interface{}{mint}, &result); err != nil {
		return nil, err
	}
	return &TokenAmount{
		Amount:         result.Value.Amount,
		Decimals:       result.Value.Decimals,
		UIAmountString: result.Value.UIAmountString,
	}, nil
}

// GetSignaturesForAddress retrieves signatures for an address, newest first.
func (g *Gateway) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := g.Call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}
	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// GetTransaction retrieves a transaction by signature.
// Loaded lookup-table addresses are appended to the message account keys.
func (g *Gateway) GetTransaction(ctx context.Context, signature string) (*Transaction, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "json",
			"maxSupportedTransactionVersion": 0,
		},
	}

	var result getTransactionResult
	if err := g.Call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}

	tx := &Transaction{
		Slot:      result.Slot,
		Signature: signature,
		BlockTime: result.BlockTime,
	}

	var loaded []string
	if result.Meta != nil {
		tx.Meta = &TransactionMeta{
			Err:         result.Meta.Err,
			LogMessages: result.Meta.LogMessages,
		}
		if result.Meta.LoadedAddresses != nil {
			loaded = append(loaded, result.Meta.LoadedAddresses.Writable...)
			loaded = append(loaded, result.Meta.LoadedAddresses.Readonly...)
		}
	}

	if result.Transaction != nil && result.Transaction.Message != nil {
		keys := make([]string, 0, len(result.Transaction.Message.AccountKeys)+len(loaded))
		keys = append(keys, result.Transaction.Message.AccountKeys...)
		keys = append(keys, loaded...)
		tx.Message = &TransactionMessage{AccountKeys: keys}
	}

	return tx, nil
}

// getTransactionResult is the raw RPC response for getTransaction.
type getTransactionResult struct {
	Slot        int64               `json:"slot"`
	BlockTime   *int64              `json:"blockTime"`
	Meta        *getTransactionMeta `json:"meta"`
	Transaction *getTransactionTx   `json:"transaction"`
}

type getTransactionMeta struct {
	Err             interface{}      `json:"err"`
	LogMessages     []string         `json:"logMessages"`
	LoadedAddresses *loadedAddresses `json:"loadedAddresses"`
}

type loadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type getTransactionTx struct {
	Message *getTransactionMessage `json:"message"`
}

type getTransactionMessage struct {
	AccountKeys []string `json:"accountKeys"`
}

// Compile-time interface check.
var _ RPCClient = (*Gateway)(nil)
