package solana

import (
	"encoding/json"
	"strconv"
)

// Endpoint is one JSON-RPC node in the gateway's priority list.
// Headers typically carry bearer tokens or API keys and are never logged.
type Endpoint struct {
	Name    string            `yaml:"name"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// label returns a log-safe identifier for the endpoint.
func (e Endpoint) label(index int) string {
	if e.Name != "" {
		return e.Name
	}
	return "endpoint-" + strconv.Itoa(index)
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // Start searching backwards from this signature
	Until  string // Search until this signature
	Limit  int    // Maximum number of signatures to return
}

// Transaction represents a confirmed transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime *int64 // Unix timestamp (seconds), nil when unavailable
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err         interface{}
	LogMessages []string
}

// TransactionMessage contains the message account keys, including loaded addresses.
type TransactionMessage struct {
	AccountKeys []string
}

// AccountInfo represents account information fetched with jsonParsed encoding.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Executable bool
	Data       AccountData
}

// AccountData holds either the node's parsed representation or raw bytes
// when the node could not parse the account.
type AccountData struct {
	Program    string          // parsed.program, e.g. "spl-token-2022"
	ParsedType string          // parsed.type, e.g. "mint"
	Info       json.RawMessage // parsed.info, nil when unparsed
	Raw        []byte          // decoded base64 payload when unparsed
}

// IsParsed reports whether the node returned a parsed payload.
func (d AccountData) IsParsed() bool {
	return len(d.Info) > 0 && string(d.Info) != "null"
}

// TokenAmount is the value of getTokenSupply.
type TokenAmount struct {
	Amount         string
	Decimals       uint8
	UIAmountString string
}
