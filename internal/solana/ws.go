package solana

import "context"

// WSClient streams logsSubscribe notifications. LogsClient is the
// gorilla/websocket implementation.
type WSClient interface {
	// SubscribeLogs returns a channel of notifications for logs that
	// mention filter.Mention. The channel closes when the subscription ends.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)
	Close() error
}

// LogsFilter selects a single mentioned account, typically a mint.
type LogsFilter struct {
	Mention string
}

// LogNotification is one transaction's log batch.
type LogNotification struct {
	Mention   string // filter address this notification arrived on
	Signature string
	Slot      int64
	Logs      []string
	Err       interface{} // transaction error as reported by the node
}

// Failed reports whether the transaction errored on chain.
func (n LogNotification) Failed() bool {
	return n.Err != nil
}
