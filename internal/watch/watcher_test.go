package watch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/liquidity"
	"x1-token-verifier/internal/solana"
)

type fakeWS struct {
	mu      sync.Mutex
	chans   map[string]chan solana.LogNotification
	failFor map[string]bool
}

func newFakeWS() *fakeWS {
	return &fakeWS{
		chans:   make(map[string]chan solana.LogNotification),
		failFor: make(map[string]bool),
	}
}

func (f *fakeWS) SubscribeLogs(_ context.Context, filter solana.LogsFilter) (<-chan solana.LogNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[filter.Mention] {
		return nil, errors.New("subscribe refused")
	}
	ch := make(chan solana.LogNotification, 16)
	f.chans[filter.Mention] = ch
	return ch, nil
}

func (f *fakeWS) Close() error { return nil }

func (f *fakeWS) channel(mint string) chan solana.LogNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chans[mint]
}

func (f *fakeWS) subscriptions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chans)
}

type staticMints struct {
	mu    sync.Mutex
	mints []string
	err   error
}

func (s *staticMints) ListMints(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.mints...), s.err
}

type recordingReanalyzer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingReanalyzer) Reanalyze(_ context.Context, mint string) (*domain.RiskAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, mint)
	if r.err != nil {
		return nil, r.err
	}
	return &domain.RiskAssessment{MintAddress: mint, RiskScore: 25}, nil
}

func (r *recordingReanalyzer) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type recordingObserver struct {
	mu      sync.Mutex
	actions []string
	watched int
}

func (o *recordingObserver) ObserveWatch(action string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.actions = append(o.actions, action)
}

func (o *recordingObserver) SetWatchedMints(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.watched = n
}

func dexLogs() []string {
	return []string{
		"Program ComputeBudget111111111111111111111111111111 invoke [1]",
		"Program " + liquidity.RaydiumAMMV4 + " invoke [1]",
		"Program log: ray_log: swap",
	}
}

func newTestWatcher(debounce time.Duration) (*Watcher, *recordingReanalyzer, *recordingObserver) {
	re := &recordingReanalyzer{}
	obs := &recordingObserver{}
	cfg := DefaultConfig()
	cfg.Debounce = debounce
	w := New(cfg, newFakeWS(), &staticMints{}, re, WithObserver(obs))
	return w, re, obs
}

func TestHandle_ReanalyzesOnDEXActivity(t *testing.T) {
	w, re, _ := newTestWatcher(time.Minute)

	action := w.handle(context.Background(), "MintA", solana.LogNotification{Signature: "sig", Logs: dexLogs()})

	assert.Equal(t, ActionReanalyzed, action)
	assert.Equal(t, []string{"MintA"}, re.calls)
}

func TestHandle_IgnoresNonDEXLogs(t *testing.T) {
	w, re, _ := newTestWatcher(time.Minute)

	action := w.handle(context.Background(), "MintA", solana.LogNotification{
		Logs: []string{"Program TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA invoke [1]"},
	})

	assert.Equal(t, ActionIgnored, action)
	assert.Zero(t, re.count())
}

func TestHandle_IgnoresDataLinesMentioningDEX(t *testing.T) {
	w, re, _ := newTestWatcher(time.Minute)

	action := w.handle(context.Background(), "MintA", solana.LogNotification{
		Logs: []string{"Program log: routed via " + liquidity.RaydiumAMMV4},
	})

	assert.Equal(t, ActionIgnored, action)
	assert.Zero(t, re.count())
}

func TestHandle_SkipsFailedTransactions(t *testing.T) {
	w, re, _ := newTestWatcher(time.Minute)

	action := w.handle(context.Background(), "MintA", solana.LogNotification{
		Logs: dexLogs(),
		Err:  map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	})

	assert.Equal(t, ActionFailedTx, action)
	assert.Zero(t, re.count())
}

func TestHandle_DebouncesPerMint(t *testing.T) {
	w, re, _ := newTestWatcher(time.Minute)
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	ctx := context.Background()
	notif := solana.LogNotification{Logs: dexLogs()}

	assert.Equal(t, ActionReanalyzed, w.handle(ctx, "MintA", notif))
	assert.Equal(t, ActionDebounced, w.handle(ctx, "MintA", notif))
	// Other mints are independent.
	assert.Equal(t, ActionReanalyzed, w.handle(ctx, "MintB", notif))

	now = now.Add(time.Minute)
	assert.Equal(t, ActionReanalyzed, w.handle(ctx, "MintA", notif))
	assert.Equal(t, 3, re.count())
}

func TestHandle_ReanalysisError(t *testing.T) {
	w, re, _ := newTestWatcher(0)
	re.err = errors.New("rpc down")

	action := w.handle(context.Background(), "MintA", solana.LogNotification{Logs: dexLogs()})
	assert.Equal(t, ActionError, action)
}

func TestRun_SubscribesAndReanalyzes(t *testing.T) {
	ws := newFakeWS()
	ws.failFor["MintBad"] = true
	mints := &staticMints{mints: []string{"MintA", "MintBad"}}
	re := &recordingReanalyzer{}
	obs := &recordingObserver{}

	cfg := DefaultConfig()
	cfg.Refresh = 20 * time.Millisecond
	w := New(cfg, ws, mints, re, WithObserver(obs))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return ws.channel("MintA") != nil }, time.Second, 5*time.Millisecond)
	ws.channel("MintA") <- solana.LogNotification{Signature: "s1", Logs: dexLogs()}
	require.Eventually(t, func() bool { return re.count() == 1 }, time.Second, 5*time.Millisecond)

	// New mints are picked up on refresh.
	mints.mu.Lock()
	mints.mints = append(mints.mints, "MintC")
	mints.mu.Unlock()
	require.Eventually(t, func() bool { return ws.channel("MintC") != nil }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}

	assert.Equal(t, 2, ws.subscriptions())
	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, 2, obs.watched)
	assert.Contains(t, obs.actions, ActionReanalyzed)
}

func TestRun_ResubscribesAfterChannelClose(t *testing.T) {
	ws := newFakeWS()
	mints := &staticMints{mints: []string{"MintA"}}

	cfg := DefaultConfig()
	cfg.Refresh = 10 * time.Millisecond
	w := New(cfg, ws, mints, &recordingReanalyzer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool { return ws.channel("MintA") != nil }, time.Second, 5*time.Millisecond)
	first := ws.channel("MintA")
	close(first)

	require.Eventually(t, func() bool {
		ch := ws.channel("MintA")
		return ch != nil && ch != first
	}, time.Second, 5*time.Millisecond)
}
