// Package watch re-scores tracked mints when live logs show DEX activity.
package watch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/domain"
	"x1-token-verifier/internal/liquidity"
	"x1-token-verifier/internal/solana"
)

// Notification outcomes reported to the Observer.
const (
	ActionReanalyzed = "reanalyzed"
	ActionDebounced  = "debounced"
	ActionIgnored    = "ignored"
	ActionFailedTx   = "failed_tx"
	ActionError      = "error"
)

// Reanalyzer re-scores a mint.
type Reanalyzer interface {
	Reanalyze(ctx context.Context, mint string) (*domain.RiskAssessment, error)
}

// MintLister lists the mints to watch. storage.TokenStore satisfies it.
type MintLister interface {
	ListMints(ctx context.Context) ([]string, error)
}

// Observer records watcher activity.
type Observer interface {
	ObserveWatch(action string)
	SetWatchedMints(n int)
}

// Config holds watcher parameters.
type Config struct {
	// DEXPrograms are program ids whose appearance in logs triggers reanalysis.
	DEXPrograms map[string]string
	// Debounce is the minimum gap between reanalyses of one mint.
	Debounce time.Duration
	// Refresh is how often the tracked mint list is reloaded.
	Refresh time.Duration
	Logger  logrus.FieldLogger
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		DEXPrograms: liquidity.DefaultDEXPrograms(),
		Debounce:    time.Minute,
		Refresh:     5 * time.Minute,
		Logger:      logrus.StandardLogger(),
	}
}

// Watcher subscribes to logs mentioning each tracked mint.
type Watcher struct {
	ws         solana.WSClient
	mints      MintLister
	reanalyzer Reanalyzer
	observer   Observer
	config     Config
	now        func() time.Time

	mu         sync.Mutex
	subscribed map[string]struct{}
	lastRun    map[string]time.Time
	wg         sync.WaitGroup
}

// Option configures Watcher.
type Option func(*Watcher)

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(w *Watcher) {
		w.observer = o
	}
}

// New creates a watcher.
func New(config Config, ws solana.WSClient, mints MintLister, reanalyzer Reanalyzer, opts ...Option) *Watcher {
	def := DefaultConfig()
	if config.DEXPrograms == nil {
		config.DEXPrograms = def.DEXPrograms
	}
	if config.Debounce < 0 {
		config.Debounce = 0
	}
	if config.Refresh <= 0 {
		config.Refresh = def.Refresh
	}
	if config.Logger == nil {
		config.Logger = def.Logger
	}

	w := &Watcher{
		ws:         ws,
		mints:      mints,
		reanalyzer: reanalyzer,
		config:     config,
		now:        time.Now,
		subscribed: make(map[string]struct{}),
		lastRun:    make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run subscribes to every tracked mint and keeps the set current until ctx
// is cancelled. It returns ctx.Err() after all subscription loops exit.
func (w *Watcher) Run(ctx context.Context) error {
	w.config.Logger.Info("[watch] starting")

	w.refresh(ctx)

	ticker := time.NewTicker(w.config.Refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.config.Logger.Info("[watch] stopped")
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// refresh subscribes to mints that are not yet watched.
func (w *Watcher) refresh(ctx context.Context) {
	mints, err := w.mints.ListMints(ctx)
	if err != nil {
		w.config.Logger.WithError(err).Warn("[watch] list mints failed")
		return
	}

	for _, mint := range mints {
		w.mu.Lock()
		_, done := w.subscribed[mint]
		w.mu.Unlock()
		if done {
			continue
		}

		ch, err := w.ws.SubscribeLogs(ctx, solana.LogsFilter{Mention: mint})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.config.Logger.WithError(err).WithField("mint", mint).Warn("[watch] subscribe failed")
			continue
		}

		w.mu.Lock()
		w.subscribed[mint] = struct{}{}
		n := len(w.subscribed)
		w.mu.Unlock()
		if w.observer != nil {
			w.observer.SetWatchedMints(n)
		}

		w.wg.Add(1)
		go w.consume(ctx, mint, ch)
		w.config.Logger.WithField("mint", mint).Debug("[watch] subscribed")
	}
}

func (w *Watcher) consume(ctx context.Context, mint string, ch <-chan solana.LogNotification) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-ch:
			if !ok {
				w.config.Logger.WithField("mint", mint).Debug("[watch] subscription closed")
				w.mu.Lock()
				delete(w.subscribed, mint)
				w.mu.Unlock()
				return
			}
			w.observe(w.handle(ctx, mint, notif))
		}
	}
}

// handle decides what to do with one notification and returns the action taken.
func (w *Watcher) handle(ctx context.Context, mint string, notif solana.LogNotification) string {
	if notif.Failed() {
		return ActionFailedTx
	}

	program, ok := w.dexProgram(notif.Logs)
	if !ok {
		return ActionIgnored
	}

	now := w.now()
	w.mu.Lock()
	last, seen := w.lastRun[mint]
	if seen && now.Sub(last) < w.config.Debounce {
		w.mu.Unlock()
		return ActionDebounced
	}
	w.lastRun[mint] = now
	w.mu.Unlock()

	log := w.config.Logger.WithFields(logrus.Fields{
		"mint":      mint,
		"dex":       w.config.DEXPrograms[program],
		"signature": notif.Signature,
	})

	a, err := w.reanalyzer.Reanalyze(ctx, mint)
	if err != nil {
		log.WithError(err).Warn("[watch] reanalysis failed")
		return ActionError
	}
	log.WithField("score", a.RiskScore).Info("[watch] reanalyzed after dex activity")
	return ActionReanalyzed
}

// dexProgram returns the first allow-listed program seen in a
// "Program <id> invoke|success|failed" line.
func (w *Watcher) dexProgram(logs []string) (string, bool) {
	for _, line := range logs {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[0] != "Program" {
			continue
		}
		if _, ok := w.config.DEXPrograms[fields[1]]; ok {
			return fields[1], true
		}
	}
	return "", false
}

func (w *Watcher) observe(action string) {
	if w.observer != nil {
		w.observer.ObserveWatch(action)
	}
}
