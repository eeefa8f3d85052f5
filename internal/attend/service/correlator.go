package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Lumnic12/attend/internal/attend/clock"
	"github.com/Lumnic12/attend/internal/attend/types"
)

var (
	ErrInvalidCardID     = errors.New("card_id is required")
	ErrCorrelatorStopped = errors.New("scan correlator stopped")
)

const (
	DefaultWaitTimeout = 10 * time.Second
	DefaultQueueSize   = 64
)

// Processor runs the full verification pipeline for one scan. The
// correlator never calls it concurrently.
type Processor interface {
	Process(ctx context.Context, ev types.CardEvent) types.ScanResult
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, ev types.CardEvent) types.ScanResult

func (f ProcessorFunc) Process(ctx context.Context, ev types.CardEvent) types.ScanResult {
	return f(ctx, ev)
}

type CorrelatorConfig struct {
	WaitTimeout time.Duration
	QueueSize   int
	Clock       clock.Clock
	Metrics     Metrics
}

// Correlator lets many concurrent callers share one serialized
// verification worker. Each Submit gets a unique token and a single-use
// reply channel; the worker resolves the token after processing, and a
// reply for a caller that already gave up is dropped.
type Correlator struct {
	proc    Processor
	cfg     CorrelatorConfig
	logger  *slog.Logger
	metrics Metrics

	queue chan types.CardEvent

	mu      sync.Mutex
	pending map[string]chan types.ScanResult

	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool
	quit      chan struct{}
	done      chan struct{}
	cancel    context.CancelFunc
}

func NewCorrelator(proc Processor, cfg CorrelatorConfig, logger *slog.Logger) *Correlator {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		proc:    proc,
		cfg:     cfg,
		logger:  logger,
		metrics: cfg.Metrics,
		queue:   make(chan types.CardEvent, cfg.QueueSize),
		pending: make(map[string]chan types.ScanResult),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker loop. ctx bounds every Process call; the loop
// itself runs until Stop.
func (c *Correlator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		ctx, c.cancel = context.WithCancel(ctx)
		c.running.Store(true)
		go c.loop(ctx)
		c.logger.Info("scan worker started", "queue_size", c.cfg.QueueSize, "wait_timeout", c.cfg.WaitTimeout)
	})
}

// Stop cancels the event in progress, if any, waits for the worker loop
// to exit and releases every waiting caller with ErrCorrelatorStopped. Queued events
// are not processed. A correlator that was never started cannot be
// started after Stop.
func (c *Correlator) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
		c.startOnce.Do(func() { close(c.done) })
		if c.cancel != nil {
			c.cancel()
		}
	})
	<-c.done
	c.running.Store(false)
}

// Running reports whether the worker loop is active.
func (c *Correlator) Running() bool { return c.running.Load() }

// Submit queues a scan of cardID and waits for its result. It returns
// ResultTimeout when the wait timeout or ctx expires first; the worker's
// later result for this submission is then discarded.
func (c *Correlator) Submit(ctx context.Context, cardID string) (types.ScanResult, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return "", ErrInvalidCardID
	}
	select {
	case <-c.quit:
		return types.ResultTimeout, ErrCorrelatorStopped
	default:
	}

	ev := types.CardEvent{
		Token:       uuid.NewString(),
		CardID:      cardID,
		SubmittedAt: c.cfg.Clock.Now(),
	}
	reply := make(chan types.ScanResult, 1)

	c.mu.Lock()
	c.pending[ev.Token] = reply
	c.mu.Unlock()

	// The wait deadline runs on the configured clock.
	expired := make(chan struct{})
	timer := c.cfg.Clock.AfterFunc(c.cfg.WaitTimeout, func() { close(expired) })
	defer timer.Stop()

	select {
	case c.queue <- ev:
		c.metrics.QueueDepth(len(c.queue))
	case <-expired:
		return c.giveUp(ev, "scan queue full, gave up")
	case <-ctx.Done():
		return c.giveUp(ev, "scan queue full, caller gone")
	case <-c.quit:
		c.forget(ev.Token)
		return types.ResultTimeout, ErrCorrelatorStopped
	}

	select {
	case res := <-reply:
		return res, nil
	case <-expired:
		return c.giveUp(ev, "scan timed out")
	case <-ctx.Done():
		return c.giveUp(ev, "scan abandoned by caller")
	case <-c.quit:
		c.forget(ev.Token)
		return types.ResultTimeout, ErrCorrelatorStopped
	}
}

// giveUp forgets a submission whose caller stopped waiting. A result the
// worker produces for it later is dropped.
func (c *Correlator) giveUp(ev types.CardEvent, msg string) (types.ScanResult, error) {
	c.forget(ev.Token)
	c.metrics.ScanTimedOut()
	c.logger.Warn(msg, "card_id", ev.CardID, "token", ev.Token, "wait_timeout", c.cfg.WaitTimeout)
	return types.ResultTimeout, nil
}

// Pending returns the number of callers still waiting for a result.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// QueueDepth returns the number of scans waiting for the worker.
func (c *Correlator) QueueDepth() int { return len(c.queue) }

func (c *Correlator) forget(token string) {
	c.mu.Lock()
	delete(c.pending, token)
	c.mu.Unlock()
}

// resolve hands res to the waiting caller, if it is still waiting.
func (c *Correlator) resolve(token string, res types.ScanResult) bool {
	c.mu.Lock()
	reply, ok := c.pending[token]
	delete(c.pending, token)
	c.mu.Unlock()

	if !ok {
		return false
	}
	reply <- res
	return true
}

func (c *Correlator) loop(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-c.quit:
			return
		case ev := <-c.queue:
			c.metrics.QueueDepth(len(c.queue))
			start := time.Now()
			res := c.process(ctx, ev)
			c.metrics.ScanProcessed(res, time.Since(start))
			if !c.resolve(ev.Token, res) {
				c.logger.Info("dropping late scan result", "card_id", ev.CardID, "token", ev.Token, "result", res)
			}
		}
	}
}

// process contains a panicking processor so one bad scan cannot stop the
// worker.
func (c *Correlator) process(ctx context.Context, ev types.CardEvent) (res types.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("scan processing panicked", "card_id", ev.CardID, "panic", fmt.Sprint(r))
			res = types.ResultFaceFail
		}
	}()
	return c.proc.Process(ctx, ev)
}
