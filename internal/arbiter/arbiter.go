package arbiter

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/config"
	"gamearbiter/internal/launcher"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/metrics"
	"gamearbiter/internal/notifications"
	"gamearbiter/internal/request"
)

var (
	// ErrQueueFull is returned by Submit when the inbound queue has no room.
	ErrQueueFull = errors.New("request queue full")
	// ErrClosed is returned once Run has stopped.
	ErrClosed = errors.New("arbiter stopped")
	// ErrNoSelection is returned by Choose when no prompt is open.
	ErrNoSelection = errors.New("no selection pending")
	// ErrInvalidChoice is returned by Choose for an out-of-range index.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrNothingRunning is returned by Exit when no launched game matches.
	ErrNothingRunning = errors.New("no game launched")
)

// Catalog is the lookup surface the arbiter needs.
type Catalog interface {
	BySerial(ctx context.Context, system, serial string) ([]catalog.Entry, error)
	ByAlias(ctx context.Context, system string, idType request.IDType, identifier string) ([]catalog.Entry, error)
	BySystem(ctx context.Context, system string) ([]catalog.Entry, error)
}

// Config tunes arbitration.
type Config struct {
	MatchThreshold   int
	AmbiguityMargin  int
	PreferredRegion  string
	QueueSize        int
	LaunchTimeout    time.Duration
	SelectionTimeout time.Duration
}

// ConfigFrom extracts arbiter settings from the daemon configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MatchThreshold:   cfg.Arbiter.MatchThreshold,
		AmbiguityMargin:  cfg.Arbiter.AmbiguityMargin,
		PreferredRegion:  cfg.Arbiter.PreferredRegion,
		QueueSize:        cfg.Arbiter.QueueSize,
		LaunchTimeout:    cfg.LaunchTimeout(),
		SelectionTimeout: cfg.SelectionTimeout(),
	}
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	if c.LaunchTimeout <= 0 {
		c.LaunchTimeout = 5 * time.Second
	}
	if c.SelectionTimeout <= 0 {
		c.SelectionTimeout = 30 * time.Second
	}
	if c.AmbiguityMargin < 0 {
		c.AmbiguityMargin = 0
	}
	return c
}

// Option customizes an Arbiter.
type Option func(*Arbiter)

// WithRandom replaces the random source used for the "random" keyword.
// pick returns an index in [0, n).
func WithRandom(pick func(n int) int) Option {
	return func(a *Arbiter) { a.randIndex = pick }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Arbiter) { a.now = now }
}

type envelope struct {
	req   request.GameRequest
	reply chan Result
}

type controlKind int

const (
	controlChoose controlKind = iota + 1
	controlExit
)

type control struct {
	kind   controlKind
	index  int
	source string
	reply  chan controlReply
}

type controlReply struct {
	result Result
	err    error
}

// Arbiter serializes game requests into launches.
type Arbiter struct {
	cfg      Config
	catalog  Catalog
	launcher launcher.Launcher
	notifier notifications.Service
	selector Selector
	logger   *slog.Logger
	metrics  *metrics.Recorder

	inbox    chan envelope
	controls chan control
	acks     chan launchAck
	done     chan struct{}
	started  atomic.Bool

	status  atomic.Pointer[Status]
	dropped atomic.Int64

	workers   sync.WaitGroup
	randIndex func(n int) int
	now       func() time.Time
}

// New builds an Arbiter. notifier, selector and recorder may be nil.
func New(
	cfg Config,
	cat Catalog,
	l launcher.Launcher,
	notifier notifications.Service,
	selector Selector,
	logger *slog.Logger,
	recorder *metrics.Recorder,
	opts ...Option,
) *Arbiter {
	cfg = cfg.withDefaults()
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if selector == nil {
		selector = NotifySelector(notifier)
	}
	a := &Arbiter{
		cfg:       cfg,
		catalog:   cat,
		launcher:  l,
		notifier:  notifier,
		selector:  selector,
		logger:    logging.NewComponentLogger(logger, "arbiter"),
		metrics:   recorder,
		inbox:     make(chan envelope, cfg.QueueSize),
		controls:  make(chan control, 4),
		acks:      make(chan launchAck, 1),
		done:      make(chan struct{}),
		randIndex: rand.IntN,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.status.Store(&Status{Phase: PhaseIdle})
	return a
}

// Offer enqueues req without blocking and reports whether it was accepted
// into the queue. A full queue drops the request.
func (a *Arbiter) Offer(req request.GameRequest) bool {
	select {
	case <-a.done:
		return false
	default:
	}
	select {
	case a.inbox <- envelope{req: req}:
		return true
	default:
		a.drop(req, "queue_full")
		return false
	}
}

// Submit enqueues req and waits for its outcome.
func (a *Arbiter) Submit(ctx context.Context, req request.GameRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	select {
	case <-a.done:
		return Result{}, ErrClosed
	default:
	}
	env := envelope{req: req, reply: make(chan Result, 1)}
	select {
	case a.inbox <- env:
	default:
		a.drop(req, "queue_full")
		return Result{}, ErrQueueFull
	}
	select {
	case res := <-env.reply:
		return res, nil
	case <-a.done:
		return Result{}, ErrClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Choose answers an open Ambiguous prompt with a 1-based index.
func (a *Arbiter) Choose(ctx context.Context, index int) (Result, error) {
	reply, err := a.sendControl(ctx, control{kind: controlChoose, index: index})
	return reply.result, err
}

// Exit asks the launcher to quit the game launched by source. An empty source
// matches any launch.
func (a *Arbiter) Exit(ctx context.Context, source string) error {
	_, err := a.sendControl(ctx, control{kind: controlExit, source: source})
	return err
}

func (a *Arbiter) sendControl(ctx context.Context, c control) (controlReply, error) {
	c.reply = make(chan controlReply, 1)
	select {
	case a.controls <- c:
	case <-a.done:
		return controlReply{}, ErrClosed
	case <-ctx.Done():
		return controlReply{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r, r.err
	case <-a.done:
		return controlReply{}, ErrClosed
	case <-ctx.Done():
		return controlReply{}, ctx.Err()
	}
}

// Status returns a snapshot of the arbiter state.
func (a *Arbiter) Status() Status {
	snap := *a.status.Load()
	snap.Choices = append([]catalog.Entry(nil), snap.Choices...)
	snap.Stats.Dropped = a.dropped.Load()
	snap.QueueDepth = len(a.inbox)
	return snap
}

func (a *Arbiter) drop(req request.GameRequest, reason string) {
	a.dropped.Add(1)
	a.metrics.RequestDropped(req.Source, reason)
	logging.WarnWithContext(a.logger, "request dropped", "request_dropped",
		logging.String(logging.FieldSource, req.Source),
		logging.String(logging.FieldSystem, req.System),
		logging.String(logging.FieldIDType, req.IDType.String()),
		logging.String(logging.FieldIdentifier, req.Identifier),
		logging.String("reason", reason),
		logging.String(logging.FieldErrorHint, "increase arbiter.queue_size or check for a stuck producer"),
	)
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}
