package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cairnmcp/cairn/internal/entity"
	"github.com/cairnmcp/cairn/internal/integrity"
	"github.com/cairnmcp/cairn/internal/metrics"
	"github.com/cairnmcp/cairn/internal/schema"
)

// Mutation is caller-supplied logic run against a private copy of the
// live database. It must not retain the copy past its return.
type Mutation func(db *entity.Database) (Outcome, error)

// Outcome is what a mutation hands back: its result for the caller, a
// commit flag, and the parts of the database it touched.
type Outcome struct {
	Result  any
	Commit  bool
	Changed entity.ChangeSet
}

// Config holds store configuration.
type Config struct {
	Limits   Limits
	StatsTTL time.Duration

	// OnCommit, when set, receives an isolated copy of each newly
	// committed database. Used for best-effort persistence and the
	// audit journal; it runs on the scheduler goroutine and must not
	// block for long.
	OnCommit func(db *entity.Database, changed entity.ChangeSet)
}

// DefaultConfig returns the standard store configuration.
func DefaultConfig() Config {
	return Config{
		Limits:   DefaultLimits(),
		StatsTTL: 5 * time.Second,
	}
}

// operation is one queued request with its reply channel. The reply
// channel is buffered so the scheduler never blocks delivering it.
type operation struct {
	fn    Mutation
	reply chan opReply
}

type opReply struct {
	result any
	err    error
}

// Store owns the single live database. Exactly one mutation body
// executes at a time; submission order is execution-start order.
type Store struct {
	cfg   Config
	guard *Guard

	ops     chan *operation
	quit    chan struct{}
	stopped chan struct{}

	mu     sync.Mutex // guards closed + enqueue vs shutdown
	closed bool
	depth  int

	db *entity.Database // owned by the scheduler goroutine after Start

	stats   statsCache
	latency latencyWindow
}

// New creates a store around the given initial database (nil means a
// fresh empty one) and starts the scheduler goroutine.
func New(cfg Config, initial *entity.Database) *Store {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = 5 * time.Second
	}
	if initial == nil {
		initial = entity.NewDatabase()
	}
	s := &Store{
		cfg:     cfg,
		guard:   NewGuard(cfg.Limits),
		ops:     make(chan *operation, cfg.Limits.MaxQueuedOps),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		db:      initial.Clone(),
	}
	go s.loop()
	return s
}

// Submit queues a mutation and waits for its result. Guarantees: FIFO
// fairness, mutual exclusion, snapshot isolation, and exactly-one
// resolution per submission. A full queue rejects immediately with a
// SizeLimitError; a shut-down store rejects with ErrShutdown.
func (s *Store) Submit(ctx context.Context, fn Mutation) (any, error) {
	op := &operation{fn: fn, reply: make(chan opReply, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrShutdown
	}
	if s.depth >= s.cfg.Limits.MaxQueuedOps {
		actual := s.depth + 1
		s.mu.Unlock()
		return nil, &SizeLimitError{
			Resource: "operation queue",
			Limit:    int64(s.cfg.Limits.MaxQueuedOps),
			Actual:   int64(actual),
		}
	}
	s.depth++
	metrics.SetQueueDepth(s.depth)
	s.ops <- op // never blocks: depth <= channel capacity
	s.mu.Unlock()

	select {
	case r := <-op.reply:
		return r.result, r.err
	case <-ctx.Done():
		// The operation still runs when its turn comes; the caller has
		// just stopped waiting for it.
		return nil, ctx.Err()
	}
}

// LoadDatabase returns an isolated read-only copy of the live database,
// routed through the queue so it observes no partial effects.
func (s *Store) LoadDatabase(ctx context.Context) (*entity.Database, error) {
	res, err := s.Submit(ctx, func(db *entity.Database) (Outcome, error) {
		// db is already a private copy; without a commit it is
		// discarded by the scheduler, so handing it out is safe.
		return Outcome{Result: db}, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*entity.Database), nil
}

// SaveDatabase validates the given database and atomically replaces the
// live state with an independent copy of it.
func (s *Store) SaveDatabase(ctx context.Context, db *entity.Database) error {
	replacement := db.Clone()
	_, err := s.Submit(ctx, func(cur *entity.Database) (Outcome, error) {
		*cur = *replacement
		return Outcome{Commit: true, Changed: entity.ChangedAll}, nil
	})
	return err
}

// Shutdown stops intake, lets any in-flight operation finish, rejects
// every still-queued operation with ErrShutdown, and stops the
// scheduler. Safe to call more than once.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		select {
		case <-s.stopped:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.closed = true
	s.mu.Unlock()

	close(s.quit)
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueDepth returns the number of currently queued operations.
func (s *Store) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depth
}

// --- scheduler ---

func (s *Store) loop() {
	for {
		select {
		case op := <-s.ops:
			s.dequeued()
			// Only a mutation already executing when Shutdown was
			// called may finish; everything still queued is rejected.
			if s.closing() {
				op.reply <- opReply{err: ErrShutdown}
				continue
			}
			s.execute(op)
		case <-s.quit:
			s.drain()
			close(s.stopped)
			return
		}
	}
}

// drain rejects everything still queued at shutdown.
func (s *Store) drain() {
	for {
		select {
		case op := <-s.ops:
			s.dequeued()
			op.reply <- opReply{err: ErrShutdown}
		default:
			return
		}
	}
}

func (s *Store) closing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) dequeued() {
	s.mu.Lock()
	s.depth--
	metrics.SetQueueDepth(s.depth)
	s.mu.Unlock()
}

func (s *Store) execute(op *operation) {
	start := time.Now()
	result, err := s.runMutation(op.fn)
	elapsed := time.Since(start)
	s.latency.observe(elapsed)
	metrics.ObserveOpDuration(elapsed.Seconds())
	op.reply <- opReply{result: result, err: err}
}

// runMutation clones the live database, runs the mutation body against
// the clone, and commits or discards it. A panic in the body is
// confined to this operation; the scheduler keeps going.
func (s *Store) runMutation(fn Mutation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserveRollback("panic")
			result, err = nil, fmt.Errorf("store: mutation panicked: %v", r)
		}
	}()

	clone := s.db.Clone()
	out, err := fn(clone)
	if err != nil {
		metrics.ObserveRollback("error")
		return nil, err
	}
	if !out.Commit {
		return out.Result, nil
	}
	if err := s.tryCommit(clone, out.Changed); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// tryCommit validates the candidate copy — guard, schema, then
// read-only integrity — and promotes it to be the live database via
// reference swap. Auto-repair never runs here: on the hot commit path a
// violation fails the commit instead.
func (s *Store) tryCommit(candidate *entity.Database, changed entity.ChangeSet) error {
	if changed == 0 {
		changed = entity.ChangedAll
	}

	if err := s.guard.Check(candidate, s.QueueDepth()); err != nil {
		metrics.ObserveRollback("size_limit")
		return err
	}
	if err := schema.ValidateDatabase(candidate, changed); err != nil {
		metrics.ObserveRollback("validation")
		return &ValidationError{Reason: err.Error()}
	}
	if problems := integrity.Check(candidate); len(problems) > 0 {
		metrics.ObserveRollback("integrity")
		return &IntegrityError{Problems: problems}
	}

	candidate.Touch()
	s.db = candidate
	s.stats.invalidate(changed)
	metrics.ObserveCommit(changed.String())

	if s.cfg.OnCommit != nil {
		s.cfg.OnCommit(candidate.Clone(), changed)
	}
	return nil
}
