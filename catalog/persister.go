package catalog

import (
	"context"
	"sync"
	"time"

	"productcatalog/domain"
	"productcatalog/util"

	"go.uber.org/zap"
)

// Sink receives wholesale snapshots of the collection. store.Storage
// satisfies it.
type Sink interface {
	Persist(ctx context.Context, list []domain.Product) error
}

// PersistStatus reports the asynchronous persistence phase.
type PersistStatus struct {
	// Pending counts mutations not yet covered by a completed write.
	Pending     int
	LastError   error
	LastSuccess time.Time
	Failures    int
}

// persister writes snapshots from a single goroutine. Only the newest
// snapshot is kept, so an older collection can never overwrite a newer one.
type persister struct {
	sink    Sink
	log     *zap.Logger
	clock   util.Clock
	timeout time.Duration

	mu       sync.Mutex
	latest   []domain.Product
	queued   uint64
	written  uint64
	lastErr  error
	lastOK   time.Time
	failures int
	changed  chan struct{}

	wake      chan struct{}
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newPersister(sink Sink, log *zap.Logger, clock util.Clock, timeout time.Duration) *persister {
	p := &persister{
		sink:    sink,
		log:     log,
		clock:   clock,
		timeout: timeout,
		changed: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

// enqueue takes ownership of list.
func (p *persister) enqueue(list []domain.Product) {
	p.mu.Lock()
	p.latest = list
	p.queued++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.done:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		if p.written == p.queued {
			p.mu.Unlock()
			return
		}
		list, seq := p.latest, p.queued
		p.latest = nil
		p.mu.Unlock()

		err := p.write(list)

		p.mu.Lock()
		p.written = seq
		p.lastErr = err
		if err != nil {
			p.failures++
		} else {
			p.lastOK = p.clock()
		}
		close(p.changed)
		p.changed = make(chan struct{})
		p.mu.Unlock()
	}
}

func (p *persister) write(list []domain.Product) error {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	err := p.sink.Persist(ctx, list)
	if err != nil {
		if !domain.IsPersistenceError(err) {
			err = domain.NewPersistenceError("products", err)
		}
		p.log.Warn("persist products failed", zap.Int("count", len(list)), zap.Error(err))
		return err
	}
	p.log.Debug("persisted products", zap.Int("count", len(list)))
	return nil
}

// flush waits until every snapshot enqueued so far has been written and
// returns the error of the last write.
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	target := p.queued
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if p.written >= target {
			err := p.lastErr
			p.mu.Unlock()
			return err
		}
		ch := p.changed
		p.mu.Unlock()

		select {
		case <-ch:
		case <-p.stopped:
			p.mu.Lock()
			done := p.written >= target
			err := p.lastErr
			p.mu.Unlock()
			if done {
				return err
			}
			return context.Canceled
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *persister) status() PersistStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PersistStatus{
		Pending:     int(p.queued - p.written),
		LastError:   p.lastErr,
		LastSuccess: p.lastOK,
		Failures:    p.failures,
	}
}

// close drains outstanding snapshots and stops the goroutine.
func (p *persister) close() {
	p.closeOnce.Do(func() { close(p.done) })
	<-p.stopped
}
