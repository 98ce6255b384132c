// Package source resolves the baseline product collection through the
// durable store, the remote endpoint and the bundled dataset, in that order.
package source

import (
	"context"
	"errors"

	"productcatalog/domain"
	"productcatalog/seed"
	"productcatalog/store"

	"go.uber.org/zap"
)

// Origin names the source a baseline came from.
type Origin string

const (
	OriginDurable Origin = "durable"
	OriginRemote  Origin = "remote"
	OriginStatic  Origin = "static"
)

// Baseline is the resolved collection for a session.
type Baseline struct {
	Products []domain.Product
	Origin   Origin
}

// Durable is the part of store.Storage the resolver reads and writes back to.
type Durable interface {
	Exists(ctx context.Context) bool
	LoadProducts(ctx context.Context) (store.Snapshot, error)
	Persist(ctx context.Context, list []domain.Product) error
}

// Fetcher retrieves the remote collection.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]domain.Product, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]domain.Product, error)

// FetchProducts calls f.
func (f FetcherFunc) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	return f(ctx)
}

// Resolver composes the three sources.
type Resolver struct {
	durable Durable
	fetcher Fetcher
	static  func() []domain.Product
	log     *zap.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithStatic replaces the bundled dataset.
func WithStatic(fn func() []domain.Product) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.static = fn
		}
	}
}

// New builds a Resolver. durable and fetcher may be nil to skip that tier.
func New(durable Durable, fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		durable: durable,
		fetcher: fetcher,
		static:  seed.Products,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var errNoFetcher = errors.New("no remote fetcher configured")

// LoadBaseline returns the first collection available:
//
//  1. a non-empty durable collection, returned as-is without any fetch;
//  2. the remote collection, written back to the durable store;
//  3. the bundled dataset, written back likewise.
//
// A durable collection that is empty but initialized (emptied by deletes,
// not by ClearProducts) is returned as-is. Durable read failures fall
// through to step 2 and are never returned.
func (r *Resolver) LoadBaseline(ctx context.Context) (Baseline, error) {
	durableOK := r.durable != nil && r.durable.Exists(ctx)

	if durableOK {
		snap, err := r.durable.LoadProducts(ctx)
		switch {
		case err != nil:
			r.log.Warn("durable store unreadable, falling back", zap.Error(err))
		case len(snap.Products) > 0:
			r.log.Debug("baseline from durable store", zap.Int("count", len(snap.Products)))
			return Baseline{Products: snap.Products, Origin: OriginDurable}, nil
		case snap.Initialized:
			r.log.Debug("durable store intentionally empty")
			return Baseline{Products: []domain.Product{}, Origin: OriginDurable}, nil
		}
	} else {
		r.log.Info("durable store unavailable")
	}

	fetchErr := errNoFetcher
	if r.fetcher != nil {
		list, err := r.fetcher.FetchProducts(ctx)
		if err == nil {
			if list == nil {
				list = []domain.Product{}
			}
			r.log.Info("baseline from remote", zap.Int("count", len(list)))
			r.writeBack(ctx, durableOK, list)
			return Baseline{Products: list, Origin: OriginRemote}, nil
		}
		fetchErr = err
		r.log.Warn("remote fetch failed, using static dataset", zap.Error(err))
	}

	list := r.static()
	if len(list) == 0 {
		return Baseline{}, domain.NewSourceUnavailableError(fetchErr)
	}
	r.log.Info("baseline from static dataset", zap.Int("count", len(list)))
	r.writeBack(ctx, durableOK, list)
	return Baseline{Products: list, Origin: OriginStatic}, nil
}

func (r *Resolver) writeBack(ctx context.Context, durableOK bool, list []domain.Product) {
	if !durableOK {
		return
	}
	if err := r.durable.Persist(ctx, list); err != nil {
		r.log.Warn("baseline write-back failed", zap.Error(err))
	}
}
