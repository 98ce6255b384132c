package store

import (
	"context"
	"encoding/json"
	"fmt"

	"productcatalog/domain"
	"productcatalog/util"

	"go.uber.org/zap"
)

const (
	// DefaultProductsKey is the key holding the product collection.
	DefaultProductsKey = "ecommerce_products"

	initializedSuffix = "_initialized"
	probeKey          = "__storage_test__"
)

// Storage is the single writer of record for durable catalog state. Writes
// never fail loudly: errors are logged and reported as a false return.
type Storage struct {
	backend Backend
	key     string
	log     *zap.Logger
	clock   util.Clock
}

// Option customizes a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.log = l
		}
	}
}

// WithProductsKey overrides DefaultProductsKey.
func WithProductsKey(key string) Option {
	return func(s *Storage) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the clock used to stamp products.
func WithClock(c util.Clock) Option {
	return func(s *Storage) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewStorage wraps a backend.
func NewStorage(b Backend, opts ...Option) *Storage {
	s := &Storage{
		backend: b,
		key:     DefaultProductsKey,
		log:     zap.NewNop(),
		clock:   util.SystemClock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProductsKey returns the key holding the collection.
func (s *Storage) ProductsKey() string { return s.key }

// InitializedKey returns the key of the marker written alongside the collection.
func (s *Storage) InitializedKey() string { return s.key + initializedSuffix }

// Backend exposes the underlying backend.
func (s *Storage) Backend() Backend { return s.backend }

func (s *Storage) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return domain.NewPersistenceError(key, err)
	}
	if err := s.backend.Set(ctx, key, b); err != nil {
		return domain.NewPersistenceError(key, err)
	}
	return nil
}

// Get decodes the value at key, returning def when it is absent, the
// backend fails or the payload does not decode as T.
func Get[T any](ctx context.Context, s *Storage, key string, def T) T {
	b, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.log.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		return def
	}
	if !ok {
		return def
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		s.log.Warn("storage decode failed", zap.String("key", key), zap.Error(err))
		return def
	}
	return v
}

// Set encodes v at key. It reports false on failure and never panics.
func Set[T any](ctx context.Context, s *Storage, key string, v T) bool {
	if err := s.put(ctx, key, v); err != nil {
		s.log.Warn("storage write failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes key, reporting false on failure.
func (s *Storage) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Remove(ctx, key); err != nil {
		s.log.Warn("storage remove failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Exists probes the backend with a throwaway write before trusting it.
func (s *Storage) Exists(ctx context.Context) bool {
	if err := s.backend.Set(ctx, probeKey, []byte(`"test"`)); err != nil {
		s.log.Debug("storage probe failed", zap.Error(err))
		return false
	}
	if err := s.backend.Remove(ctx, probeKey); err != nil {
		s.log.Debug("storage probe cleanup failed", zap.Error(err))
		return false
	}
	return true
}

// Snapshot is the decoded durable collection.
type Snapshot struct {
	Products []domain.Product
	// Initialized is set once a collection has been saved and cleared only
	// by ClearProducts.
	Initialized bool
}

// LoadProducts decodes the collection or rejects it. Unlike GetProducts it
// distinguishes an unreadable store from an empty one.
func (s *Storage) LoadProducts(ctx context.Context) (Snapshot, error) {
	marker, ok, err := s.backend.Get(ctx, s.InitializedKey())
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", s.InitializedKey(), err)
	}
	var snap Snapshot
	if ok {
		if err := json.Unmarshal(marker, &snap.Initialized); err != nil {
			return Snapshot{}, fmt.Errorf("decode %s: %w", s.InitializedKey(), err)
		}
	}

	b, ok, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok {
		snap.Products = []domain.Product{}
		return snap, nil
	}
	var list []domain.Product
	if err := json.Unmarshal(b, &list); err != nil {
		return Snapshot{}, fmt.Errorf("decode %s: %w", s.key, err)
	}
	if list == nil {
		list = []domain.Product{}
	}
	snap.Products = list
	return snap, nil
}

// GetProducts returns the stored collection, or an empty one.
func (s *Storage) GetProducts(ctx context.Context) []domain.Product {
	list := Get(ctx, s, s.key, []domain.Product{})
	if list == nil {
		return []domain.Product{}
	}
	return list
}

// Persist writes the collection wholesale and marks the store initialized.
// The error, if any, is a *domain.PersistenceError.
func (s *Storage) Persist(ctx context.Context, list []domain.Product) error {
	if list == nil {
		list = []domain.Product{}
	}
	if err := s.put(ctx, s.key, list); err != nil {
		return err
	}
	return s.put(ctx, s.InitializedKey(), true)
}

// SaveProducts is Persist with the failure logged and swallowed.
func (s *Storage) SaveProducts(ctx context.Context, list []domain.Product) bool {
	if err := s.Persist(ctx, list); err != nil {
		s.log.Warn("save products failed", zap.Int("count", len(list)), zap.Error(err))
		return false
	}
	return true
}

// GetProduct looks a product up by id.
func (s *Storage) GetProduct(ctx context.Context, id string) (domain.Product, bool) {
	for _, p := range s.GetProducts(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// AddProduct stamps the draft, appends it and saves. The product is
// returned even when saving fails.
func (s *Storage) AddProduct(ctx context.Context, d domain.ProductDraft) (domain.Product, bool) {
	now := util.FormatTimestamp(s.clock())
	p := d.Product(util.GenerateProductID(), now, now)
	list := append(s.GetProducts(ctx), p)
	return p, s.SaveProducts(ctx, list)
}

// UpdateProduct merges patch onto the stored product and refreshes
// updatedAt. It reports false when the id is unknown or saving fails.
func (s *Storage) UpdateProduct(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, bool) {
	list := s.GetProducts(ctx)
	for i, p := range list {
		if p.ID != id {
			continue
		}
		next := patch.Apply(p)
		next.UpdatedAt = util.NextTimestamp(p.UpdatedAt, s.clock())
		list[i] = next
		return next, s.SaveProducts(ctx, list)
	}
	return domain.Product{}, false
}

// DeleteProduct removes a product. It reports false when the id is
// unknown or saving fails.
func (s *Storage) DeleteProduct(ctx context.Context, id string) bool {
	list := s.GetProducts(ctx)
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if len(out) == len(list) {
		return false
	}
	return s.SaveProducts(ctx, out)
}

// ProductExists reports whether id is stored.
func (s *Storage) ProductExists(ctx context.Context, id string) bool {
	_, ok := s.GetProduct(ctx, id)
	return ok
}

// ClearProducts removes the collection and its initialized marker, so the
// next load repopulates from the best available source.
func (s *Storage) ClearProducts(ctx context.Context) bool {
	okList := s.Remove(ctx, s.key)
	okMarker := s.Remove(ctx, s.InitializedKey())
	return okList && okMarker
}

// ImportProducts merges list into the stored collection. Existing ids win,
// duplicates within list keep the first occurrence and products without an
// id are skipped. It returns the number of products added.
func (s *Storage) ImportProducts(ctx context.Context, list []domain.Product) (int, bool) {
	existing := s.GetProducts(ctx)
	seen := make(map[string]struct{}, len(existing)+len(list))
	for _, p := range existing {
		seen[p.ID] = struct{}{}
	}
	added := 0
	for _, p := range list {
		if p.ID == "" {
			s.log.Debug("import skipped product without id", zap.String("name", p.Name))
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		existing = append(existing, p.Clone())
		added++
	}
	return added, s.SaveProducts(ctx, existing)
}

// ExportProducts renders the collection as indented JSON.
func (s *Storage) ExportProducts(ctx context.Context) ([]byte, error) {
	return json.MarshalIndent(s.GetProducts(ctx), "", "  ")
}

// ProductsCount returns the number of stored products.
func (s *Storage) ProductsCount(ctx context.Context) int {
	return len(s.GetProducts(ctx))
}
