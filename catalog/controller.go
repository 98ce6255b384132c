// Package catalog orchestrates the session: it loads the baseline once,
// applies mutations optimistically in memory, persists them in the
// background and derives the queried view.
package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"productcatalog/domain"
	"productcatalog/query"
	"productcatalog/source"
	"productcatalog/util"
	"productcatalog/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNotLoaded is returned by mutations issued before the baseline exists.
var ErrNotLoaded = errors.New("catalog: baseline not loaded")

// DefaultSearchDelay is the debounce window for free-text search.
const DefaultSearchDelay = 300 * time.Millisecond

// Resolver produces the baseline collection.
type Resolver interface {
	LoadBaseline(ctx context.Context) (source.Baseline, error)
}

// Controller owns the baseline collection for a session.
type Controller struct {
	resolver Resolver
	persist  *persister
	log      *zap.Logger
	clock    util.Clock
	search   *Debouncer
	onChange func(query.Result)
	newID    func() string

	group singleflight.Group

	// searchMu orders generation bumps with their debouncer triggers.
	searchMu sync.Mutex

	// notifyMu serializes onChange; delivered is the last seq handed out.
	notifyMu  sync.Mutex
	delivered uint64

	mu        sync.RWMutex
	products  []domain.Product
	origin    source.Origin
	loaded    bool
	loading   bool
	err       error
	q         query.Query
	searchGen uint64
	seq       uint64
	view      query.Result
}

// viewUpdate is a view stamped with the order it was computed in.
type viewUpdate struct {
	seq  uint64
	view query.Result
}

type config struct {
	log            *zap.Logger
	clock          util.Clock
	searchDelay    time.Duration
	persistTimeout time.Duration
	onChange       func(query.Result)
	query          query.Query
	newID          func() string
}

// Option customizes a Controller.
type Option func(*config)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock sets the clock used for timestamps.
func WithClock(clock util.Clock) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithSearchDelay sets the search debounce window. Zero applies searches
// immediately.
func WithSearchDelay(d time.Duration) Option {
	return func(c *config) { c.searchDelay = d }
}

// WithPersistTimeout bounds each background write.
func WithPersistTimeout(d time.Duration) Option {
	return func(c *config) { c.persistTimeout = d }
}

// WithOnChange registers a callback invoked with every new view. Calls are
// serialized and never deliver a view older than one already delivered, so
// fn must not call back into methods that change the view.
func WithOnChange(fn func(query.Result)) Option {
	return func(c *config) { c.onChange = fn }
}

// WithInitialQuery replaces query.DefaultQuery.
func WithInitialQuery(q query.Query) Option {
	return func(c *config) { c.query = q }
}

// WithIDGenerator replaces util.GenerateProductID.
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New builds a Controller. Call Close to stop the background writer.
func New(resolver Resolver, sink Sink, opts ...Option) *Controller {
	cfg := config{
		log:         zap.NewNop(),
		clock:       util.SystemClock,
		searchDelay: DefaultSearchDelay,
		query:       query.DefaultQuery(),
		newID:       util.GenerateProductID,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Controller{
		resolver: resolver,
		persist:  newPersister(sink, cfg.log, cfg.clock, cfg.persistTimeout),
		log:      cfg.log,
		clock:    cfg.clock,
		search:   NewDebouncer(cfg.searchDelay),
		onChange: cfg.onChange,
		newID:    cfg.newID,
		products: []domain.Product{},
		q:        cfg.query,
	}
	c.refreshLocked()
	return c
}

// Load resolves the baseline once per session. Concurrent calls share one
// resolution; calls after a successful load return immediately.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.resolve(ctx, false)
}

// Refetch re-resolves the baseline, coalescing with any resolution in
// flight. Pending writes are flushed first so local edits stay authoritative.
func (c *Controller) Refetch(ctx context.Context) error {
	if err := c.persist.flush(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.log.Warn("refetching with unsaved changes", zap.Error(err))
	}
	return c.resolve(ctx, true)
}

func (c *Controller) resolve(ctx context.Context, force bool) error {
	ch := c.group.DoChan("baseline", func() (any, error) {
		if !c.beginLoad(force) {
			return nil, nil
		}
		b, err := c.resolver.LoadBaseline(context.WithoutCancel(ctx))
		u, err := c.finishLoad(b, err)
		if err != nil {
			c.log.Error("load baseline failed", zap.Error(err))
			return nil, err
		}
		c.log.Info("baseline loaded", zap.String("origin", string(b.Origin)), zap.Int("count", len(b.Products)))
		c.notify(u)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) beginLoad(force bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a Load that lost the race against a finished resolution
	if !force && c.loaded {
		return false
	}
	c.loading = true
	return true
}

func (c *Controller) finishLoad(b source.Baseline, err error) (viewUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	if err != nil {
		// keep whatever baseline we already had
		c.err = err
		return viewUpdate{}, err
	}
	c.products = b.Products
	if c.products == nil {
		c.products = []domain.Product{}
	}
	c.origin = b.Origin
	c.loaded = true
	c.err = nil
	return c.refreshLocked(), nil
}

// Unload discards the in-memory baseline after the stored collection was
// removed. Mutations fail with ErrNotLoaded until the next Load.
func (c *Controller) Unload() {
	c.apply(func() bool {
		c.products = []domain.Product{}
		c.origin = ""
		c.loaded = false
		return true
	})
}

// Add stamps the draft with a fresh id and timestamps, prepends it and
// schedules persistence.
func (c *Controller) Add(d domain.ProductDraft) (domain.Product, error) {
	p, u, err := c.insert(d)
	if err != nil {
		return domain.Product{}, err
	}
	c.log.Info("product added", zap.String("product_id", p.ID))
	c.notify(u)
	return p.Clone(), nil
}

func (c *Controller) insert(d domain.ProductDraft) (domain.Product, viewUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return domain.Product{}, viewUpdate{}, ErrNotLoaded
	}
	id := c.newID()
	for c.indexLocked(id) >= 0 {
		id = c.newID()
	}
	now := util.FormatTimestamp(c.clock())
	p := d.Product(id, now, now)

	next := make([]domain.Product, 0, len(c.products)+1)
	next = append(next, p)
	next = append(next, c.products...)
	c.products = next
	return p, c.commitLocked(), nil
}

// Update merges patch onto the product with id and refreshes updatedAt.
func (c *Controller) Update(id string, patch domain.ProductPatch) (domain.Product, error) {
	p, u, err := c.replace(id, patch)
	if err != nil {
		return domain.Product{}, err
	}
	c.log.Info("product updated", zap.String("product_id", id))
	c.notify(u)
	return p.Clone(), nil
}

func (c *Controller) replace(id string, patch domain.ProductPatch) (domain.Product, viewUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return domain.Product{}, viewUpdate{}, ErrNotLoaded
	}
	i := c.indexLocked(id)
	if i < 0 {
		return domain.Product{}, viewUpdate{}, domain.NewProductNotFoundError(id)
	}
	old := c.products[i]
	p := patch.Apply(old)
	p.UpdatedAt = util.NextTimestamp(old.UpdatedAt, c.clock())

	next := make([]domain.Product, len(c.products))
	copy(next, c.products)
	next[i] = p
	c.products = next
	return p, c.commitLocked(), nil
}

// Remove deletes the product with id.
func (c *Controller) Remove(id string) error {
	u, err := c.drop(id)
	if err != nil {
		return err
	}
	c.log.Info("product removed", zap.String("product_id", id))
	c.notify(u)
	return nil
}

func (c *Controller) drop(id string) (viewUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return viewUpdate{}, ErrNotLoaded
	}
	next := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.ID != id {
			next = append(next, p)
		}
	}
	if len(next) == len(c.products) {
		return viewUpdate{}, domain.NewProductNotFoundError(id)
	}
	c.products = next
	return c.commitLocked(), nil
}

// CreateFromForm validates a form and adds the product.
func (c *Controller) CreateFromForm(form domain.ProductForm) (domain.Product, error) {
	if res := validation.Validate(form); !res.IsValid {
		return domain.Product{}, domain.NewValidationFailedError(res.Errors)
	}
	return c.Add(validation.FormToDraft(form))
}

// UpdateFromForm validates a form and overwrites the editable fields of id.
func (c *Controller) UpdateFromForm(id string, form domain.ProductForm) (domain.Product, error) {
	if res := validation.Validate(form); !res.IsValid {
		return domain.Product{}, domain.NewValidationFailedError(res.Errors)
	}
	return c.Update(id, domain.PatchFromDraft(validation.FormToDraft(form)))
}

// Patch validates the fields present in patch and merges them onto id.
func (c *Controller) Patch(id string, patch domain.ProductPatch) (domain.Product, error) {
	if res := validation.ValidatePatch(patch); !res.IsValid {
		return domain.Product{}, domain.NewValidationFailedError(res.Errors)
	}
	return c.Update(id, patch)
}

// GetByID returns a copy of the product with id.
func (c *Controller) GetByID(id string) (domain.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.products[i].Clone(), true
	}
	return domain.Product{}, false
}

// Products returns a copy of the whole baseline.
func (c *Controller) Products() []domain.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.CloneProducts(c.products)
}

// SetQuery replaces the query state and cancels any pending search.
func (c *Controller) SetQuery(q query.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	c.search.Cancel()
	c.apply(func() bool {
		c.searchGen++
		c.q = q
		return true
	})
	return nil
}

// SetFilters replaces the filters and returns to the first page.
func (c *Controller) SetFilters(f domain.ProductFilters) error {
	q := c.Query()
	q.ProductFilters = f
	q.Page = 1
	return c.SetQuery(q)
}

// SetPage moves to page, clamped to the available pages.
func (c *Controller) SetPage(page int) {
	c.apply(func() bool {
		c.q.Page = page
		return true
	})
}

// ClearFilters drops every predicate but keeps the sort.
func (c *Controller) ClearFilters() {
	c.search.Cancel()
	c.apply(func() bool {
		c.searchGen++
		c.q.ProductFilters = c.q.Cleared()
		c.q.Page = 1
		return true
	})
}

// ResetFilters restores the default filters and sort.
func (c *Controller) ResetFilters() {
	c.search.Cancel()
	c.apply(func() bool {
		c.searchGen++
		limit := c.q.Limit
		c.q = query.DefaultQuery()
		c.q.Limit = limit
		return true
	})
}

// Search schedules a free-text query after the debounce window. Only the
// latest search applies; superseded searches are dropped.
func (c *Controller) Search(text string) {
	c.searchMu.Lock()
	defer c.searchMu.Unlock()

	c.mu.Lock()
	c.searchGen++
	gen := c.searchGen
	c.mu.Unlock()

	c.search.Trigger(func() { c.applySearch(gen, text) })
}

func (c *Controller) applySearch(gen uint64, text string) {
	c.apply(func() bool {
		if gen != c.searchGen {
			return false
		}
		c.q.SearchQuery = text
		c.q.Page = 1
		return true
	})
}

// apply runs fn under the write lock and, when fn reports a change,
// recomputes the view and delivers it.
func (c *Controller) apply(fn func() bool) {
	u, ok := func() (viewUpdate, bool) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !fn() {
			return viewUpdate{}, false
		}
		return c.refreshLocked(), true
	}()
	if ok {
		c.notify(u)
	}
}

// SearchPending reports whether a debounced search has not applied yet.
func (c *Controller) SearchPending() bool { return c.search.Pending() }

// Query returns the current query state.
func (c *Controller) Query() query.Query {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.q
}

// View returns the current queried page.
func (c *Controller) View() query.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyResult(c.view)
}

// Run evaluates q against the baseline without touching the query state.
func (c *Controller) Run(q query.Query) query.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return query.Run(c.products, q)
}

// Stats summarizes the unfiltered baseline.
func (c *Controller) Stats() domain.ProductStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyStats(c.view.Stats)
}

// TotalPages is the page count of the current view.
func (c *Controller) TotalPages() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view.TotalPages
}

// Loading reports whether a resolution is in flight.
func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Loaded reports whether a baseline has been established.
func (c *Controller) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the last load failure, cleared by a successful load.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Origin names the source of the current baseline.
func (c *Controller) Origin() source.Origin {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.origin
}

// PersistStatus reports the background persistence phase.
func (c *Controller) PersistStatus() PersistStatus { return c.persist.status() }

// Flush waits for every scheduled write and returns the last write error.
func (c *Controller) Flush(ctx context.Context) error { return c.persist.flush(ctx) }

// Close cancels pending searches and drains the background writer.
func (c *Controller) Close() {
	c.search.Cancel()
	c.persist.close()
}

func (c *Controller) indexLocked(id string) int {
	for i, p := range c.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked recomputes the view and schedules a snapshot for
// persistence. Enqueueing under the lock keeps snapshots in mutation order.
func (c *Controller) commitLocked() viewUpdate {
	u := c.refreshLocked()
	c.persist.enqueue(domain.CloneProducts(c.products))
	return u
}

// refreshLocked recomputes the view, pulling the page back into range when
// a mutation or filter change shrank the result.
func (c *Controller) refreshLocked() viewUpdate {
	view := query.Run(c.products, c.q)
	if view.TotalPages > 0 && view.Page > view.TotalPages {
		c.q.Page = view.TotalPages
		view = query.Run(c.products, c.q)
	}
	c.q.Page, c.q.Limit = view.Page, view.Limit
	c.view = view
	c.seq++
	return viewUpdate{seq: c.seq, view: copyResult(view)}
}

// notify hands u to onChange unless a newer view was already delivered.
func (c *Controller) notify(u viewUpdate) {
	if c.onChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if u.seq <= c.delivered {
		return
	}
	c.delivered = u.seq
	c.onChange(u.view)
}

func copyStats(s domain.ProductStats) domain.ProductStats {
	out := s
	out.Categories = make(map[domain.Category]int, len(s.Categories))
	for k, v := range s.Categories {
		out.Categories[k] = v
	}
	return out
}

func copyResult(r query.Result) query.Result {
	out := r
	out.Items = domain.CloneProducts(r.Items)
	out.Stats = copyStats(r.Stats)
	return out
}
