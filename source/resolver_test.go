package source

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"productcatalog/domain"
	"productcatalog/seed"
	"productcatalog/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyFetcher struct {
	calls int32
	list  []domain.Product
	err   error
}

func (s *spyFetcher) FetchProducts(context.Context) ([]domain.Product, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.list, s.err
}

func (s *spyFetcher) Calls() int { return int(atomic.LoadInt32(&s.calls)) }

func product(id string) domain.Product {
	return domain.Product{ID: id, Name: "P " + id, Price: 10, Category: domain.CategoryHome, Tags: []string{"tag"}}
}

func newStorage() (*store.Storage, *store.MemoryBackend) {
	mem := store.NewMemoryBackend(0)
	return store.NewStorage(mem), mem
}

func TestLoadBaseline_DurableWinsWithoutFetch(t *testing.T) {
	st, _ := newStorage()
	ctx := context.Background()
	require.True(t, st.SaveProducts(ctx, []domain.Product{product("local")}))

	spy := &spyFetcher{list: []domain.Product{product("remote")}}
	b, err := New(st, spy).LoadBaseline(ctx)

	require.NoError(t, err)
	assert.Equal(t, OriginDurable, b.Origin)
	require.Len(t, b.Products, 1)
	assert.Equal(t, "local", b.Products[0].ID)
	assert.Zero(t, spy.Calls(), "fetch must not be attempted when durable data exists")
}

func TestLoadBaseline_EmptyStoreFailingFetchUsesStatic(t *testing.T) {
	st, _ := newStorage()
	ctx := context.Background()
	spy := &spyFetcher{err: errors.New("connection refused")}

	b, err := New(st, spy).LoadBaseline(ctx)

	require.NoError(t, err)
	assert.Equal(t, OriginStatic, b.Origin)
	assert.Equal(t, seed.Products(), b.Products)
	assert.Equal(t, 1, spy.Calls())
	assert.Equal(t, seed.Products(), st.GetProducts(ctx), "static dataset is written back")
}

func TestLoadBaseline_RemoteAdoptedAndPersisted(t *testing.T) {
	st, _ := newStorage()
	ctx := context.Background()
	remote := []domain.Product{product("r1"), product("r2")}

	b, err := New(st, &spyFetcher{list: remote}).LoadBaseline(ctx)

	require.NoError(t, err)
	assert.Equal(t, OriginRemote, b.Origin)
	assert.Equal(t, remote, b.Products)
	assert.Equal(t, remote, st.GetProducts(ctx))
}

func TestLoadBaseline_RemoteEmptyArrayIsSuccess(t *testing.T) {
	st, _ := newStorage()
	b, err := New(st, &spyFetcher{list: []domain.Product{}}).LoadBaseline(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OriginRemote, b.Origin)
	assert.NotNil(t, b.Products)
	assert.Empty(t, b.Products)
}

func TestLoadBaseline_UnreadableStoreFallsThrough(t *testing.T) {
	st, mem := newStorage()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, store.DefaultProductsKey, []byte(`{"not":"an array"}`)))

	spy := &spyFetcher{list: []domain.Product{product("r1")}}
	b, err := New(st, spy).LoadBaseline(ctx)

	require.NoError(t, err)
	assert.Equal(t, OriginRemote, b.Origin)
	assert.Equal(t, 1, spy.Calls())
	// the broken payload is replaced by the write-back
	assert.Equal(t, "r1", st.GetProducts(ctx)[0].ID)
}

func TestLoadBaseline_UnavailableStoreSkipsWriteBack(t *testing.T) {
	st, mem := newStorage()
	mem.Disable()

	b, err := New(st, &spyFetcher{err: errors.New("offline")}).LoadBaseline(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OriginStatic, b.Origin)
	mem.Fail(nil)
	assert.Zero(t, mem.Keys())
}

func TestLoadBaseline_WriteBackFailureIsNotFatal(t *testing.T) {
	mem := store.NewMemoryBackend(64)
	st := store.NewStorage(mem)

	b, err := New(st, nil).LoadBaseline(context.Background())

	require.NoError(t, err)
	assert.Equal(t, OriginStatic, b.Origin)
	assert.Len(t, b.Products, seed.Len())
}

func TestLoadBaseline_InitializedEmptyStoreStaysEmpty(t *testing.T) {
	st, _ := newStorage()
	ctx := context.Background()
	require.True(t, st.SaveProducts(ctx, []domain.Product{product("a")}))
	require.True(t, st.DeleteProduct(ctx, "a"))

	spy := &spyFetcher{list: []domain.Product{product("r1")}}
	b, err := New(st, spy).LoadBaseline(ctx)

	require.NoError(t, err)
	assert.Equal(t, OriginDurable, b.Origin)
	assert.Empty(t, b.Products)
	assert.Zero(t, spy.Calls())
}

func TestLoadBaseline_ClearedStoreRepopulates(t *testing.T) {
	st, _ := newStorage()
	ctx := context.Background()
	require.True(t, st.SaveProducts(ctx, []domain.Product{product("a")}))
	require.True(t, st.ClearProducts(ctx))

	spy := &spyFetcher{list: []domain.Product{product("r1")}}
	b, err := New(st, spy).LoadBaseline(ctx)

	require.NoError(t, err)
	assert.Equal(t, OriginRemote, b.Origin)
	assert.Equal(t, 1, spy.Calls())
}

func TestLoadBaseline_NoSourceAvailable(t *testing.T) {
	fetchErr := errors.New("offline")
	r := New(nil, &spyFetcher{err: fetchErr}, WithStatic(func() []domain.Product { return nil }))

	_, err := r.LoadBaseline(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsSourceUnavailableError(err))
	assert.ErrorIs(t, err, fetchErr)
}

func TestFetcherFunc(t *testing.T) {
	called := false
	f := FetcherFunc(func(context.Context) ([]domain.Product, error) {
		called = true
		return nil, nil
	})
	_, _ = f.FetchProducts(context.Background())
	assert.True(t, called)
}
