package cli

import (
	"context"
	"fmt"
	"net/http"

	"productcatalog/catalog"
	"productcatalog/config"
	"productcatalog/logger"
	"productcatalog/remote"
	"productcatalog/source"
	"productcatalog/store"

	"go.uber.org/zap"
)

// Session state. Tests inject storage and ctrl before executing a command;
// PersistentPreRunE leaves injected values alone.
var (
	cfg     = config.Default()
	log     = zap.NewNop()
	backend store.Backend
	storage *store.Storage
	ctrl    *catalog.Controller
)

// setup builds the session from the loaded configuration.
func setup(ctx context.Context, c config.Config) error {
	l, err := logger.New(c.Env, c.Log.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	log = l
	log.Debug("configuration loaded", zap.Stringer("config", c))

	b, err := store.NewBackend(c.Store.Kind, c.StoreOptions())
	if err != nil {
		return fmt.Errorf("open %s store: %w", c.Store.Kind, err)
	}
	backend = b
	storage = store.NewStorage(b, store.WithLogger(log), store.WithProductsKey(c.Store.Key))

	var fetcher source.Fetcher
	if c.Remote.BaseURL != "" {
		client, err := remote.New(c.Remote.BaseURL,
			remote.WithLogger(log),
			remote.WithHTTPClient(&http.Client{Timeout: c.Remote.Timeout}),
			remote.WithRetry(c.Remote.Retries, c.Remote.RetryInterval),
		)
		if err != nil {
			return err
		}
		fetcher = client
	}

	ctrl = newController(storage, fetcher, c)
	return ctrl.Load(ctx)
}

func newController(st *store.Storage, fetcher source.Fetcher, c config.Config) *catalog.Controller {
	q := catalog.WithInitialQuery(defaultQuery(c))
	r := source.New(st, fetcher, source.WithLogger(log))
	return catalog.New(r, st,
		catalog.WithLogger(log),
		catalog.WithSearchDelay(c.Query.SearchDelay),
		catalog.WithPersistTimeout(c.Query.PersistTimeout),
		q,
	)
}

// teardown drains pending writes and releases the backend.
func teardown() {
	if ctrl != nil {
		ctrl.Close()
	}
	if backend != nil {
		if err := store.Close(backend); err != nil {
			log.Warn("close store", zap.Error(err))
		}
	}
	_ = log.Sync()
}

func injected() bool { return ctrl != nil && storage != nil }
