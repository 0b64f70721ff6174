package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sourcegraph/conc"

	"github.com/desertthunder/streamgrid/internal/metrics"
	"github.com/desertthunder/streamgrid/internal/models"
	"github.com/desertthunder/streamgrid/internal/registry"
	"github.com/desertthunder/streamgrid/internal/repositories"
	"github.com/desertthunder/streamgrid/internal/search"
	"github.com/desertthunder/streamgrid/internal/session"
	"github.com/desertthunder/streamgrid/internal/shared"
)

// stores bundles the durable key-value store and search history with their database.
type stores struct {
	kv      models.KeyValueStore
	history models.SearchHistory
	db      *sql.DB
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// openStores opens the configured sqlite database, or an in-memory store when ephemeral is set.
func (r *Runner) openStores(ctx context.Context, ephemeral bool) (*stores, error) {
	if ephemeral {
		r.logger.Debug("using in-memory storage")
		return &stores{kv: repositories.NewMemoryStore()}, nil
	}

	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &stores{
		kv:      repositories.NewKeyValueRepository(db),
		history: repositories.NewSearchHistoryRepository(db),
		db:      db,
	}, nil
}

// grid is one running stream grid: entries, credentials and channel search over shared storage.
type grid struct {
	stores   *stores
	reg      *registry.Registry
	sess     *session.Session
	searcher *search.Searcher
	metrics  *metrics.Metrics
}

// gridOpts configures [Runner.newGrid].
type gridOpts struct {
	ephemeral   bool
	metrics     *metrics.Metrics
	suggestions search.ChangeFunc
}

// newGrid wires the registry, session and searcher. The session is not started.
func (r *Runner) newGrid(ctx context.Context, opts gridOpts) (*grid, error) {
	st, err := r.openStores(ctx, opts.ephemeral)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	if r.config.Grid.Persist {
		found, err := reg.Load(ctx, st.kv)
		if err != nil {
			r.logger.Warn("failed to restore saved streams", "error", err)
		} else if found {
			r.logger.Info("restored saved streams", "count", reg.Len())
		}

		reg.OnChange(func([]models.StreamEntry) {
			if err := reg.Save(context.Background(), st.kv); err != nil {
				r.logger.Warn("failed to save streams", "error", err)
			}
		})
	}

	client := r.twitchClient()
	sess := session.New(client, st.kv, session.WithLogger(r.logger), session.WithMetrics(opts.metrics))

	searchOpts := []search.Option{
		search.WithDebounce(r.config.Search.Debounce()),
		search.WithLimit(r.config.Search.Limit),
		search.WithLogger(r.logger),
		search.WithMetrics(opts.metrics),
	}
	if st.history != nil {
		searchOpts = append(searchOpts, search.WithHistory(st.history))
	}
	if opts.suggestions != nil {
		searchOpts = append(searchOpts, search.OnChange(opts.suggestions))
	}
	searcher := search.New(client, sess.AppToken, reg, searchOpts...)

	opts.metrics.SetEntries(reg.Len())
	return &grid{stores: st, reg: reg, sess: sess, searcher: searcher, metrics: opts.metrics}, nil
}

// Close stops pending searches and closes storage.
// startSession bootstraps the session in the background so the interface is up before Twitch answers.
// The returned func cancels the bootstrap and waits for it; call it before Close.
func (g *grid) startSession(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg conc.WaitGroup
	wg.Go(func() { g.sess.Start(ctx, "") })
	return func() {
		cancel()
		wg.Wait()
	}
}

func (g *grid) Close() error {
	g.searcher.Close()
	return g.stores.Close()
}
