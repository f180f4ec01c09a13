package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"itinerary/internal/events"
	"itinerary/internal/ingest"
	"itinerary/internal/metrics"
	"itinerary/internal/model"
	"itinerary/internal/store"
)

// ErrNoSource is returned by ReloadFile when no feed path is configured.
var ErrNoSource = errors.New("no catalog feed configured")

// Persister is the subset of store.Store the reloader writes through.
type Persister interface {
	SaveCatalog(ctx context.Context, stores []model.Store) error
	LoadCatalog(ctx context.Context) ([]model.Store, error)
}

// Result describes a completed load.
type Result struct {
	Catalog model.CatalogInfo `json:"catalog"`
	Report  *ingest.Report    `json:"report,omitempty"`
}

// Reloader builds snapshots from a source and swaps them into a Holder. Loads are
// serialized; readers are never blocked.
type Reloader struct {
	Holder   *Holder
	FeedPath string
	SeedPath string
	Store    Persister          // optional
	Events   events.EventBroker // optional
	Log      *zap.Logger

	mu sync.Mutex
}

func (r *Reloader) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

// ReloadFile re-reads the configured feed.
func (r *Reloader) ReloadFile(ctx context.Context) (Result, error) {
	if r.FeedPath == "" {
		return Result{}, ErrNoSource
	}
	raw, err := os.ReadFile(r.FeedPath)
	if err != nil {
		r.fail(r.FeedPath, err)
		return Result{}, err
	}
	return r.ReloadBytes(ctx, raw, r.FeedPath)
}

// ReloadBytes ingests raw and, on success, replaces the served snapshot. On failure the
// previous snapshot stays in place.
func (r *Reloader) ReloadBytes(ctx context.Context, raw []byte, source string) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stores, rep, err := ingest.Load(raw)
	if err != nil {
		r.fail(source, err)
		return Result{}, fmt.Errorf("load %s: %w", source, err)
	}
	metrics.IngestRowsDropped.Add(float64(rep.Dropped))
	r.logger().Info("catalog ingested",
		zap.String("source", source),
		zap.String("encoding", rep.Encoding),
		zap.Int("rows", rep.Rows),
		zap.Int("kept", rep.Kept),
		zap.Int("dropped", rep.Dropped))

	r.persist(ctx, stores)
	snap := r.install(stores, source)
	return Result{Catalog: snap.Info(), Report: &rep}, nil
}

// Install swaps in an already-normalized store list (from a seed or the persisted store).
func (r *Reloader) Install(stores []model.Store, source string) model.CatalogInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.install(stores, source).Info()
}

func (r *Reloader) install(stores []model.Store, source string) *Snapshot {
	snap := NewSnapshot(stores, source)
	r.Holder.Swap(snap)
	metrics.CatalogStores.Set(float64(snap.Len()))
	metrics.CatalogReloads.WithLabelValues("ok").Inc()
	if r.Events != nil {
		info := snap.Info()
		r.Events.Publish(events.TopicCatalog, events.Event{
			Type: events.TypeCatalogReloaded,
			Data: map[string]any{"version": info.Version, "source": info.Source, "size": info.Size, "loadedAt": info.LoadedAt},
		})
	}
	r.logger().Info("catalog snapshot installed",
		zap.String("version", snap.Version()),
		zap.String("source", source),
		zap.Int("size", snap.Len()))
	return snap
}

func (r *Reloader) persist(ctx context.Context, stores []model.Store) {
	if r.Store == nil {
		return
	}
	if err := r.Store.SaveCatalog(ctx, stores); err != nil {
		r.logger().Warn("catalog persist failed", zap.Error(err))
	}
}

func (r *Reloader) fail(source string, err error) {
	metrics.CatalogReloads.WithLabelValues("failed").Inc()
	r.logger().Error("catalog load failed", zap.String("source", source), zap.Error(err))
	if r.Events != nil {
		r.Events.Publish(events.TopicCatalog, events.Event{
			Type: events.TypeCatalogReloadFailed,
			Data: map[string]any{"source": source, "error": err.Error()},
		})
	}
}

// Bootstrap picks the startup source: the feed when configured, otherwise the persisted
// catalog when it holds rows, otherwise the JSON seed. With none of them the holder stays
// unloaded. A feed that fails to ingest is returned as an error.
func (r *Reloader) Bootstrap(ctx context.Context) (Result, error) {
	if r.FeedPath != "" {
		return r.ReloadFile(ctx)
	}
	if r.Store != nil {
		stores, err := r.Store.LoadCatalog(ctx)
		if err != nil {
			r.logger().Warn("persisted catalog unavailable", zap.Error(err))
		} else if len(stores) > 0 {
			return Result{Catalog: r.Install(stores, "store")}, nil
		}
	}
	if r.SeedPath != "" {
		stores, err := store.ReadSeed(r.SeedPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			r.logger().Warn("catalog seed missing", zap.String("path", r.SeedPath))
		case err != nil:
			r.fail(r.SeedPath, err)
			return Result{}, err
		default:
			r.persist(ctx, stores)
			return Result{Catalog: r.Install(stores, r.SeedPath)}, nil
		}
	}
	r.logger().Warn("no catalog source available; serving an empty catalog")
	return Result{Catalog: r.Holder.Load().Info()}, nil
}
