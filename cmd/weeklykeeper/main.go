package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"weeklykeeper/internal/amqp"
	"weeklykeeper/internal/cli"
	"weeklykeeper/internal/core"
	apphttp "weeklykeeper/internal/http"
	"weeklykeeper/internal/log"
	"weeklykeeper/internal/storage"
	"weeklykeeper/internal/store"
	syncpkg "weeklykeeper/internal/sync"
)

// syncPublisher fans a state-changed announcement out to every configured
// target: the AMQP bus for the worker and the REST peer, which receives the
// full state directly.
type syncPublisher struct {
	bus   *amqp.Client
	peer  *syncpkg.PeerClient
	state *store.Store
}

func (p *syncPublisher) PublishStateChanged(ctx context.Context, revision int64) error {
	var errs []error
	if p.bus != nil {
		if err := p.bus.PublishStateChanged(ctx, revision); err != nil {
			errs = append(errs, err)
		}
	}
	if p.peer != nil {
		data, err := store.Marshal(p.state.Snapshot())
		if err != nil {
			errs = append(errs, err)
		} else if err := p.peer.Push(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	snapshots := cli.OpenSnapshots(cfg, logger)
	defer snapshots.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var peer *syncpkg.PeerClient
	if cfg.PeerURL != "" {
		peer = syncpkg.NewPeerClient(cfg.PeerURL, 10*time.Second)
	}

	initial, revision := loadInitialState(ctx, logger, snapshots, peer)
	st := store.NewAt(initial, revision)

	var bus *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		bus, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer bus.Close()
	}

	var coordinator *syncpkg.Coordinator
	var syncCtl apphttp.SyncControl
	if bus != nil || peer != nil {
		coordCfg := syncpkg.DefaultCoordinatorConfig()
		coordCfg.Debounce = cfg.SyncDebounce
		coordinator = syncpkg.NewCoordinator(&syncPublisher{bus: bus, peer: peer, state: st}, coordCfg)
		syncCtl = coordinator
	}

	// Every mutation is written through to the local backend and, when sync
	// is configured, announced after the debounce window.
	persist := logger.WithComponent(log.ComponentStorage)
	st.OnChange(func(state core.AppState, revision int64) {
		data, err := store.Marshal(state)
		if err != nil {
			persist.Error("Failed to marshal state", log.FieldError, err, log.FieldRevision, revision)
			return
		}
		if err := snapshots.Save(ctx, data, revision); err != nil {
			persist.Error("Failed to persist snapshot", log.FieldError, err, log.FieldRevision, revision)
			return
		}
		if coordinator != nil {
			coordinator.NotifyChanged(revision)
		}
	})

	if coordinator != nil {
		if err := coordinator.Start(ctx); err != nil {
			logger.Error("Failed to start sync coordinator", log.FieldError, err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		CORSOrigins: cfg.CORSAllowedOrigins,
	}, st, syncCtl)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting weeklykeeper server",
			"port", cfg.Port,
			log.FieldBackendType, cfg.DataBackend,
			"sync_enabled", syncCtl != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-gctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if coordinator != nil {
			if err := coordinator.Stop(shutdownCtx); err != nil {
				logger.Error("Sync coordinator shutdown error", log.FieldError, err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// loadInitialState prefers the peer's live state over the local snapshot: the
// peer has been running while this instance was down, so its copy is newer.
// The local snapshot's revision is returned either way so the mutation
// counter resumes where the previous run left off.
func loadInitialState(ctx context.Context, logger *log.Logger, snapshots storage.SnapshotStore, peer *syncpkg.PeerClient) (core.AppState, int64) {
	local, revision := loadLocalSnapshot(ctx, logger, snapshots)

	if peer != nil {
		fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		data, err := peer.Fetch(fetchCtx)
		cancel()
		switch {
		case err == nil:
			if state, merr := store.Migrate(data); merr == nil {
				logger.Info("Loaded state from peer", "weeks", len(state.Weeks))
				return state, revision
			} else {
				logger.Warn("Peer state is not usable, falling back to local snapshot", log.FieldError, merr)
			}
		case errors.Is(err, syncpkg.ErrNotFound):
			logger.Info("Peer has no data yet")
		default:
			logger.Warn("Failed to reach peer, falling back to local snapshot", log.FieldError, err)
		}
	}

	return local, revision
}

func loadLocalSnapshot(ctx context.Context, logger *log.Logger, snapshots storage.SnapshotStore) (core.AppState, int64) {
	data, revision, err := snapshots.Load(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoSnapshot) {
			logger.Warn("Failed to load local snapshot, starting fresh", log.FieldError, err)
		}
		return store.DefaultState(), 0
	}

	state, err := store.Migrate(data)
	if err != nil {
		logger.Warn("Local snapshot is not usable, starting fresh", log.FieldError, err)
		return store.DefaultState(), 0
	}
	logger.Info("Loaded state from local snapshot", "weeks", len(state.Weeks), log.FieldRevision, revision)
	return state, revision
}
