package main

import (
	"context"
	"errors"
	"os"
	"time"

	"weeklykeeper/internal/cli"
	"weeklykeeper/internal/core"
	"weeklykeeper/internal/log"
	"weeklykeeper/internal/storage"
	"weeklykeeper/internal/store"
)

// keeper-maintenance prunes old ghost weeks from the persisted snapshot.
// It runs once and exits; schedule it with cron or a systemd timer.
func main() {
	cfg, logger := cli.Bootstrap(log.ComponentMaintenance)

	if cfg.RetentionWeeks <= 0 {
		logger.Info("Pruning disabled - RETENTION_WEEKS is not set")
		return
	}

	snapshots := cli.OpenSnapshots(cfg, logger)
	defer snapshots.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, revision, err := snapshots.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			logger.Info("No snapshot found, nothing to prune")
			return
		}
		logger.Error("Failed to load snapshot", log.FieldError, err)
		os.Exit(1)
	}

	state, err := store.Migrate(data)
	if err != nil {
		logger.Error("Snapshot is not usable", log.FieldError, err)
		os.Exit(1)
	}

	st := store.New(state)
	cutoff := core.WeekStartKey(time.Now().AddDate(0, 0, -7*cfg.RetentionWeeks))
	pruned := st.PruneGhostWeeks(cutoff)
	if pruned == 0 {
		logger.Info("No ghost weeks older than cutoff", "cutoff", cutoff)
		return
	}

	out, err := store.Marshal(st.Snapshot())
	if err != nil {
		logger.Error("Failed to marshal pruned state", log.FieldError, err)
		os.Exit(1)
	}
	if err := snapshots.Save(ctx, out, revision+1); err != nil {
		logger.Error("Failed to persist pruned state", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Pruned ghost weeks", "pruned", pruned, "cutoff", cutoff, log.FieldRevision, revision+1)
}
