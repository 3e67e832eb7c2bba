package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	sy "sync"

	"weeklykeeper/internal/amqp"
	"weeklykeeper/internal/core"
	"weeklykeeper/internal/sheets"
	"weeklykeeper/internal/storage"
	"weeklykeeper/internal/store"
)

// Uploader pushes a state snapshot to the remote share.
type Uploader interface {
	Upload(ctx context.Context, data []byte) error
}

// SyncWorker uploads the persisted state snapshot to the remote share when a
// state-changed event arrives, and optionally mirrors the latest settlement
// to an external sheet.
type SyncWorker struct {
	snapshots storage.SnapshotStore
	remote    Uploader
	mirror    sheets.SettlementWriter

	mu           sy.Mutex
	lastUploaded int64
	lastMirrored string
}

func NewSyncWorker(snapshots storage.SnapshotStore, remote Uploader, mirror sheets.SettlementWriter) *SyncWorker {
	return &SyncWorker{
		snapshots: snapshots,
		remote:    remote,
		mirror:    mirror,
	}
}

// HandleStateChanged processes a single state-changed message. The message
// names a revision but the snapshot is authoritative: a burst of edits
// collapses into one upload of whatever the snapshot holds now.
func (w *SyncWorker) HandleStateChanged(ctx context.Context, msg *amqp.StateChangedMessage) error {
	slog.InfoContext(ctx, "Processing state changed message", "revision", msg.Revision)
	return w.uploadSnapshot(ctx, false)
}

// StartupSyncCheck uploads the current snapshot at worker startup. This
// recovers from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if err := w.uploadSnapshot(ctx, true); err != nil {
		if errors.Is(err, storage.ErrNoSnapshot) {
			slog.InfoContext(ctx, "No snapshot found on startup, nothing to sync")
			return nil
		}
		return fmt.Errorf("startup sync check: %w", err)
	}
	return nil
}

// Resync forces an upload regardless of the last uploaded revision. Called
// periodically so a lost message cannot strand the remote copy.
func (w *SyncWorker) Resync(ctx context.Context) error {
	err := w.uploadSnapshot(ctx, true)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return nil
	}
	return err
}

func (w *SyncWorker) uploadSnapshot(ctx context.Context, force bool) error {
	data, revision, err := w.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	w.mu.Lock()
	skip := !force && revision != 0 && revision <= w.lastUploaded
	w.mu.Unlock()
	if skip {
		slog.DebugContext(ctx, "Snapshot already uploaded", "revision", revision)
		return nil
	}

	if err := w.remote.Upload(ctx, data); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	w.mu.Lock()
	if revision > w.lastUploaded {
		w.lastUploaded = revision
	}
	w.mu.Unlock()

	slog.InfoContext(ctx, "Uploaded snapshot to remote share",
		"revision", revision,
		"size", len(data))

	if err := w.mirrorLatestSettlement(ctx, data); err != nil {
		// Mirroring is best-effort; the upload already succeeded.
		slog.WarnContext(ctx, "Failed to mirror settlement", "error", err)
	}

	return nil
}

// mirrorLatestSettlement appends the newest non-ghost week's settlement to
// the external sheet, once per week key.
func (w *SyncWorker) mirrorLatestSettlement(ctx context.Context, data []byte) error {
	if w.mirror == nil {
		return nil
	}

	state, err := store.Migrate(data)
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	var keys []string
	for key, week := range state.Weeks {
		if week.IsGhost() {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	latest := keys[len(keys)-1]

	w.mu.Lock()
	done := w.lastMirrored == latest
	w.mu.Unlock()
	if done {
		return nil
	}

	week := state.Weeks[latest]
	settlement := core.Settle(week, core.DefaultPolicy)

	ref, err := w.mirror.AppendWeek(ctx, week, settlement)
	if err != nil {
		return fmt.Errorf("append settlement row: %w", err)
	}

	w.mu.Lock()
	w.lastMirrored = latest
	w.mu.Unlock()

	slog.InfoContext(ctx, "Mirrored latest settlement",
		"week", latest,
		"sheets_ref", ref)
	return nil
}
