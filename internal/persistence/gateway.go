// Package persistence moves game snapshots between the engine and a save
// repository, and writes the event log through to durable storage.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kylechrisking/it-empire-idle/internal/engine"
	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/platform/logger"
	"github.com/kylechrisking/it-empire-idle/internal/platform/metrics"
	"github.com/kylechrisking/it-empire-idle/internal/save"
)

// Player-facing notices.
const (
	NoticeSaveFailed     = "Failed to save game!"
	NoticeImportFailed   = "Error importing save file!"
	NoticeImportOK       = "Game data imported successfully!"
	noticeOfflineFormat  = "While you were away, you generated %s GB!"
	noticeLoadFailed     = "Your save could not be read. Starting a new game."
	defaultOperationWait = 5 * time.Second
)

// Gateway implements engine.Persister over a SaveRepository.
type Gateway struct {
	repo    storage.SaveRepository
	slot    string
	logger  *logger.Logger
	metrics *metrics.Collector
}

var _ engine.Persister = (*Gateway)(nil)

// NewGateway stores snapshots for slot in repo.
func NewGateway(repo storage.SaveRepository, slot string, log *logger.Logger) *Gateway {
	return &Gateway{
		repo:    repo,
		slot:    slot,
		logger:  log,
		metrics: metrics.Get(),
	}
}

// Load restores the saved game into e and credits offline progress. A missing
// save leaves e as a fresh game; an unreadable one is logged and also leaves a
// fresh game. Only repository failures are returned.
func (g *Gateway) Load(ctx context.Context, e *engine.Engine) error {
	data, err := g.repo.Load(ctx, g.slot)
	if errors.Is(err, storage.ErrSaveNotFound) {
		g.logger.Info("No save found, starting a new game", "slot", g.slot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load slot %s: %w", g.slot, err)
	}

	snap, err := save.Decode(data)
	if err == nil {
		err = e.Restore(snap)
	}
	if err != nil {
		g.logger.Error("Save is unreadable, starting a new game", "slot", g.slot, "err", err)
		e.Notice(noticeLoadFailed)
		return nil
	}

	g.logger.Info("Save loaded", "slot", g.slot, "balance", humanize.Commaf(e.Balance()))
	g.applyOffline(e, snap.LastSaveTime)
	return nil
}

func (g *Gateway) applyOffline(e *engine.Engine, lastSaveMillis int64) {
	if lastSaveMillis <= 0 {
		return
	}
	elapsed := e.Clock().Now().Sub(time.UnixMilli(lastSaveMillis))
	if amount := e.ApplyOfflineProgress(elapsed); amount > 0 {
		e.Notice(fmt.Sprintf(noticeOfflineFormat, humanize.Commaf(amount)))
	}
}

// Save writes the current state. Failures also reach the player as a notice.
func (g *Gateway) Save(ctx context.Context, e *engine.Engine) error {
	start := time.Now()
	err := g.save(ctx, e)
	g.metrics.RecordSave(time.Since(start), err)
	if err != nil {
		g.logger.Error("Save failed", "slot", g.slot, "err", err)
		e.Notice(NoticeSaveFailed)
		return err
	}
	g.logger.Debug("Game saved", "slot", g.slot)
	return nil
}

func (g *Gateway) save(ctx context.Context, e *engine.Engine) error {
	data, err := save.Encode(e.Snapshot(e.Clock().Now()))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, defaultOperationWait)
	defer cancel()
	return g.repo.Save(ctx, g.slot, data)
}

// Export renders the current state for download.
func (g *Gateway) Export(e *engine.Engine) ([]byte, error) {
	return save.Encode(e.Snapshot(e.Clock().Now()))
}

// Import validates data, replaces the game with it and saves the result.
// Invalid data leaves the running game untouched.
func (g *Gateway) Import(ctx context.Context, e *engine.Engine, data []byte) error {
	snap, err := save.Decode(data)
	if err == nil {
		err = e.Restore(snap)
	}
	if err != nil {
		g.logger.Warn("Import rejected", "err", err)
		e.Notice(NoticeImportFailed)
		return err
	}

	e.EventLog().Append(events.GameEvent{
		Type:    events.EventTypeSaveImported,
		ActorID: "PLAYER",
		Payload: map[string]interface{}{"version": snap.Version},
	})
	e.Notice(NoticeImportOK)
	return g.Save(ctx, e)
}

// Reset deletes the slot and starts a fresh game.
func (g *Gateway) Reset(ctx context.Context, e *engine.Engine) error {
	if err := g.repo.Delete(ctx, g.slot); err != nil {
		return fmt.Errorf("reset slot %s: %w", g.slot, err)
	}
	e.ResetAll()
	return nil
}
