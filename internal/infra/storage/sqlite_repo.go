package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, slot, timestamp, event_type, actor_id, target_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Slot, event.Timestamp.UnixMilli(), event.EventType, event.ActorID,
		event.TargetID, string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

const eventColumns = `id, slot, timestamp, event_type, actor_id, target_id, payload`

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var ts int64
		var payloadStr string
		err := rows.Scan(&e.ID, &e.Slot, &ts, &e.EventType, &e.ActorID, &e.TargetID, &payloadStr)
		if err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySlot(ctx context.Context, slot string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, slot)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, slot, actorID string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? AND actor_id = ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, slot, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, slot string, eventType string) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? AND event_type = ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, slot, eventType)
}

func (r *SQLiteEventRepository) GetSince(ctx context.Context, slot string, since time.Time) ([]GameEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE slot = ? AND timestamp >= ? ORDER BY timestamp ASC, rowid ASC`
	return r.getMany(ctx, query, slot, since.UnixMilli())
}

func (r *SQLiteEventRepository) DeleteSlot(ctx context.Context, slot string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE slot = ?`, slot)
	return err
}

// ---------------------------------------------------------
// SQLiteSaveRepository
// ---------------------------------------------------------

type SQLiteSaveRepository struct {
	db *sql.DB
}

func NewSQLiteSaveRepository(db *sql.DB) *SQLiteSaveRepository {
	return &SQLiteSaveRepository{db: db}
}

func (r *SQLiteSaveRepository) Load(ctx context.Context, slot string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM saves WHERE slot = ?`, slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("slot %s: %w", slot, ErrSaveNotFound)
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	return data, nil
}

func (r *SQLiteSaveRepository) Save(ctx context.Context, slot string, data []byte) error {
	query := `
		INSERT INTO saves (slot, data, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			data=excluded.data,
			saved_at=excluded.saved_at
	`
	if _, err := r.db.ExecContext(ctx, query, slot, data, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save slot %s: %w", slot, err)
	}
	return nil
}

func (r *SQLiteSaveRepository) Delete(ctx context.Context, slot string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", slot, err)
	}
	return nil
}
