// Package storage provides the persistence layer for the game server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrSaveNotFound is returned when a slot has never been saved.
var ErrSaveNotFound = errors.New("save not found")

// GameEvent mirrors the domain event structure for persistence.
// The domain package should NOT import this; use interfaces instead.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	Slot      string                 `json:"slot" db:"slot"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	TargetID  string                 `json:"target_id" db:"target_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the history of a slot.
	Append(ctx context.Context, event GameEvent) error

	// GetBySlot retrieves all events of a slot in order.
	GetBySlot(ctx context.Context, slot string) ([]GameEvent, error)

	// GetByActorID retrieves all events caused by an actor.
	GetByActorID(ctx context.Context, slot, actorID string) ([]GameEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, slot string, eventType string) ([]GameEvent, error)

	// GetSince retrieves events at or after since.
	GetSince(ctx context.Context, slot string, since time.Time) ([]GameEvent, error)

	// DeleteSlot forgets the history of a slot.
	DeleteSlot(ctx context.Context, slot string) error
}

// SaveRepository stores one encoded snapshot per slot.
type SaveRepository interface {
	// Load returns the snapshot bytes of slot, or ErrSaveNotFound.
	Load(ctx context.Context, slot string) ([]byte, error)

	// Save replaces the snapshot of slot.
	Save(ctx context.Context, slot string, data []byte) error

	// Delete removes the snapshot of slot. Deleting a missing slot is not an error.
	Delete(ctx context.Context, slot string) error
}
