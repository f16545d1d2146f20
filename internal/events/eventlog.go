// Package events provides the append-only audit log of game transitions.
// Hires, unlocks, achievements and imports are recorded here and optionally
// written through to durable storage.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeEntityHired         EventType = "ENTITY_HIRED"
	EventTypeManagerHired        EventType = "MANAGER_HIRED"
	EventTypeTaskStarted         EventType = "TASK_STARTED"
	EventTypeUpgradePurchased    EventType = "UPGRADE_PURCHASED"
	EventTypeFeatureUnlocked     EventType = "FEATURE_UNLOCKED"
	EventTypeAchievementUnlocked EventType = "ACHIEVEMENT_UNLOCKED"
	EventTypeTutorialAdvanced    EventType = "TUTORIAL_ADVANCED"
	EventTypeOfflineProgress     EventType = "OFFLINE_PROGRESS"
	EventTypeSaveImported        EventType = "SAVE_IMPORTED"
	EventTypeGameReset           EventType = "GAME_RESET"
)

// GameEvent represents an immutable record of a transition in the game.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`  // entity, feature or system that caused it
	TargetID  string      `json:"target_id"` // affected entity (optional)
	Payload   interface{} `json:"payload"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
	pending   sync.WaitGroup
	onError   func(GameEvent, error)
}

// NewEventLog creates a new event log. persister may be nil.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// OnPersistError registers a callback for failed write-throughs.
func (el *EventLog) OnPersistError(fn func(GameEvent, error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// Append adds a new event to the log, filling ID and Timestamp when unset.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.events = append(el.events, event)
	persister, onError := el.persister, el.onError
	el.mu.Unlock()

	if persister != nil {
		el.pending.Add(1)
		go func(e GameEvent) {
			defer el.pending.Done()
			if err := persister.Append(e); err != nil && onError != nil {
				onError(e, err)
			}
		}(event)
	}
	return event
}

// Flush blocks until all pending write-throughs have finished.
func (el *EventLog) Flush() {
	el.pending.Wait()
}

// GetByActor returns all events caused by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// GetByType returns all events of one type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// Len returns the number of events recorded.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
