package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemorySaveRepository keeps saves in process memory.
type MemorySaveRepository struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

func NewMemorySaveRepository() *MemorySaveRepository {
	return &MemorySaveRepository{slots: make(map[string][]byte)}
}

func (r *MemorySaveRepository) Load(ctx context.Context, slot string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.slots[slot]
	if !ok {
		return nil, fmt.Errorf("slot %s: %w", slot, ErrSaveNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (r *MemorySaveRepository) Save(ctx context.Context, slot string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot] = append([]byte(nil), data...)
	return nil
}

func (r *MemorySaveRepository) Delete(ctx context.Context, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.slots, slot)
	return nil
}

// MemoryEventRepository keeps the event history in process memory.
type MemoryEventRepository struct {
	mu     sync.RWMutex
	events []GameEvent
}

func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{}
}

func (r *MemoryEventRepository) Append(ctx context.Context, event GameEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *MemoryEventRepository) filter(keep func(GameEvent) bool) []GameEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []GameEvent
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (r *MemoryEventRepository) GetBySlot(ctx context.Context, slot string) ([]GameEvent, error) {
	return r.filter(func(e GameEvent) bool { return e.Slot == slot }), nil
}

func (r *MemoryEventRepository) GetByActorID(ctx context.Context, slot, actorID string) ([]GameEvent, error) {
	return r.filter(func(e GameEvent) bool { return e.Slot == slot && e.ActorID == actorID }), nil
}

func (r *MemoryEventRepository) GetByEventType(ctx context.Context, slot string, eventType string) ([]GameEvent, error) {
	return r.filter(func(e GameEvent) bool { return e.Slot == slot && e.EventType == eventType }), nil
}

func (r *MemoryEventRepository) GetSince(ctx context.Context, slot string, since time.Time) ([]GameEvent, error) {
	return r.filter(func(e GameEvent) bool { return e.Slot == slot && !e.Timestamp.Before(since) }), nil
}

func (r *MemoryEventRepository) DeleteSlot(ctx context.Context, slot string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.events[:0]
	for _, e := range r.events {
		if e.Slot != slot {
			kept = append(kept, e)
		}
	}
	r.events = kept
	return nil
}
