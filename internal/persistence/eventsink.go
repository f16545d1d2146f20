package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kylechrisking/it-empire-idle/internal/events"
	"github.com/kylechrisking/it-empire-idle/internal/infra/storage"
	"github.com/kylechrisking/it-empire-idle/internal/platform/metrics"
)

// EventSink writes domain events to an EventRepository under one slot.
type EventSink struct {
	repo    storage.EventRepository
	slot    string
	timeout time.Duration
	metrics *metrics.Collector
}

var _ events.EventPersister = (*EventSink)(nil)

func NewEventSink(repo storage.EventRepository, slot string) *EventSink {
	return &EventSink{
		repo:    repo,
		slot:    slot,
		timeout: defaultOperationWait,
		metrics: metrics.Get(),
	}
}

// Append converts and stores one event.
func (s *EventSink) Append(e events.GameEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	err := s.repo.Append(ctx, storage.GameEvent{
		ID:        e.ID,
		Slot:      s.slot,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Payload:   payloadMap(e.Payload),
	})
	s.metrics.RecordEventWrite(time.Since(start), err)
	return err
}

// payloadMap flattens any payload into the generic shape storage keeps.
func payloadMap(p interface{}) map[string]interface{} {
	if p == nil {
		return map[string]interface{}{}
	}
	if m, ok := p.(map[string]interface{}); ok {
		return m
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return map[string]interface{}{"value": err.Error()}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{"value": p}
	}
	return m
}
