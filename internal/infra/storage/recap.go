// Package storage - recap.go
// Builds the "while you were away" history from the stored event log.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Recap turns stored events into a human-readable history.
type Recap struct {
	eventRepo EventRepository
	now       func() time.Time
}

// NewRecap creates a recap over eventRepo.
func NewRecap(eventRepo EventRepository) *Recap {
	return &Recap{eventRepo: eventRepo, now: time.Now}
}

// RecapEvent is a simplified event for the history screen.
type RecapEvent struct {
	Timestamp string `json:"timestamp"`
	Ago       string `json:"ago"`
	EventType string `json:"event_type"`
	Summary   string `json:"summary"` // Human-readable description
	Impact    string `json:"impact"`  // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Generate returns the newest limit events at or after since, oldest first.
// A non-positive limit returns everything.
func (r *Recap) Generate(ctx context.Context, slot string, since time.Time, limit int) ([]RecapEvent, error) {
	events, err := r.eventRepo.GetSince(ctx, slot, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for slot %s: %w", slot, err)
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}

	now := r.now()
	recap := make([]RecapEvent, 0, len(events))
	for _, e := range events {
		recap = append(recap, RecapEvent{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Ago:       humanize.RelTime(e.Timestamp, now, "ago", "from now"),
			EventType: e.EventType,
			Summary:   summarizeEvent(e),
			Impact:    determineImpact(e),
		})
	}
	return recap, nil
}

// OfflineTotal sums the data credited for time away since the given instant.
func (r *Recap) OfflineTotal(ctx context.Context, slot string, since time.Time) (float64, error) {
	events, err := r.eventRepo.GetSince(ctx, slot, since)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, e := range events {
		if e.EventType == "OFFLINE_PROGRESS" {
			total += number(e.Payload, "amount")
		}
	}
	return total, nil
}

func number(payload map[string]interface{}, key string) float64 {
	if v, ok := payload[key].(float64); ok {
		return v
	}
	return 0
}

func text(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// summarizeEvent creates a human-readable summary.
func summarizeEvent(e GameEvent) string {
	switch e.EventType {
	case "ENTITY_HIRED":
		return fmt.Sprintf("Hired %s for %s GB.", e.TargetID, humanize.Commaf(number(e.Payload, "cost")))
	case "MANAGER_HIRED":
		return fmt.Sprintf("Hired %s, who now runs %s automatically.", e.TargetID, text(e.Payload, "manages"))
	case "TASK_STARTED":
		return fmt.Sprintf("%s started a task.", e.ActorID)
	case "UPGRADE_PURCHASED":
		return fmt.Sprintf("Bought %s level %.0f.", e.ActorID, number(e.Payload, "level"))
	case "FEATURE_UNLOCKED":
		return fmt.Sprintf("Unlocked %s.", text(e.Payload, "feature"))
	case "ACHIEVEMENT_UNLOCKED":
		return fmt.Sprintf("Achievement unlocked: %s.", text(e.Payload, "name"))
	case "TUTORIAL_ADVANCED":
		return "Tutorial advanced."
	case "OFFLINE_PROGRESS":
		return fmt.Sprintf("Generated %s GB while you were away.", humanize.Commaf(number(e.Payload, "amount")))
	case "SAVE_IMPORTED":
		return "Imported a save file."
	case "GAME_RESET":
		return "Started over from scratch."
	default:
		return "Something happened."
	}
}

// determineImpact classifies an event for the history screen.
func determineImpact(e GameEvent) string {
	switch e.EventType {
	case "ACHIEVEMENT_UNLOCKED", "FEATURE_UNLOCKED", "OFFLINE_PROGRESS", "UPGRADE_PURCHASED":
		return "POSITIVE"
	case "GAME_RESET":
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}
