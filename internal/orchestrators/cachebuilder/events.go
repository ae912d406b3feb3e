package cachebuilder

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"
)

// Event types published on the configured bus
const (
	EventCacheProgress = "compendium.cache.progress"
	EventCacheRebuilt  = "compendium.cache.rebuilt"
)

// Event context keys
const (
	KeyBuildID      = "build_id"
	KeyDone         = "done"
	KeyTotal        = "total"
	KeyCacheVersion = "cache_version"
	KeyPacks        = "packs"
	KeyDocuments    = "documents"
	KeyFailed       = "failed"
)

// buildEntity is the event source for one rebuild
type buildEntity struct {
	id string
}

var _ core.Entity = buildEntity{}

func (b buildEntity) GetID() string   { return b.id }
func (b buildEntity) GetType() string { return "cache_build" }

// publish sends an event when a bus is configured. Bus failures are logged
// and never fail the rebuild.
func (o *Orchestrator) publish(ctx context.Context, eventType, buildID string, values map[string]any) {
	if o.eventBus == nil {
		return
	}
	event := events.NewGameEvent(eventType, buildEntity{id: buildID}, nil)
	event.Context().Set(KeyBuildID, buildID)
	for k, v := range values {
		event.Context().Set(k, v)
	}
	if err := o.eventBus.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish cache event", "event", eventType, "build_id", buildID, "error", err)
	}
}
