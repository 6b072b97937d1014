package events

import (
	platformevents "leadrouter_backend/platform/events"
	"leadrouter_backend/platform/logger"
)

// InMemoryBus aliases the platform bus implementation.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates the in-process bus the composition roots wire up.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
