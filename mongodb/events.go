// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/event"
)

// EventKind tags the driver event re-emitted through a context's OnEvent
// delegate.
type EventKind int

const (
	EventCommandStarted EventKind = iota
	EventCommandSucceeded
	EventCommandFailed
	EventConnectionFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCommandStarted:
		return "command_started"
	case EventCommandSucceeded:
		return "command_succeeded"
	case EventCommandFailed:
		return "command_failed"
	case EventConnectionFailed:
		return "connection_failed"
	}
	return "unknown"
}

// Event carries one driver event with its native payload. Exactly one of
// the payload fields is set, matching Kind.
type Event struct {
	Kind EventKind

	CommandStarted   *event.CommandStartedEvent
	CommandSucceeded *event.CommandSucceededEvent
	CommandFailed    *event.CommandFailedEvent
	Pool             *event.PoolEvent
}

// EventHandler receives re-emitted driver events. Handlers run on driver
// goroutines and must not block.
type EventHandler func(Event)

func (c *Context) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

func (c *Context) commandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(_ context.Context, e *event.CommandStartedEvent) {
			c.emit(Event{Kind: EventCommandStarted, CommandStarted: e})
		},
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			c.emit(Event{Kind: EventCommandSucceeded, CommandSucceeded: e})
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			c.emit(Event{Kind: EventCommandFailed, CommandFailed: e})
		},
	}
}

func (c *Context) poolMonitor() *event.PoolMonitor {
	return &event.PoolMonitor{
		Event: func(e *event.PoolEvent) {
			if e.Type == event.GetFailed || e.Type == event.PoolCleared {
				c.emit(Event{Kind: EventConnectionFailed, Pool: e})
			}
		},
	}
}
