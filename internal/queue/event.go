// Package queue fans session transitions out over RabbitMQ and consumes
// them into an audit log.
package queue

import (
    "time"

    "github.com/iliyamo/roadassist-console/internal/service"
)

// SessionQueueName is the durable queue session events are published to.
const SessionQueueName = "session.events"

// SessionEvent is published after every session transition.  It never
// carries tokens.
type SessionEvent struct {
    Reason        string `json:"reason"`
    Authenticated bool   `json:"authenticated"`
    Username      string `json:"username,omitempty"`
    Role          string `json:"role,omitempty"`
    Console       string `json:"console"`
    OccurredAt    string `json:"occurred_at"`
}

// EventFromChange builds the wire event for a session change.  console
// names the process that owns the session (host or install id).
func EventFromChange(ch service.Change, console string) SessionEvent {
    ev := SessionEvent{
        Reason:        string(ch.Reason),
        Authenticated: ch.Authenticated,
        Console:       console,
        OccurredAt:    ch.At.UTC().Format(time.RFC3339),
    }
    u := ch.User
    if u == nil {
        u = ch.Previous
    }
    if u != nil {
        ev.Username = u.Username
        ev.Role = string(u.Role)
    }
    return ev
}
