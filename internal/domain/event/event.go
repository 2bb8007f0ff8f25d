package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTaskCreated      Type = "task_created"
	TypeTaskClaimed      Type = "task_claimed"
	TypeAttemptStarted   Type = "attempt_started"
	TypeAttemptCompleted Type = "attempt_completed"
)

// Channel is a domain-scoped Postgres NOTIFY channel. All task lifecycle
// events share one LISTEN connection.
type Channel string

const ChannelTask Channel = "task"

var typeToChannel = map[Type]Channel{
	TypeTaskCreated:      ChannelTask,
	TypeTaskClaimed:      ChannelTask,
	TypeAttemptStarted:   ChannelTask,
	TypeAttemptCompleted: ChannelTask,
}

func ChannelFor(t Type) Channel {
	return typeToChannel[t]
}

type Event struct {
	Type       Type      `json:"type"`
	EntityID   uuid.UUID `json:"entity_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(t Type, entityID uuid.UUID) Event {
	return Event{
		Type:       t,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}
