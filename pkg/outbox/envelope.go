package outbox

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/foodhall-backend/pkg/enums"
)

// ActorRef identifies who caused the event. System jobs use role admin and
// user id 0.
type ActorRef struct {
	UserID int64      `json:"userId"`
	Role   enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is what lands in outbox_events.payload_json and, unchanged,
// on the broker. Type and AggregateID repeat the row columns so consumers can
// route on the body alone.
type PayloadEnvelope struct {
	Version     int                   `json:"version"`
	EventID     string                `json:"eventId"`
	Type        enums.OutboxEventType `json:"type,omitempty"`
	AggregateID int64                 `json:"aggregateId,omitempty"`
	Source      string                `json:"source,omitempty"`
	OccurredAt  time.Time             `json:"occurredAt"`
	Actor       *ActorRef             `json:"actor,omitempty"`
	Data        json.RawMessage       `json:"data"`
}
