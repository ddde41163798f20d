package entity

import (
	"time"

	"github.com/google/uuid"
)

type TurnAudit struct {
	Id        uuid.UUID
	EventType string
	SessionId uuid.UUID
	Payload   map[string]interface{}
	CreatedAt time.Time
}
