package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TurnAudit struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventType string         `gorm:"type:varchar(100);not null;index"`
	SessionId uuid.UUID      `gorm:"type:uuid;index"`
	Payload   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (TurnAudit) TableName() string {
	return "turn_audits"
}
