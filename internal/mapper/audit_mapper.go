package mapper

import (
	"encoding/json"

	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/model"

	"gorm.io/datatypes"
)

type AuditMapper struct{}

func NewAuditMapper() *AuditMapper {
	return &AuditMapper{}
}

func (m *AuditMapper) TurnAuditToEntity(a *model.TurnAudit) *entity.TurnAudit {
	if a == nil {
		return nil
	}

	payload := map[string]interface{}{}
	if len(a.Payload) > 0 {
		// Malformed rows keep an empty payload rather than failing the read.
		_ = json.Unmarshal(a.Payload, &payload)
	}

	return &entity.TurnAudit{
		Id:        a.Id,
		EventType: a.EventType,
		SessionId: a.SessionId,
		Payload:   payload,
		CreatedAt: a.CreatedAt,
	}
}

func (m *AuditMapper) TurnAuditToModel(a *entity.TurnAudit) (*model.TurnAudit, error) {
	if a == nil {
		return nil, nil
	}

	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, err
	}

	return &model.TurnAudit{
		Id:        a.Id,
		EventType: a.EventType,
		SessionId: a.SessionId,
		Payload:   datatypes.JSON(payload),
		CreatedAt: a.CreatedAt,
	}, nil
}
