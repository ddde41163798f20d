package contract

import (
	"context"

	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/repository/specification"
)

type TurnAuditRepository interface {
	Create(ctx context.Context, audit *entity.TurnAudit) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnAudit, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
