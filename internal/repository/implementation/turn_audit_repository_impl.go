package implementation

import (
	"context"

	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/mapper"
	"astrolynx-be/internal/model"
	"astrolynx-be/internal/repository/contract"
	"astrolynx-be/internal/repository/specification"

	"gorm.io/gorm"
)

type TurnAuditRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AuditMapper
}

func NewTurnAuditRepository(db *gorm.DB) contract.TurnAuditRepository {
	return &TurnAuditRepositoryImpl{
		db:     db,
		mapper: mapper.NewAuditMapper(),
	}
}

func (r *TurnAuditRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *TurnAuditRepositoryImpl) Create(ctx context.Context, audit *entity.TurnAudit) error {
	m, err := r.mapper.TurnAuditToModel(audit)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*audit = *r.mapper.TurnAuditToEntity(m)
	return nil
}

func (r *TurnAuditRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnAudit, error) {
	var models []*model.TurnAudit
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.TurnAudit, len(models))
	for i, m := range models {
		entities[i] = r.mapper.TurnAuditToEntity(m)
	}
	return entities, nil
}

func (r *TurnAuditRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.TurnAudit{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
