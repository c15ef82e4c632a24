package settings

import (
	"context"

	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepo interface {
	GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Setting, error)
	Upsert(ctx context.Context, tx *gorm.DB, name, value string) error
}

type settingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	repoLog := baseLog.With("repo", "SettingRepo")
	return &settingRepo{db: db, log: repoLog}
}

func (r *settingRepo) GetByName(ctx context.Context, tx *gorm.DB, name string) (*types.Setting, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Setting
	if err := transaction.WithContext(ctx).
		Where("name = ?", name).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *settingRepo) Upsert(ctx context.Context, tx *gorm.DB, name, value string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	row := types.Setting{Name: name, Value: value}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error; err != nil {
		return err
	}
	return nil
}
