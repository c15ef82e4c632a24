package courses

import (
	"context"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ResourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, resources []*types.Resource) ([]*types.Resource, error)
	GetByID(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) (*types.Resource, error)
	GetByIDForCourse(ctx context.Context, tx *gorm.DB, resourceID, courseID uuid.UUID) (*types.Resource, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) ([]*types.Resource, error)
	DeleteByIDs(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type resourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	repoLog := baseLog.With("repo", "ResourceRepo")
	return &resourceRepo{db: db, log: repoLog}
}

func (r *resourceRepo) Create(ctx context.Context, tx *gorm.DB, resources []*types.Resource) ([]*types.Resource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(resources) == 0 {
		return []*types.Resource{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&resources).Error; err != nil {
		return nil, err
	}
	return resources, nil
}

func (r *resourceRepo) GetByID(ctx context.Context, tx *gorm.DB, resourceID uuid.UUID) (*types.Resource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Resource
	if err := transaction.WithContext(ctx).
		Where("id = ?", resourceID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resourceRepo) GetByIDForCourse(ctx context.Context, tx *gorm.DB, resourceID, courseID uuid.UUID) (*types.Resource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Resource
	if err := transaction.WithContext(ctx).
		Where("id = ? AND course_id = ?", resourceID, courseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resourceRepo) GetByIDs(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) ([]*types.Resource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Resource
	if len(resourceIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", resourceIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *resourceRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.Resource{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *resourceRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, resourceIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(resourceIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", resourceIDs).
		Delete(&types.Resource{}).Error; err != nil {
		return err
	}
	return nil
}
