package courses

import (
	"context"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error)
	GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error)
	// GetByIDForAuthor bakes the ownership filter into the query: a course
	// owned by someone else reads as not found.
	GetByIDForAuthor(ctx context.Context, tx *gorm.DB, courseID, authorID uuid.UUID) (*types.Course, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error)
	CountUnreleasedByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) (int64, error)
	// UpdateFieldsByRevision compares-and-swaps on the revision column.
	// Returns the number of rows updated (0 means a concurrent writer won).
	UpdateFieldsByRevision(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, expectedRevision int, updates map[string]any) (int64, error)
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.Course) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courses) == 0 {
		return []*types.Course{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ?", courseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *courseRepo) GetByIDForAuthor(ctx context.Context, tx *gorm.DB, courseID, authorID uuid.UUID) (*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Course
	if err := transaction.WithContext(ctx).
		Where("id = ? AND author_id = ?", courseID, authorID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Course, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) CountUnreleasedByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("author_id = ? AND live_version IS NULL", authorID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *courseRepo) UpdateFieldsByRevision(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, expectedRevision int, updates map[string]any) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ? AND revision = ?", courseID, expectedRevision).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *courseRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", courseIDs).
		Delete(&types.Course{}).Error; err != nil {
		return err
	}
	return nil
}
