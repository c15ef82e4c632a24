package courses

import (
	"context"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type LectureContentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, contents []*types.LectureContent) ([]*types.LectureContent, error)
	GetByID(ctx context.Context, tx *gorm.DB, contentID uuid.UUID) (*types.LectureContent, error)
	GetByIDForCourse(ctx context.Context, tx *gorm.DB, contentID, courseID uuid.UUID) (*types.LectureContent, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, contentIDs []uuid.UUID) ([]*types.LectureContent, error)
	GetByName(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, name string) (*types.LectureContent, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.LectureContent, error)
	// ListVideosWithoutRenditions returns video contents that still need
	// transcoding for the given IDs.
	ListVideosWithoutRenditions(ctx context.Context, tx *gorm.DB, contentIDs []uuid.UUID) ([]*types.LectureContent, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, contentID uuid.UUID, updates map[string]any) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, contentIDs []uuid.UUID) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type lectureContentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLectureContentRepo(db *gorm.DB, baseLog *logger.Logger) LectureContentRepo {
	repoLog := baseLog.With("repo", "LectureContentRepo")
	return &lectureContentRepo{db: db, log: repoLog}
}

func (r *lectureContentRepo) Create(ctx context.Context, tx *gorm.DB, contents []*types.LectureContent) ([]*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(contents) == 0 {
		return []*types.LectureContent{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}

func (r *lectureContentRepo) GetByID(ctx context.Context, tx *gorm.DB, contentID uuid.UUID) (*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LectureContent
	if err := transaction.WithContext(ctx).
		Where("id = ?", contentID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lectureContentRepo) GetByIDForCourse(ctx context.Context, tx *gorm.DB, contentID, courseID uuid.UUID) (*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LectureContent
	if err := transaction.WithContext(ctx).
		Where("id = ? AND course_id = ?", contentID, courseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lectureContentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, contentIDs []uuid.UUID) ([]*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LectureContent
	if len(contentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", contentIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lectureContentRepo) GetByName(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, name string) (*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.LectureContent
	if err := transaction.WithContext(ctx).
		Where("course_id = ? AND name = ?", courseID, name).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *lectureContentRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LectureContent
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lectureContentRepo) ListVideosWithoutRenditions(ctx context.Context, tx *gorm.DB, contentIDs []uuid.UUID) ([]*types.LectureContent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.LectureContent
	if len(contentIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ? AND kind = ?", contentIDs, types.ContentKindVideo).
		Where("renditions IS NULL OR renditions = '[]'::jsonb").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lectureContentRepo) UpdateFields(ctx context.Context, tx *gorm.DB, contentID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.LectureContent{}).
		Where("id = ?", contentID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *lectureContentRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.LectureContent{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *lectureContentRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, contentIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(contentIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", contentIDs).
		Delete(&types.LectureContent{}).Error; err != nil {
		return err
	}
	return nil
}
