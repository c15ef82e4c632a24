package review

import (
	"context"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/domain/review"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ReviewRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, records []*types.ReviewRecord) ([]*types.ReviewRecord, error)
	GetByID(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) (*types.ReviewRecord, error)
	// LatestForCourseAuthor returns the most recent record for the pair,
	// optionally pinned to a version. gorm.ErrRecordNotFound when none exists.
	LatestForCourseAuthor(ctx context.Context, tx *gorm.DB, courseID, authorID uuid.UUID, version *int) (*types.ReviewRecord, error)
	ListActive(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.ReviewRecord, int64, error)
	ListByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) ([]*types.ReviewRecord, error)
	// ListNonTerminal feeds the startup reconciler.
	ListNonTerminal(ctx context.Context, tx *gorm.DB) ([]*types.ReviewRecord, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, updates map[string]any) error
}

type reviewRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewRecordRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRecordRepo {
	repoLog := baseLog.With("repo", "ReviewRecordRepo")
	return &reviewRecordRepo{db: db, log: repoLog}
}

func (r *reviewRecordRepo) Create(ctx context.Context, tx *gorm.DB, records []*types.ReviewRecord) ([]*types.ReviewRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*types.ReviewRecord{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *reviewRecordRepo) GetByID(ctx context.Context, tx *gorm.DB, recordID uuid.UUID) (*types.ReviewRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ReviewRecord
	if err := transaction.WithContext(ctx).
		Where("id = ?", recordID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *reviewRecordRepo) LatestForCourseAuthor(ctx context.Context, tx *gorm.DB, courseID, authorID uuid.UUID, version *int) (*types.ReviewRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	query := transaction.WithContext(ctx).
		Where("course_id = ? AND author_id = ?", courseID, authorID)
	if version != nil {
		query = query.Where("version = ?", *version)
	}

	var result types.ReviewRecord
	if err := query.Order("created_at DESC").First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *reviewRecordRepo) ListActive(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.ReviewRecord, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	base := transaction.WithContext(ctx).
		Model(&types.ReviewRecord{}).
		Where("status IN ?", []string{review.StatusPendingReview, review.StatusInReview})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Session(&gorm.Session{}).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var results []*types.ReviewRecord
	if err := query.Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *reviewRecordRepo) ListByAuthor(ctx context.Context, tx *gorm.DB, authorID uuid.UUID) ([]*types.ReviewRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ReviewRecord
	if err := transaction.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewRecordRepo) ListNonTerminal(ctx context.Context, tx *gorm.DB) ([]*types.ReviewRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ReviewRecord
	if err := transaction.WithContext(ctx).
		Where("status NOT IN ?", []string{review.StatusRejected, review.StatusReleased, review.StatusCancelled}).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewRecordRepo) UpdateFields(ctx context.Context, tx *gorm.DB, recordID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.ReviewRecord{}).
		Where("id = ?", recordID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}
