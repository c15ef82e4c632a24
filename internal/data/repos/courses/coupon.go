package courses

import (
	"context"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CouponRepo interface {
	Create(ctx context.Context, tx *gorm.DB, coupons []*types.Coupon) ([]*types.Coupon, error)
	GetByID(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) (*types.Coupon, error)
	GetByIDForCourse(ctx context.Context, tx *gorm.DB, couponID, courseID uuid.UUID) (*types.Coupon, error)
	ExistsByCode(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, code string) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, couponID uuid.UUID, updates map[string]any) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, couponIDs []uuid.UUID) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error
}

type couponRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCouponRepo(db *gorm.DB, baseLog *logger.Logger) CouponRepo {
	repoLog := baseLog.With("repo", "CouponRepo")
	return &couponRepo{db: db, log: repoLog}
}

func (r *couponRepo) Create(ctx context.Context, tx *gorm.DB, coupons []*types.Coupon) ([]*types.Coupon, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(coupons) == 0 {
		return []*types.Coupon{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

func (r *couponRepo) GetByID(ctx context.Context, tx *gorm.DB, couponID uuid.UUID) (*types.Coupon, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Coupon
	if err := transaction.WithContext(ctx).
		Where("id = ?", couponID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *couponRepo) GetByIDForCourse(ctx context.Context, tx *gorm.DB, couponID, courseID uuid.UUID) (*types.Coupon, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Coupon
	if err := transaction.WithContext(ctx).
		Where("id = ? AND course_id = ?", couponID, courseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *couponRepo) ExistsByCode(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, code string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Coupon{}).
		Where("course_id = ? AND code = ?", courseID, code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *couponRepo) UpdateFields(ctx context.Context, tx *gorm.DB, couponID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.Coupon{}).
		Where("id = ?", couponID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *couponRepo) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&types.Coupon{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *couponRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, couponIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(couponIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", couponIDs).
		Delete(&types.Coupon{}).Error; err != nil {
		return err
	}
	return nil
}
