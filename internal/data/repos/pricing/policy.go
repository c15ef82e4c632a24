package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type PricingPolicyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, policies []*types.PricingPolicy) ([]*types.PricingPolicy, error)
	GetByID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) (*types.PricingPolicy, error)
	// ListTargetingCourse returns policies whose courses array contains the
	// course. Scope refinement (versions, users, exclusions) happens in Go
	// because the arrays are small and the rules are branchy.
	ListTargetingCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.PricingPolicy, error)
	// ListActiveTargetingCourse narrows ListTargetingCourse to active policies
	// whose window contains now, most recently updated first.
	ListActiveTargetingCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, now time.Time) ([]*types.PricingPolicy, error)
	ListActiveByCodes(ctx context.Context, tx *gorm.DB, codes []string, now time.Time) ([]*types.PricingPolicy, error)
	ListByCreator(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID) ([]*types.PricingPolicy, error)
	ExistsDiscountCode(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, code string) (bool, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, updates map[string]any) error
	DeactivateByIDs(ctx context.Context, tx *gorm.DB, policyIDs []uuid.UUID, now time.Time) error
	DeleteByIDs(ctx context.Context, tx *gorm.DB, policyIDs []uuid.UUID) error
}

type pricingPolicyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPricingPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PricingPolicyRepo {
	repoLog := baseLog.With("repo", "PricingPolicyRepo")
	return &pricingPolicyRepo{db: db, log: repoLog}
}

func containsCourse(courseID uuid.UUID) (string, any) {
	return "courses @> ?::jsonb", fmt.Sprintf("[%q]", courseID.String())
}

func (r *pricingPolicyRepo) Create(ctx context.Context, tx *gorm.DB, policies []*types.PricingPolicy) ([]*types.PricingPolicy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(policies) == 0 {
		return []*types.PricingPolicy{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

func (r *pricingPolicyRepo) GetByID(ctx context.Context, tx *gorm.DB, policyID uuid.UUID) (*types.PricingPolicy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.PricingPolicy
	if err := transaction.WithContext(ctx).
		Where("id = ?", policyID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *pricingPolicyRepo) ListTargetingCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.PricingPolicy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	cond, arg := containsCourse(courseID)
	var results []*types.PricingPolicy
	if err := transaction.WithContext(ctx).
		Where(cond, arg).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pricingPolicyRepo) ListActiveTargetingCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, now time.Time) ([]*types.PricingPolicy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	cond, arg := containsCourse(courseID)
	var results []*types.PricingPolicy
	if err := transaction.WithContext(ctx).
		Where(cond, arg).
		Where("is_active = ?", true).
		Where("start_date <= ? AND expiry_date >= ?", now, now).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pricingPolicyRepo) ListActiveByCodes(ctx context.Context, tx *gorm.DB, codes []string, now time.Time) ([]*types.PricingPolicy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PricingPolicy
	if len(codes) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("code IN ?", codes).
		Where("is_active = ?", true).
		Where("start_date <= ? AND expiry_date >= ?", now, now).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pricingPolicyRepo) ListByCreator(ctx context.Context, tx *gorm.DB, creatorID uuid.UUID) ([]*types.PricingPolicy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.PricingPolicy
	if err := transaction.WithContext(ctx).
		Where("created_by = ?", creatorID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *pricingPolicyRepo) ExistsDiscountCode(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, code string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	cond, arg := containsCourse(courseID)
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.PricingPolicy{}).
		Where("type = ? AND code = ?", types.PolicyTypeDiscount, code).
		Where(cond, arg).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *pricingPolicyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, policyID uuid.UUID, updates map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.PricingPolicy{}).
		Where("id = ?", policyID).
		Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

func (r *pricingPolicyRepo) DeactivateByIDs(ctx context.Context, tx *gorm.DB, policyIDs []uuid.UUID, now time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(policyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Model(&types.PricingPolicy{}).
		Where("id IN ?", policyIDs).
		Updates(map[string]any{"is_active": false, "updated_at": now}).Error; err != nil {
		return err
	}
	return nil
}

func (r *pricingPolicyRepo) DeleteByIDs(ctx context.Context, tx *gorm.DB, policyIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(policyIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", policyIDs).
		Delete(&types.PricingPolicy{}).Error; err != nil {
		return err
	}
	return nil
}
