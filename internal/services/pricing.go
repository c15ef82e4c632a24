package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	domainpricing "github.com/skillforge/skillforge-backend/internal/domain/pricing"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"github.com/skillforge/skillforge-backend/internal/pricing"
)

// PricingService owns pricing policy CRUD plus the checkout-facing quote and
// discount-code checks, delegating resolution rules to pricing.Resolver.
type PricingService struct {
	courses  repos.CourseRepo
	policies repos.PricingPolicyRepo
	resolver *pricing.Resolver
	log      *logger.Logger
}

func NewPricingService(r repos.All, baseLog *logger.Logger) *PricingService {
	resolver := pricing.NewResolver(
		policySource{policies: r.Policies},
		settingSource{settings: r.Settings},
		baseLog,
	)
	return &PricingService{
		courses:  r.Courses,
		policies: r.Policies,
		resolver: resolver,
		log:      baseLog.With("service", "PricingService"),
	}
}

// policySource adapts the policy repo to the resolver's read interface.
type policySource struct {
	policies repos.PricingPolicyRepo
}

func (s policySource) ActiveForCourse(ctx context.Context, courseID uuid.UUID, now time.Time) ([]*types.PricingPolicy, error) {
	return s.policies.ListActiveTargetingCourse(ctx, nil, courseID, now)
}

func (s policySource) ActiveByCodes(ctx context.Context, codes []string, now time.Time) ([]*types.PricingPolicy, error) {
	return s.policies.ListActiveByCodes(ctx, nil, codes, now)
}

// settingSource adapts the settings repo to the resolver's base price read.
type settingSource struct {
	settings repos.SettingRepo
}

func (s settingSource) CourseBasePrice(ctx context.Context) (int64, error) {
	row, err := s.settings.GetByName(ctx, nil, types.SettingCourseBasePrice)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return pricing.ParseBasePrice(row.Value)
}

// CreatePolicy validates and stores a new policy. Creating an active override
// deactivates prior active overrides in the same course+version scope;
// discount codes must be unique per targeted course.
func (s *PricingService) CreatePolicy(ctx context.Context, creatorID uuid.UUID, p *types.PricingPolicy, now time.Time) (*types.PricingPolicy, error) {
	const op = "pricing.create_policy"
	if p == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "policy is required", nil)
	}
	if err := validatePolicy(op, p, now); err != nil {
		return nil, err
	}
	p.ID = uuid.Nil
	p.Code = strings.TrimSpace(p.Code)
	p.CreatedBy = creatorID

	if p.Type == types.PolicyTypeDiscount && p.Code != "" {
		for _, courseID := range p.Courses {
			exists, err := s.policies.ExistsDiscountCode(ctx, nil, courseID, p.Code)
			if err != nil {
				return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
			}
			if exists {
				return nil, domainagg.NewError(domainagg.CodeConflict, op,
					fmt.Sprintf("discount code %q already exists for course %s", p.Code, courseID), nil)
			}
		}
	}

	if p.Type != types.PolicyTypeDiscount && p.IsActive {
		if err := s.deactivateCompetingOverrides(ctx, op, p, now); err != nil {
			return nil, err
		}
	}

	created, err := s.policies.Create(ctx, nil, []*types.PricingPolicy{p})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	s.log.Info("Pricing policy created", "policy_id", created[0].ID, "type", p.Type)
	return created[0], nil
}

// deactivateCompetingOverrides retires any active override whose scope
// overlaps the new one, so at most one override is live per course+version.
func (s *PricingService) deactivateCompetingOverrides(ctx context.Context, op string, p *types.PricingPolicy, now time.Time) error {
	retire := map[uuid.UUID]bool{}
	for _, courseID := range p.Courses {
		active, err := s.policies.ListActiveTargetingCourse(ctx, nil, courseID, now)
		if err != nil {
			return domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		for _, existing := range active {
			if existing == nil || existing.Type == types.PolicyTypeDiscount {
				continue
			}
			if !overlapsVersions(p, existing) {
				continue
			}
			retire[existing.ID] = true
		}
	}
	if len(retire) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(retire))
	for id := range retire {
		ids = append(ids, id)
	}
	if err := s.policies.DeactivateByIDs(ctx, nil, ids, now); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	s.log.Info("Deactivated competing overrides", "count", len(ids))
	return nil
}

func overlapsVersions(a, b *types.PricingPolicy) bool {
	if a.CourseTargetMode == types.TargetModeCourse || b.CourseTargetMode == types.TargetModeCourse {
		return true
	}
	for _, va := range a.TargetCourseVersion {
		for _, vb := range b.TargetCourseVersion {
			if va == vb {
				return true
			}
		}
	}
	return false
}

func validatePolicy(op string, p *types.PricingPolicy, now time.Time) error {
	switch p.Type {
	case types.PolicyTypeDiscount, types.PolicyTypeOverride, types.PolicyTypeSmartPrice:
	default:
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown policy type %q", p.Type), nil)
	}
	switch p.ValueType {
	case types.ValueTypeFixed, types.ValueTypePercentage:
	default:
		return domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown value type %q", p.ValueType), nil)
	}
	if p.Value <= 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, "policy value must be positive", nil)
	}
	if p.ValueType == types.ValueTypePercentage && p.Value > 100 {
		return domainagg.NewError(domainagg.CodeValidation, op, "percentage value cannot exceed 100", nil)
	}
	if len(p.Courses) == 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, "policy must target at least one course", nil)
	}
	if !p.ExpiryDate.After(p.StartDate) {
		return domainagg.NewError(domainagg.CodeValidation, op, "expiry date must be after start date", nil)
	}
	if p.ExpiryDate.After(now.AddDate(0, domainpricing.MaxExpiryMonthsAhead, 0)) {
		return domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("expiry date cannot be more than %d months ahead", domainpricing.MaxExpiryMonthsAhead), nil)
	}
	return nil
}

// UpdatePolicy applies field updates; only the creator may touch a policy.
func (s *PricingService) UpdatePolicy(ctx context.Context, userID, policyID uuid.UUID, updates map[string]any, now time.Time) error {
	const op = "pricing.update_policy"
	p, err := s.getPolicy(ctx, op, policyID)
	if err != nil {
		return err
	}
	if p.CreatedBy != userID {
		return domainagg.NewError(domainagg.CodeForbidden, op, "only the policy creator can update it", nil)
	}
	if raw, ok := updates["expiry_date"]; ok {
		expiry, ok := raw.(time.Time)
		if !ok {
			return domainagg.NewError(domainagg.CodeValidation, op, "expiry_date must be a timestamp", nil)
		}
		if expiry.After(now.AddDate(0, domainpricing.MaxExpiryMonthsAhead, 0)) {
			return domainagg.NewError(domainagg.CodeValidation, op,
				fmt.Sprintf("expiry date cannot be more than %d months ahead", domainpricing.MaxExpiryMonthsAhead), nil)
		}
	}
	updates["updated_at"] = now
	if err := s.policies.UpdateFields(ctx, nil, policyID, updates); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return nil
}

// DeletePolicy removes a policy; only the creator may delete it.
func (s *PricingService) DeletePolicy(ctx context.Context, userID, policyID uuid.UUID) error {
	const op = "pricing.delete_policy"
	p, err := s.getPolicy(ctx, op, policyID)
	if err != nil {
		return err
	}
	if p.CreatedBy != userID {
		return domainagg.NewError(domainagg.CodeForbidden, op, "only the policy creator can delete it", nil)
	}
	if err := s.policies.DeleteByIDs(ctx, nil, []uuid.UUID{policyID}); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return nil
}

func (s *PricingService) getPolicy(ctx context.Context, op string, policyID uuid.UUID) (*types.PricingPolicy, error) {
	p, err := s.policies.GetByID(ctx, nil, policyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "pricing policy not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return p, nil
}

// ListForCourse returns every policy targeting the course, active or not.
func (s *PricingService) ListForCourse(ctx context.Context, courseID uuid.UUID) ([]*types.PricingPolicy, error) {
	const op = "pricing.list_for_course"
	rows, err := s.policies.ListTargetingCourse(ctx, nil, courseID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

// ListByCreator returns the caller's own policies.
func (s *PricingService) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*types.PricingPolicy, error) {
	const op = "pricing.list_by_creator"
	rows, err := s.policies.ListByCreator(ctx, nil, creatorID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rows, nil
}

// Quote resolves the effective checkout price for a course version.
func (s *PricingService) Quote(ctx context.Context, courseID uuid.UUID, version int, userID uuid.UUID, codes []string, isGift bool, now time.Time) (pricing.Quote, error) {
	const op = "pricing.quote"
	c, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pricing.Quote{}, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
		}
		return pricing.Quote{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return s.resolver.Resolve(ctx, pricing.QuoteInput{
		Course:  c,
		Version: version,
		UserID:  userID,
		Codes:   codes,
		IsGift:  isGift,
		Now:     now,
	})
}

// CheckDiscountCode validates a supplied code against the buyer and course
// scope without resolving a full quote.
func (s *PricingService) CheckDiscountCode(ctx context.Context, code string, courseID uuid.UUID, version int, userID uuid.UUID, isGift bool, now time.Time) (*types.PricingPolicy, error) {
	const op = "pricing.check_discount_code"
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "discount code is required", nil)
	}
	c, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	candidates, err := s.policies.ListActiveByCodes(ctx, nil, []string{code}, now)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	in := pricing.QuoteInput{Course: c, Version: version, UserID: userID, IsGift: isGift, Now: now}
	var lastErr error
	for _, p := range candidates {
		if p == nil || p.IsAutoApplicable {
			continue
		}
		if err := s.resolver.CheckDiscount(p, in); err != nil {
			lastErr = err
			continue
		}
		return p, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domainagg.NewError(domainagg.CodeNotFound, op, "discount not found", nil)
}
