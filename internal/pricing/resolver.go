// Package pricing resolves the effective checkout price of a course version
// from its base price, smart-price overrides, and discount policies.
package pricing

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
)

// PolicySource supplies candidate policies, most recently updated first.
type PolicySource interface {
	ActiveForCourse(ctx context.Context, courseID uuid.UUID, now time.Time) ([]*types.PricingPolicy, error)
	ActiveByCodes(ctx context.Context, codes []string, now time.Time) ([]*types.PricingPolicy, error)
}

// SettingSource supplies platform pricing knobs.
type SettingSource interface {
	// CourseBasePrice returns the platform floor price in cents.
	CourseBasePrice(ctx context.Context) (int64, error)
}

// QuoteInput addresses one (course, version, buyer) pricing decision.
type QuoteInput struct {
	Course  *types.Course
	Version int
	UserID  uuid.UUID
	Codes   []string
	IsGift  bool
	Now     time.Time
}

// Quote is the resolved checkout price. All amounts are cents. SalePrice is
// set when the original price should still be displayed next to the override.
type Quote struct {
	Price     int64
	SalePrice *int64
	Discount  int64
	// AppliedOverride and AppliedDiscount identify the winning policies.
	AppliedOverride *uuid.UUID
	AppliedDiscount *uuid.UUID
}

type Resolver struct {
	policies PolicySource
	settings SettingSource
	log      *logger.Logger
}

func NewResolver(policies PolicySource, settings SettingSource, baseLog *logger.Logger) *Resolver {
	return &Resolver{
		policies: policies,
		settings: settings,
		log:      baseLog.With("component", "PricingResolver"),
	}
}

// valueCents converts a policy's fixed value (whole currency units) to cents.
func valueCents(value float64) int64 {
	return int64(math.Round(value * 100))
}

// ParseBasePrice reads the courseBasePrice setting value (whole currency
// units) into cents.
func ParseBasePrice(raw string) (int64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed course base price %q: %w", raw, err)
	}
	return valueCents(v), nil
}

// Resolve computes the effective price for the addressed version.
//
// Smart-priced versions take the most recently updated qualifying override;
// fixed-priced versions keep their authored price. At most one discount
// applies, chosen by priority: explicit codes, then platform auto discounts,
// then author auto discounts, each tie-broken by most recent update.
func (r *Resolver) Resolve(ctx context.Context, in QuoteInput) (Quote, error) {
	const op = "pricing.resolve"
	if in.Course == nil {
		return Quote{}, domainagg.NewError(domainagg.CodeValidation, op, "course is required", nil)
	}
	v := in.Course.Version(in.Version)
	if v == nil {
		return Quote{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("course has no version %d", in.Version), nil)
	}

	active, err := r.policies.ActiveForCourse(ctx, in.Course.ID, in.Now)
	if err != nil {
		return Quote{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	q := Quote{Price: v.Price}
	var override *types.PricingPolicy
	if v.PriceType == course.PriceTypeSmart {
		base, err := r.settings.CourseBasePrice(ctx)
		if err != nil {
			return Quote{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		override = r.pickOverride(active, in, base)
		if override != nil {
			oc := valueCents(override.Value)
			q.AppliedOverride = &override.ID
			if override.ShowOriginalPrice {
				q.SalePrice = &oc
			} else {
				q.Price = oc
			}
		} else {
			floor := v.MinPrice
			if base > floor {
				floor = base
			}
			q.Price = floor
		}
	} else {
		// Fixed-price versions can still carry a display override.
		override = r.pickDisplayOverride(active, in)
		if override != nil {
			q.AppliedOverride = &override.ID
		}
	}

	discount, err := r.pickDiscount(ctx, active, override, in)
	if err != nil {
		return Quote{}, err
	}
	if discount != nil {
		effective := q.Price
		if q.SalePrice != nil {
			effective = *q.SalePrice
		}
		var cut int64
		switch discount.ValueType {
		case types.ValueTypePercentage:
			cut = int64(math.Round(discount.Value / 100 * float64(effective)))
		default:
			cut = valueCents(discount.Value)
		}
		if cut > effective {
			cut = effective
		}
		q.Discount = cut
		q.AppliedDiscount = &discount.ID
	}
	return q, nil
}

// pickOverride selects the smart-price override: the most recently updated
// active non-discount policy in scope, not created by the course author, whose
// value clears both the version floor and the platform base price.
func (r *Resolver) pickOverride(active []*types.PricingPolicy, in QuoteInput, base int64) *types.PricingPolicy {
	v := in.Course.Version(in.Version)
	floor := v.MinPrice
	if base > floor {
		floor = base
	}
	for _, p := range active {
		if p == nil || p.Type == types.PolicyTypeDiscount {
			continue
		}
		if p.CreatedBy == in.Course.AuthorID {
			continue
		}
		if !p.TargetsCourse(in.Course.ID) || !p.TargetsVersion(in.Version) {
			continue
		}
		if valueCents(p.Value) > floor {
			return p
		}
	}
	return nil
}

// pickDisplayOverride selects an override for a fixed-price version; it only
// contributes discount gating flags and display hints, never the price itself.
func (r *Resolver) pickDisplayOverride(active []*types.PricingPolicy, in QuoteInput) *types.PricingPolicy {
	for _, p := range active {
		if p == nil || p.Type != types.PolicyTypeOverride {
			continue
		}
		if !p.TargetsCourse(in.Course.ID) || !p.TargetsVersion(in.Version) {
			continue
		}
		return p
	}
	return nil
}

func (r *Resolver) pickDiscount(ctx context.Context, active []*types.PricingPolicy, override *types.PricingPolicy, in QuoteInput) (*types.PricingPolicy, error) {
	const op = "pricing.pick_discount"

	// Priority 1: explicitly supplied codes.
	if len(in.Codes) > 0 {
		byCode, err := r.policies.ActiveByCodes(ctx, in.Codes, in.Now)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		for _, p := range byCode {
			if p == nil || p.IsAutoApplicable {
				continue
			}
			if err := r.CheckDiscount(p, in); err == nil {
				return p, nil
			}
		}
	}

	// Priority 2: auto-applicable platform discounts, unless the active
	// override opts the course out of them.
	allowGlobal := override == nil || override.AllowGlobalDiscounts
	allowAuthor := override == nil || override.AllowCourseDiscounts
	var author *types.PricingPolicy
	for _, p := range active {
		if p == nil || p.Type != types.PolicyTypeDiscount || !p.IsAutoApplicable {
			continue
		}
		if r.CheckDiscount(p, in) != nil {
			continue
		}
		if p.CreatedBy != in.Course.AuthorID {
			if allowGlobal {
				return p, nil
			}
			continue
		}
		if author == nil {
			author = p
		}
	}

	// Priority 3: the author's own auto discount.
	if allowAuthor && author != nil {
		return author, nil
	}
	return nil, nil
}

// CheckDiscount validates a discount policy against the buyer and course
// scope. A nil return means the discount is redeemable.
func (r *Resolver) CheckDiscount(p *types.PricingPolicy, in QuoteInput) error {
	const op = "pricing.check_discount"
	if p == nil || p.Type != types.PolicyTypeDiscount {
		return domainagg.NewError(domainagg.CodeNotFound, op, "discount not found", nil)
	}
	if !p.ActiveAt(in.Now) {
		return domainagg.NewError(domainagg.CodeValidation, op, "discount is not active", nil)
	}
	if !p.TargetsCourse(in.Course.ID) || !p.TargetsVersion(in.Version) {
		return domainagg.NewError(domainagg.CodeValidation, op, "discount does not apply to this course", nil)
	}
	if !p.TargetsUser(in.UserID) {
		return domainagg.NewError(domainagg.CodeForbidden, op, "discount does not apply to this user", nil)
	}
	if in.IsGift && !p.AllowDiscountsForGifts {
		return domainagg.NewError(domainagg.CodeValidation, op, "discount cannot be applied to gifts", nil)
	}
	return nil
}
