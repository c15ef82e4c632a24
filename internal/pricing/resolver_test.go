package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/datatypes"
)

type fakePolicies struct {
	policies []*types.PricingPolicy
}

func (f *fakePolicies) ActiveForCourse(_ context.Context, courseID uuid.UUID, now time.Time) ([]*types.PricingPolicy, error) {
	var out []*types.PricingPolicy
	for _, p := range f.policies {
		if p.ActiveAt(now) && p.TargetsCourse(courseID) {
			out = append(out, p)
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func (f *fakePolicies) ActiveByCodes(_ context.Context, codes []string, now time.Time) ([]*types.PricingPolicy, error) {
	var out []*types.PricingPolicy
	for _, p := range f.policies {
		if !p.ActiveAt(now) {
			continue
		}
		for _, c := range codes {
			if p.Code == c {
				out = append(out, p)
			}
		}
	}
	sortByUpdatedDesc(out)
	return out, nil
}

func sortByUpdatedDesc(ps []*types.PricingPolicy) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && ps[j].UpdatedAt.After(ps[j-1].UpdatedAt); j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}

type fakeSettings struct {
	base int64
}

func (f *fakeSettings) CourseBasePrice(context.Context) (int64, error) { return f.base, nil }

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func testCourse(authorID uuid.UUID, priceType string, price, minPrice int64) *types.Course {
	return &types.Course{
		ID:       uuid.New(),
		AuthorID: authorID,
		Versions: datatypes.NewJSONType(course.VersionMap{
			1: {Version: 1, Status: course.VersionOnline, Price: price, MinPrice: minPrice, PriceType: priceType},
		}),
	}
}

func policyFor(c *types.Course, typ string, value float64, createdBy uuid.UUID, now time.Time) *types.PricingPolicy {
	return &types.PricingPolicy{
		ID:               uuid.New(),
		Type:             typ,
		ValueType:        types.ValueTypeFixed,
		Value:            value,
		Courses:          datatypes.NewJSONSlice([]uuid.UUID{c.ID}),
		CourseTargetMode: types.TargetModeCourse,
		IsActive:         true,
		StartDate:        now.Add(-time.Hour),
		ExpiryDate:       now.Add(time.Hour),
		CreatedBy:        createdBy,
		UpdatedAt:        now,
	}
}

func TestResolveFixedPriceNoPolicies(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeFixed, 10000, 0)
	r := NewResolver(&fakePolicies{}, &fakeSettings{base: 999}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.Price != 10000 || q.SalePrice != nil || q.Discount != 0 {
		t.Fatalf("expected plain fixed price, got %+v", q)
	}
}

func TestResolveSmartPriceOverride(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	admin := uuid.New()
	c := testCourse(author, course.PriceTypeSmart, 0, 2000)

	override := policyFor(c, types.PolicyTypeSmartPrice, 50, admin, now)
	r := NewResolver(&fakePolicies{policies: []*types.PricingPolicy{override}}, &fakeSettings{base: 1500}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.Price != 5000 {
		t.Fatalf("expected override price 5000, got %d", q.Price)
	}
	if q.AppliedOverride == nil || *q.AppliedOverride != override.ID {
		t.Fatalf("expected override applied")
	}
}

func TestResolveSmartPriceShowOriginal(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeSmart, 9900, 2000)

	override := policyFor(c, types.PolicyTypeSmartPrice, 50, uuid.New(), now)
	override.ShowOriginalPrice = true
	r := NewResolver(&fakePolicies{policies: []*types.PricingPolicy{override}}, &fakeSettings{base: 1500}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.Price != 9900 {
		t.Fatalf("expected original price kept, got %d", q.Price)
	}
	if q.SalePrice == nil || *q.SalePrice != 5000 {
		t.Fatalf("expected sale price 5000, got %v", q.SalePrice)
	}
}

func TestResolveSmartPriceFloorsAtBase(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeSmart, 0, 1000)

	// Override below the floor does not qualify.
	weak := policyFor(c, types.PolicyTypeSmartPrice, 5, uuid.New(), now)
	r := NewResolver(&fakePolicies{policies: []*types.PricingPolicy{weak}}, &fakeSettings{base: 1500}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.Price != 1500 {
		t.Fatalf("expected base price floor 1500, got %d", q.Price)
	}
	if q.AppliedOverride != nil {
		t.Fatalf("expected no override applied")
	}
}

func TestResolveAuthorOverrideIgnoredForSmartPrice(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeSmart, 0, 1000)

	own := policyFor(c, types.PolicyTypeSmartPrice, 80, author, now)
	r := NewResolver(&fakePolicies{policies: []*types.PricingPolicy{own}}, &fakeSettings{base: 1500}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.AppliedOverride != nil {
		t.Fatalf("author-created override must not drive smart pricing")
	}
}

func TestResolvePercentageDiscount(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeFixed, 10000, 0)

	disc := policyFor(c, types.PolicyTypeDiscount, 20, uuid.New(), now)
	disc.ValueType = types.ValueTypePercentage
	disc.IsAutoApplicable = true
	r := NewResolver(&fakePolicies{policies: []*types.PricingPolicy{disc}}, &fakeSettings{}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.Discount != 2000 {
		t.Fatalf("expected 20%% of 10000 = 2000, got %d", q.Discount)
	}
}

func TestResolveDiscountPriority(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	buyer := uuid.New()
	c := testCourse(author, course.PriceTypeFixed, 10000, 0)

	coded := policyFor(c, types.PolicyTypeDiscount, 30, uuid.New(), now.Add(-time.Minute))
	coded.Code = "SAVE30"
	platform := policyFor(c, types.PolicyTypeDiscount, 20, uuid.New(), now)
	platform.IsAutoApplicable = true
	own := policyFor(c, types.PolicyTypeDiscount, 10, author, now)
	own.IsAutoApplicable = true

	src := &fakePolicies{policies: []*types.PricingPolicy{coded, platform, own}}
	r := NewResolver(src, &fakeSettings{}, testLogger(t))

	// With the code supplied, the coded discount wins over both autos.
	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: buyer, Codes: []string{"SAVE30"}, Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.AppliedDiscount == nil || *q.AppliedDiscount != coded.ID {
		t.Fatalf("expected coded discount to win")
	}

	// Without the code, the platform auto discount beats the author's.
	q, err = r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: buyer, Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.AppliedDiscount == nil || *q.AppliedDiscount != platform.ID {
		t.Fatalf("expected platform auto discount to win")
	}
}

func TestResolveOverrideGatesDiscounts(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeSmart, 0, 1000)

	override := policyFor(c, types.PolicyTypeSmartPrice, 50, uuid.New(), now)
	override.AllowGlobalDiscounts = false
	override.AllowCourseDiscounts = true
	platform := policyFor(c, types.PolicyTypeDiscount, 20, uuid.New(), now)
	platform.IsAutoApplicable = true
	own := policyFor(c, types.PolicyTypeDiscount, 10, author, now.Add(-time.Minute))
	own.IsAutoApplicable = true

	src := &fakePolicies{policies: []*types.PricingPolicy{override, platform, own}}
	r := NewResolver(src, &fakeSettings{base: 1500}, testLogger(t))

	q, err := r.Resolve(context.Background(), QuoteInput{Course: c, Version: 1, UserID: uuid.New(), Now: now})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if q.AppliedDiscount == nil || *q.AppliedDiscount != own.ID {
		t.Fatalf("expected author discount once globals are gated off, got %+v", q)
	}
}

func TestCheckDiscountGiftGate(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	c := testCourse(author, course.PriceTypeFixed, 10000, 0)

	disc := policyFor(c, types.PolicyTypeDiscount, 20, uuid.New(), now)
	r := NewResolver(&fakePolicies{}, &fakeSettings{}, testLogger(t))

	in := QuoteInput{Course: c, Version: 1, UserID: uuid.New(), IsGift: true, Now: now}
	if err := r.CheckDiscount(disc, in); err == nil {
		t.Fatalf("expected gift gate to reject the discount")
	}
	disc.AllowDiscountsForGifts = true
	if err := r.CheckDiscount(disc, in); err != nil {
		t.Fatalf("expected gift-enabled discount to pass: %v", err)
	}
}

func TestCheckDiscountUserScope(t *testing.T) {
	now := time.Now().UTC()
	author := uuid.New()
	buyer := uuid.New()
	other := uuid.New()
	c := testCourse(author, course.PriceTypeFixed, 10000, 0)

	disc := policyFor(c, types.PolicyTypeDiscount, 20, uuid.New(), now)
	disc.Users = datatypes.NewJSONSlice([]uuid.UUID{other})
	r := NewResolver(&fakePolicies{}, &fakeSettings{}, testLogger(t))

	if err := r.CheckDiscount(disc, QuoteInput{Course: c, Version: 1, UserID: buyer, Now: now}); err == nil {
		t.Fatalf("expected user scope to reject the discount")
	}
	if err := r.CheckDiscount(disc, QuoteInput{Course: c, Version: 1, UserID: other, Now: now}); err != nil {
		t.Fatalf("expected scoped user to pass: %v", err)
	}
}

func TestParseBasePrice(t *testing.T) {
	cents, err := ParseBasePrice("14.99")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cents != 1499 {
		t.Fatalf("expected 1499, got %d", cents)
	}
	if _, err := ParseBasePrice("not-a-number"); err == nil {
		t.Fatalf("expected error for malformed value")
	}
}
