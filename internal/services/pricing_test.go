package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/services"
)

func pricingSetup(t *testing.T) (context.Context, *gorm.DB, repos.All, *services.PricingService) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	all := repos.NewAll(tx, log)
	return context.Background(), tx, all, services.NewPricingService(all, log)
}

func validDiscount(creatorID, courseID uuid.UUID, now time.Time) *types.PricingPolicy {
	return &types.PricingPolicy{
		Type:             types.PolicyTypeDiscount,
		ValueType:        types.ValueTypePercentage,
		Value:            20,
		Code:             "SAVE20",
		Courses:          datatypes.NewJSONSlice([]uuid.UUID{courseID}),
		CourseTargetMode: types.TargetModeCourse,
		IsActive:         true,
		StartDate:        now.Add(-time.Hour),
		ExpiryDate:       now.Add(30 * 24 * time.Hour),
		CreatedBy:        creatorID,
	}
}

func TestCreatePolicyValidation(t *testing.T) {
	ctx, tx, _, svc := pricingSetup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "pol-val@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	cases := []struct {
		name   string
		mutate func(p *types.PricingPolicy)
	}{
		{"unknown type", func(p *types.PricingPolicy) { p.Type = "flash_sale" }},
		{"unknown value type", func(p *types.PricingPolicy) { p.ValueType = "points" }},
		{"zero value", func(p *types.PricingPolicy) { p.Value = 0 }},
		{"percentage over 100", func(p *types.PricingPolicy) { p.Value = 140 }},
		{"no courses", func(p *types.PricingPolicy) { p.Courses = nil }},
		{"expiry before start", func(p *types.PricingPolicy) { p.ExpiryDate = p.StartDate.Add(-time.Hour) }},
		{"expiry too far ahead", func(p *types.PricingPolicy) { p.ExpiryDate = now.AddDate(0, 7, 0) }},
	}
	for _, tc := range cases {
		p := validDiscount(author.ID, c.ID, now)
		tc.mutate(p)
		if _, err := svc.CreatePolicy(ctx, author.ID, p, now); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestCreatePolicyDuplicateDiscountCode(t *testing.T) {
	ctx, tx, _, svc := pricingSetup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "pol-dup@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	if _, err := svc.CreatePolicy(ctx, author.ID, validDiscount(author.ID, c.ID, now), now); err != nil {
		t.Fatalf("first policy: %v", err)
	}
	_, err := svc.CreatePolicy(ctx, author.ID, validDiscount(author.ID, c.ID, now), now)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for duplicate code, got %v", err)
	}
}

func TestCreateOverrideDeactivatesCompeting(t *testing.T) {
	ctx, tx, all, svc := pricingSetup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "pol-comp@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	old := testutil.SeedPolicy(t, ctx, tx, author.ID, types.PolicyTypeOverride, func(p *types.PricingPolicy) {
		p.Courses = datatypes.NewJSONSlice([]uuid.UUID{c.ID})
	})

	newer := &types.PricingPolicy{
		Type:             types.PolicyTypeOverride,
		ValueType:        types.ValueTypeFixed,
		Value:            49,
		Courses:          datatypes.NewJSONSlice([]uuid.UUID{c.ID}),
		CourseTargetMode: types.TargetModeCourse,
		IsActive:         true,
		StartDate:        now.Add(-time.Minute),
		ExpiryDate:       now.Add(48 * time.Hour),
	}
	created, err := svc.CreatePolicy(ctx, author.ID, newer, now)
	if err != nil {
		t.Fatalf("create override: %v", err)
	}
	if !created.IsActive {
		t.Fatalf("new override should be active")
	}

	reloaded, err := all.Policies.GetByID(ctx, nil, old.ID)
	if err != nil {
		t.Fatalf("reload old override: %v", err)
	}
	if reloaded.IsActive {
		t.Fatalf("expected competing override deactivated")
	}
}

func TestUpdateAndDeletePolicyCreatorGuard(t *testing.T) {
	ctx, tx, _, svc := pricingSetup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "pol-own@example.com", true)
	other := testutil.SeedAuthor(t, ctx, tx, "pol-other@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	created, err := svc.CreatePolicy(ctx, author.ID, validDiscount(author.ID, c.ID, now), now)
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}

	err = svc.UpdatePolicy(ctx, other.ID, created.ID, map[string]any{"value": 30.0}, now)
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden update for non-creator, got %v", err)
	}
	if err := svc.DeletePolicy(ctx, other.ID, created.ID); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden delete for non-creator, got %v", err)
	}

	if err := svc.UpdatePolicy(ctx, author.ID, created.ID, map[string]any{"value": 30.0}, now); err != nil {
		t.Fatalf("creator update: %v", err)
	}
	if err := svc.DeletePolicy(ctx, author.ID, created.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if _, err := svc.ListByCreator(ctx, author.ID); err != nil {
		t.Fatalf("list by creator: %v", err)
	}
}

func TestUpdatePolicyExpiryBound(t *testing.T) {
	ctx, tx, _, svc := pricingSetup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "pol-exp@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	created, err := svc.CreatePolicy(ctx, author.ID, validDiscount(author.ID, c.ID, now), now)
	if err != nil {
		t.Fatalf("create policy: %v", err)
	}

	err = svc.UpdatePolicy(ctx, author.ID, created.ID, map[string]any{"expiry_date": now.AddDate(1, 0, 0)}, now)
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error for far expiry, got %v", err)
	}
}
