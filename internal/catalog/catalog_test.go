package catalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"gorm.io/datatypes"
)

func liveCourse(authorID uuid.UUID) *types.Course {
	live := 2
	return &types.Course{
		ID:          uuid.New(),
		AuthorID:    authorID,
		LiveVersion: &live,
		Meta: datatypes.NewJSONType(types.CourseMeta{
			Title:         "Intro to Distillation",
			AuthorName:    "A B",
			Price:         9900,
			TotalLectures: 12,
			TotalTime:     5400,
			Languages:     []string{"en"},
		}),
		Rating:      4.5,
		RatingQty:   10,
		StudentsQty: 200,
	}
}

func overrideFor(c *types.Course, value float64, createdBy uuid.UUID) *types.PricingPolicy {
	now := time.Now().UTC()
	return &types.PricingPolicy{
		ID:               uuid.New(),
		Type:             types.PolicyTypeOverride,
		ValueType:        types.ValueTypeFixed,
		Value:            value,
		Courses:          datatypes.NewJSONSlice([]uuid.UUID{c.ID}),
		CourseTargetMode: types.TargetModeCourse,
		IsActive:         true,
		StartDate:        now.Add(-time.Hour),
		ExpiryDate:       now.Add(time.Hour),
		CreatedBy:        createdBy,
	}
}

func TestProject(t *testing.T) {
	c := liveCourse(uuid.New())
	sc := Project(c)
	if sc.LiveVersion != 2 {
		t.Fatalf("expected live version 2, got %d", sc.LiveVersion)
	}
	if sc.Title != "Intro to Distillation" || sc.Price != 9900 {
		t.Fatalf("unexpected projection: %+v", sc)
	}
	if sc.TotalLectures != 12 || sc.TotalTime != 5400 {
		t.Fatalf("expected totals from meta snapshot, got %d/%d", sc.TotalLectures, sc.TotalTime)
	}
}

func TestApplyDisplayOverrideReplacesPrice(t *testing.T) {
	author := uuid.New()
	c := liveCourse(author)
	sc := Project(c)

	ov := overrideFor(c, 49, author)
	ApplyDisplayOverride(&sc, c, []*types.PricingPolicy{ov})
	if sc.Price != 4900 || sc.SalePrice != nil {
		t.Fatalf("expected replaced price 4900, got %+v", sc)
	}
}

func TestApplyDisplayOverrideShowsOriginal(t *testing.T) {
	author := uuid.New()
	c := liveCourse(author)
	sc := Project(c)

	ov := overrideFor(c, 49, author)
	ov.ShowOriginalPrice = true
	ov.InitialValue = 99
	ApplyDisplayOverride(&sc, c, []*types.PricingPolicy{ov})
	if sc.Price != 9900 {
		t.Fatalf("expected original price kept, got %d", sc.Price)
	}
	if sc.SalePrice == nil || *sc.SalePrice != 4900 {
		t.Fatalf("expected sale price 4900, got %v", sc.SalePrice)
	}
}

func TestApplyDisplayOverrideIgnoresForeignPolicies(t *testing.T) {
	author := uuid.New()
	c := liveCourse(author)
	sc := Project(c)

	admin := overrideFor(c, 49, uuid.New())
	discount := overrideFor(c, 20, author)
	discount.Type = types.PolicyTypeDiscount
	ApplyDisplayOverride(&sc, c, []*types.PricingPolicy{admin, discount})
	if sc.Price != 9900 || sc.SalePrice != nil {
		t.Fatalf("expected price untouched, got %+v", sc)
	}
}

func TestOrderClauseAllowlist(t *testing.T) {
	if orderClause("rating") != "rating DESC, rating_qty DESC" {
		t.Fatalf("unexpected rating order")
	}
	if orderClause("anything-else") != "created_at DESC" {
		t.Fatalf("expected default order for unknown sort")
	}
	if orderClause("price_asc") != "(meta->>'price')::bigint ASC" {
		t.Fatalf("unexpected price order")
	}
}
