package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedAuthor(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, verified bool) *types.User {
	tb.Helper()
	u := &types.User{
		ID:               uuid.New(),
		Email:            email,
		FirstName:        "A",
		LastName:         "B",
		IsAuthor:         true,
		IsAuthorVerified: verified,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed author: %v", err)
	}
	return u
}

// SeedCourse creates a course with a single draft version numbered 1 and
// links it to the author's course list.
func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, author *types.User) *types.Course {
	tb.Helper()
	now := time.Now().UTC()
	one := 1
	c := &types.Course{
		ID:       uuid.New(),
		AuthorID: author.ID,
		DraftVersion: &one,
		Versions: datatypes.NewJSONType(course.VersionMap{
			1: {
				Version:   1,
				Status:    course.VersionDraft,
				Title:     "seeded course title",
				PriceType: course.PriceTypeFixed,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	author.MyCourses = append(author.MyCourses, c.ID)
	if err := tx.WithContext(ctx).Model(&types.User{}).
		Where("id = ?", author.ID).
		Update("my_courses", datatypes.NewJSONSlice([]uuid.UUID(author.MyCourses))).Error; err != nil {
		tb.Fatalf("seed course ownership: %v", err)
	}
	return c
}

func SeedContent(tb testing.TB, ctx context.Context, tx *gorm.DB, c *types.Course, name, kind string, duration int) *types.LectureContent {
	tb.Helper()
	lc := &types.LectureContent{
		ID:       uuid.New(),
		CourseID: c.ID,
		AuthorID: c.AuthorID,
		Name:     name,
		Kind:     kind,
		Duration: duration,
	}
	if kind == types.ContentKindVideo {
		lc.StorageKey = "course/" + c.ID.String() + "/" + name
	}
	if err := tx.WithContext(ctx).Create(lc).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return lc
}

func SeedPolicy(tb testing.TB, ctx context.Context, tx *gorm.DB, creatorID uuid.UUID, policyType string, mutate func(p *types.PricingPolicy)) *types.PricingPolicy {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.PricingPolicy{
		ID:               uuid.New(),
		Type:             policyType,
		ValueType:        types.ValueTypeFixed,
		Value:            10,
		CourseTargetMode: types.TargetModeCourse,
		IsActive:         true,
		StartDate:        now.Add(-time.Hour),
		ExpiryDate:       now.Add(24 * time.Hour),
		CreatedBy:        creatorID,
	}
	if mutate != nil {
		mutate(p)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed policy: %v", err)
	}
	return p
}

func SeedRecord(tb testing.TB, ctx context.Context, tx *gorm.DB, c *types.Course, version int, status string, completed bool) *types.ReviewRecord {
	tb.Helper()
	rec := &types.ReviewRecord{
		ID:        uuid.New(),
		CourseID:  c.ID,
		AuthorID:  c.AuthorID,
		Version:   version,
		Status:    status,
		Completed: completed,
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed review record: %v", err)
	}
	return rec
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrInt(v int) *int { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
