package services_test

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	dataagg "github.com/skillforge/skillforge-backend/internal/data/aggregates"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/services"
)

func courseSetup(t *testing.T) (context.Context, *gorm.DB, repos.All, *services.CourseService) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	all := repos.NewAll(tx, log)
	deps := dataagg.BaseDeps{DB: tx, Log: log}
	agg := dataagg.NewCourseAggregate(deps, all)
	editor := dataagg.NewMaterialEditorAggregate(deps, all)
	svc := services.NewCourseService(all, agg, editor, nil, log)
	return context.Background(), tx, all, svc
}

// goLive releases version 1 directly: status online, live pointer set, draft cleared.
func goLive(t *testing.T, ctx context.Context, tx *gorm.DB, c *types.Course) {
	t.Helper()
	vm := c.Versions.Data()
	vm[1].Status = types.VersionOnline
	if err := tx.WithContext(ctx).Model(&types.Course{}).Where("id = ?", c.ID).Updates(map[string]any{
		"versions":      datatypes.NewJSONType(vm),
		"live_version":  1,
		"draft_version": nil,
	}).Error; err != nil {
		t.Fatalf("go live: %v", err)
	}
}

func TestGetCourseHidesUnreleasedFromVisitors(t *testing.T) {
	ctx, tx, _, svc := courseSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "vis-author@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	visitor := testutil.SeedUser(t, ctx, tx, "visitor@example.com")

	// Author sees the draft-only course.
	view, err := svc.GetCourse(ctx, c.ID, author.ID)
	if err != nil {
		t.Fatalf("author read: %v", err)
	}
	if view.Course.DraftVersion == nil {
		t.Fatalf("author should see the draft pointer")
	}
	if view.Author == nil || view.Author.ID != author.ID {
		t.Fatalf("expected author loaded")
	}

	// A visitor cannot see it at all before release.
	if _, err := svc.GetCourse(ctx, c.ID, visitor.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found for visitor, got %v", err)
	}
}

func TestGetCourseStripsDraftForVisitors(t *testing.T) {
	ctx, tx, _, svc := courseSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "strip-author@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	// Add a second draft version alongside the live one.
	vm := c.Versions.Data()
	vm[1].Status = types.VersionOnline
	two := 2
	vm[2] = &course.Version{
		Version:   2,
		Status:    course.VersionDraft,
		Title:     "work in progress",
		PriceType: course.PriceTypeFixed,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Model(&types.Course{}).Where("id = ?", c.ID).Updates(map[string]any{
		"versions":      datatypes.NewJSONType(vm),
		"live_version":  1,
		"draft_version": two,
	}).Error; err != nil {
		t.Fatalf("seed live+draft: %v", err)
	}

	visitor := testutil.SeedUser(t, ctx, tx, "strip-visitor@example.com")
	view, err := svc.GetCourse(ctx, c.ID, visitor.ID)
	if err != nil {
		t.Fatalf("visitor read: %v", err)
	}
	got := view.Course.Versions.Data()
	if len(got) != 1 || got[1] == nil {
		t.Fatalf("expected only the live version, got %d versions", len(got))
	}
	if view.Course.DraftVersion != nil {
		t.Fatalf("draft pointer should be stripped for visitors")
	}
	if view.Purchased {
		t.Fatalf("visitor has not purchased")
	}
}

func TestGetLiveVersion(t *testing.T) {
	ctx, tx, _, svc := courseSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "live-author@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	if _, err := svc.GetLiveVersion(ctx, c.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found before release, got %v", err)
	}

	goLive(t, ctx, tx, c)
	v, err := svc.GetLiveVersion(ctx, c.ID)
	if err != nil {
		t.Fatalf("live version: %v", err)
	}
	if v.Version != 1 || v.Status != types.VersionOnline {
		t.Fatalf("expected online version 1, got %d %q", v.Version, v.Status)
	}
}

func TestGetDraftVersion(t *testing.T) {
	ctx, tx, _, svc := courseSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "draft-author@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	v, err := svc.GetDraftVersion(ctx, c.ID, author.ID)
	if err != nil {
		t.Fatalf("draft version: %v", err)
	}
	if v.Version != 1 || v.Status != types.VersionDraft {
		t.Fatalf("expected draft version 1, got %d %q", v.Version, v.Status)
	}

	goLive(t, ctx, tx, c)
	if _, err := svc.GetDraftVersion(ctx, c.ID, author.ID); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found after release, got %v", err)
	}
}

func TestGetCourseVersionUnknownNumber(t *testing.T) {
	ctx, tx, _, svc := courseSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "vn-author@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	if _, err := svc.GetCourseVersion(ctx, c.ID, author.ID, 7); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found for unknown version, got %v", err)
	}
	v, err := svc.GetCourseVersion(ctx, c.ID, author.ID, 1)
	if err != nil {
		t.Fatalf("version 1: %v", err)
	}
	if v.Version != 1 {
		t.Fatalf("expected version 1, got %d", v.Version)
	}
}
