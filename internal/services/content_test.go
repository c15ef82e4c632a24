package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/services"
)

func contentSetup(t *testing.T) (context.Context, *gorm.DB, repos.All, *services.ContentService) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	all := repos.NewAll(tx, log)
	// Text-only paths never touch storage, so the bucket stays nil here.
	svc := services.NewContentService(all, nil, log)
	return context.Background(), tx, all, svc
}

// linkContent wires the content into the version's first section so the
// in-use guards see a reference.
func linkContent(t *testing.T, ctx context.Context, tx *gorm.DB, c *types.Course, version int, status string, contentID uuid.UUID) {
	t.Helper()
	vm := c.Versions.Data()
	v := vm[version]
	v.Status = status
	v.Sections = []*course.Section{{
		ID:    uuid.New(),
		Title: "section",
		Lectures: []*course.Lecture{{
			ID:        uuid.New(),
			Title:     "lecture",
			ContentID: &contentID,
		}},
	}}
	if err := tx.WithContext(ctx).Model(&types.Course{}).Where("id = ?", c.ID).
		Update("versions", datatypes.NewJSONType(vm)).Error; err != nil {
		t.Fatalf("link content: %v", err)
	}
}

func TestCreateTextContent(t *testing.T) {
	ctx, tx, all, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "text@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	created, err := svc.CreateContent(ctx, services.CreateContentInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Name:     "intro",
		Kind:     types.ContentKindText,
		Text:     "welcome",
	})
	if err != nil {
		t.Fatalf("create text content: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected content id")
	}

	row, err := all.Contents.GetByName(ctx, nil, c.ID, "intro")
	if err != nil {
		t.Fatalf("load by name: %v", err)
	}
	if row.Text != "welcome" {
		t.Fatalf("expected body persisted, got %q", row.Text)
	}

	// Names are unique per course.
	_, err = svc.CreateContent(ctx, services.CreateContentInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Name:     "intro",
		Kind:     types.ContentKindText,
		Text:     "again",
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for duplicate name, got %v", err)
	}
}

func TestCreateTextContentRequiresBody(t *testing.T) {
	ctx, tx, _, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "nobody@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	_, err := svc.CreateContent(ctx, services.CreateContentInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Name:     "empty",
		Kind:     types.ContentKindText,
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateContentRequiresOwnership(t *testing.T) {
	ctx, tx, _, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "owner@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	stranger := testutil.SeedAuthor(t, ctx, tx, "stranger@example.com", true)

	_, err := svc.CreateContent(ctx, services.CreateContentInput{
		CourseID: c.ID,
		AuthorID: stranger.ID,
		Name:     "sneaky",
		Kind:     types.ContentKindText,
		Text:     "nope",
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found for foreign course, got %v", err)
	}
}

func TestPatchTextContentFrozenWhenSubmitted(t *testing.T) {
	ctx, tx, all, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "patch@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	lc := testutil.SeedContent(t, ctx, tx, c, "notes", types.ContentKindText, 0)

	// Draft reference: patching is allowed.
	linkContent(t, ctx, tx, c, 1, types.VersionDraft, lc.ID)
	if err := svc.PatchTextContent(ctx, c.ID, author.ID, lc.ID, "draft edit"); err != nil {
		t.Fatalf("patch against draft reference: %v", err)
	}
	row, err := all.Contents.GetByID(ctx, nil, lc.ID)
	if err != nil {
		t.Fatalf("reload content: %v", err)
	}
	if row.Text != "draft edit" {
		t.Fatalf("expected patched body, got %q", row.Text)
	}

	// Submitted reference: the content is frozen.
	linkContent(t, ctx, tx, c, 1, types.VersionInReview, lc.ID)
	err = svc.PatchTextContent(ctx, c.ID, author.ID, lc.ID, "late edit")
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for submitted reference, got %v", err)
	}
}

func TestDeleteContentRefusedWhileLinked(t *testing.T) {
	ctx, tx, all, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "delete@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	lc := testutil.SeedContent(t, ctx, tx, c, "linked", types.ContentKindText, 0)

	linkContent(t, ctx, tx, c, 1, types.VersionDraft, lc.ID)
	err := svc.DeleteContent(ctx, c.ID, author.ID, lc.ID)
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict while linked, got %v", err)
	}

	// Unlink and retry.
	vm := c.Versions.Data()
	vm[1].Sections = nil
	if err := tx.WithContext(ctx).Model(&types.Course{}).Where("id = ?", c.ID).
		Update("versions", datatypes.NewJSONType(vm)).Error; err != nil {
		t.Fatalf("unlink content: %v", err)
	}
	if err := svc.DeleteContent(ctx, c.ID, author.ID, lc.ID); err != nil {
		t.Fatalf("delete unlinked content: %v", err)
	}
	if _, err := all.Contents.GetByID(ctx, nil, lc.ID); err == nil {
		t.Fatalf("expected content row gone")
	}
}

func TestMediaOperationsRequireConfiguredStorage(t *testing.T) {
	ctx, tx, _, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "nostorage@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	// Video upload with no bucket wired fails cleanly instead of panicking.
	_, err := svc.CreateContent(ctx, services.CreateContentInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Name:     "lesson one",
		Kind:     types.ContentKindVideo,
		Duration: 90,
		File:     strings.NewReader("frames"),
		FileName: "lesson.mp4",
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed for video upload, got %v", err)
	}

	_, err = svc.CreateResource(ctx, services.CreateResourceInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Name:     "slides",
		Size:     4,
		File:     strings.NewReader("pdf!"),
		FileName: "slides.pdf",
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed for resource upload, got %v", err)
	}

	res := &types.Resource{
		ID:         uuid.New(),
		CourseID:   c.ID,
		AuthorID:   author.ID,
		Name:       "slides",
		StorageKey: "courses/k/resources/k/slides.pdf",
	}
	if err := tx.WithContext(ctx).Create(res).Error; err != nil {
		t.Fatalf("seed resource row: %v", err)
	}
	if _, err := svc.ResourceURL(ctx, c.ID, author.ID, res.ID); !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed for signed url, got %v", err)
	}
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	ctx, tx, _, svc := contentSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "coupon@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	if _, err := svc.CreateCoupon(ctx, services.CreateCouponInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Code:     "LAUNCH10",
		MaxUsage: 100,
	}); err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	_, err := svc.CreateCoupon(ctx, services.CreateCouponInput{
		CourseID: c.ID,
		AuthorID: author.ID,
		Code:     "LAUNCH10",
		MaxUsage: 5,
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict for duplicate code, got %v", err)
	}
}
