package aggregates_test

import (
	"context"
	"testing"
	"time"

	dataagg "github.com/skillforge/skillforge-backend/internal/data/aggregates"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/domain/review"
	"gorm.io/gorm"
)

func setup(t *testing.T) (context.Context, *gorm.DB, dataagg.BaseDeps, repos.All) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	deps := dataagg.BaseDeps{DB: tx, Log: log}
	return context.Background(), tx, deps, repos.NewAll(tx, log)
}

func TestCreateCourseIntegration(t *testing.T) {
	ctx, tx, deps, all := setup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "verified@example.com", true)
	agg := dataagg.NewCourseAggregate(deps, all)

	res, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: author.ID, Now: now})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	if res.Version != 1 {
		t.Fatalf("expected first version 1, got %d", res.Version)
	}

	c, err := all.Courses.GetByIDForAuthor(ctx, tx, res.CourseID, author.ID)
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	if c.DraftVersion == nil || *c.DraftVersion != 1 {
		t.Fatalf("expected draft pointer at 1, got %v", c.DraftVersion)
	}
	if c.Versions.Data()[1].Status != course.VersionDraft {
		t.Fatalf("expected version 1 in draft")
	}

	u, err := all.Users.GetByID(ctx, tx, author.ID)
	if err != nil {
		t.Fatalf("reload author: %v", err)
	}
	if !u.Owns(res.CourseID) {
		t.Fatalf("expected author to own the new course")
	}
}

func TestCreateCourseGuardsIntegration(t *testing.T) {
	ctx, tx, deps, all := setup(t)
	now := time.Now().UTC()
	agg := dataagg.NewCourseAggregate(deps, all)

	reader := testutil.SeedUser(t, ctx, tx, "reader@example.com")
	if _, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: reader.ID, Now: now}); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden for non-author, got %v", err)
	}

	unverified := testutil.SeedAuthor(t, ctx, tx, "unverified@example.com", false)
	if _, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: unverified.ID, Now: now}); err != nil {
		t.Fatalf("first course for unverified author: %v", err)
	}
	if _, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: unverified.ID, Now: now}); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden for second unverified course, got %v", err)
	}
}

func TestDraftVersionLifecycleIntegration(t *testing.T) {
	ctx, tx, deps, all := setup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "author@example.com", true)
	agg := dataagg.NewCourseAggregate(deps, all)
	pub := dataagg.NewPublicationAggregate(deps, all)

	created, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: author.ID, Now: now})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}

	// A second draft while one exists is a conflict.
	if _, err := agg.CreateDraftVersion(ctx, domainagg.CreateDraftVersionInput{CourseID: created.CourseID, AuthorID: author.ID, Now: now}); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict while draft exists, got %v", err)
	}

	title := "a reasonably long course title"
	patch := course.VersionPatch{Title: &title}
	if _, err := agg.PatchVersion(ctx, domainagg.PatchVersionInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 1, Patch: patch, Now: now,
	}); err != nil {
		t.Fatalf("patch draft: %v", err)
	}

	submitted, err := pub.SubmitForReview(ctx, domainagg.SubmitForReviewInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 1, Note: "first pass", Now: now,
	})
	if err != nil {
		t.Fatalf("submit for review: %v", err)
	}

	// Patching an in_review version is rejected.
	if _, err := agg.PatchVersion(ctx, domainagg.PatchVersionInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 1, Patch: patch, Now: now,
	}); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict patching in_review version, got %v", err)
	}

	cancelled, err := pub.CancelReview(ctx, domainagg.CancelReviewInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("cancel review: %v", err)
	}
	if cancelled.Version != 1 {
		t.Fatalf("expected cancel on version 1")
	}

	c, err := all.Courses.GetByID(ctx, tx, created.CourseID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if c.DraftVersion == nil || *c.DraftVersion != 1 {
		t.Fatalf("expected draft pointer restored, got %v", c.DraftVersion)
	}

	rec, err := all.Records.GetByID(ctx, tx, submitted.ReviewRecordID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != review.StatusCancelled || !rec.Completed {
		t.Fatalf("expected cancelled completed record, got %s completed=%v", rec.Status, rec.Completed)
	}
}

func TestReleaseSagaIntegration(t *testing.T) {
	ctx, tx, deps, all := setup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "release@example.com", true)
	agg := dataagg.NewCourseAggregate(deps, all)
	mat := dataagg.NewMaterialEditorAggregate(deps, all)
	pub := dataagg.NewPublicationAggregate(deps, all)

	created, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: author.ID, Now: now})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	key := domainagg.MaterialKey{CourseID: created.CourseID, AuthorID: author.ID, Version: 1}

	section, err := mat.CreateSection(ctx, domainagg.CreateSectionInput{Key: key, Title: "Intro", Now: now})
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	lecture, err := mat.CreateLecture(ctx, domainagg.CreateLectureInput{
		Key: key, SectionID: section.SectionID, Title: "Welcome", Duration: 90, Now: now,
	})
	if err != nil {
		t.Fatalf("create lecture: %v", err)
	}
	if lecture.TotalLectures != 1 || lecture.TotalTime != 90 {
		t.Fatalf("expected totals 1/90, got %d/%d", lecture.TotalLectures, lecture.TotalTime)
	}

	submitted, err := pub.SubmitForReview(ctx, domainagg.SubmitForReviewInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	released, err := pub.Release(ctx, domainagg.ReleaseInput{
		CourseID: created.CourseID, Version: 1, ReviewRecordID: submitted.ReviewRecordID, Now: now,
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.LiveVersion != 1 {
		t.Fatalf("expected live version 1, got %d", released.LiveVersion)
	}

	c, err := all.Courses.GetByID(ctx, tx, created.CourseID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if !c.HasLive() || *c.LiveVersion != 1 {
		t.Fatalf("expected course live at 1")
	}
	if c.Meta.Data().TotalLectures != 1 || c.Meta.Data().TotalTime != 90 {
		t.Fatalf("expected meta snapshot totals 1/90")
	}

	// Second saga step, then reconcile finds nothing left to heal.
	if err := pub.MarkRecordReleased(ctx, domainagg.MarkRecordReleasedInput{ReviewRecordID: submitted.ReviewRecordID, Now: now}); err != nil {
		t.Fatalf("mark record released: %v", err)
	}
	if err := pub.MarkRecordReleased(ctx, domainagg.MarkRecordReleasedInput{ReviewRecordID: submitted.ReviewRecordID, Now: now}); err != nil {
		t.Fatalf("mark record released should be idempotent: %v", err)
	}

	// A fresh draft clones the live version.
	draft, err := agg.CreateDraftVersion(ctx, domainagg.CreateDraftVersionInput{CourseID: created.CourseID, AuthorID: author.ID, Now: now})
	if err != nil {
		t.Fatalf("create draft version: %v", err)
	}
	if draft.Version != 2 || draft.ClonedFrom != 1 {
		t.Fatalf("expected version 2 cloned from 1, got %d from %d", draft.Version, draft.ClonedFrom)
	}

	// Resubmitting the clone unchanged is rejected.
	if _, err := pub.SubmitForReview(ctx, domainagg.SubmitForReviewInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 2, Now: now,
	}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error for unchanged resubmission, got %v", err)
	}
}

func TestTotalsDecrementOnDeleteIntegration(t *testing.T) {
	ctx, tx, deps, all := setup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "totals@example.com", true)
	agg := dataagg.NewCourseAggregate(deps, all)
	mat := dataagg.NewMaterialEditorAggregate(deps, all)

	created, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: author.ID, Now: now})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	key := domainagg.MaterialKey{CourseID: created.CourseID, AuthorID: author.ID, Version: 1}

	section, err := mat.CreateSection(ctx, domainagg.CreateSectionInput{Key: key, Title: "Basics", Now: now})
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	first, err := mat.CreateLecture(ctx, domainagg.CreateLectureInput{
		Key: key, SectionID: section.SectionID, Title: "Setup", Duration: 90, Now: now,
	})
	if err != nil {
		t.Fatalf("create first lecture: %v", err)
	}
	second, err := mat.CreateLecture(ctx, domainagg.CreateLectureInput{
		Key: key, SectionID: section.SectionID, Title: "Types", Duration: 60, Now: now,
	})
	if err != nil {
		t.Fatalf("create second lecture: %v", err)
	}
	if second.TotalLectures != 2 || second.TotalTime != 150 {
		t.Fatalf("expected totals 2/150 after adds, got %d/%d", second.TotalLectures, second.TotalTime)
	}

	if err := mat.DeleteLecture(ctx, domainagg.DeleteLectureInput{Key: key, LectureID: first.LectureID, Now: now}); err != nil {
		t.Fatalf("delete lecture: %v", err)
	}
	c, err := all.Courses.GetByID(ctx, tx, created.CourseID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	v := c.Versions.Data()[1]
	if v.TotalLectures != 1 || v.TotalTime != 60 {
		t.Fatalf("expected totals 1/60 after lecture delete, got %d/%d", v.TotalLectures, v.TotalTime)
	}

	// Removing the whole section takes its remaining lectures with it.
	if err := mat.DeleteSection(ctx, domainagg.DeleteSectionInput{Key: key, SectionID: section.SectionID, Now: now}); err != nil {
		t.Fatalf("delete section: %v", err)
	}
	c, err = all.Courses.GetByID(ctx, tx, created.CourseID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	v = c.Versions.Data()[1]
	if v.TotalLectures != 0 || v.TotalTime != 0 {
		t.Fatalf("expected totals 0/0 after section delete, got %d/%d", v.TotalLectures, v.TotalTime)
	}
}

func TestReconcileRecordsIntegration(t *testing.T) {
	ctx, tx, deps, all := setup(t)
	now := time.Now().UTC()

	author := testutil.SeedAuthor(t, ctx, tx, "reconcile@example.com", true)
	agg := dataagg.NewCourseAggregate(deps, all)
	pub := dataagg.NewPublicationAggregate(deps, all)

	created, err := agg.CreateCourse(ctx, domainagg.CreateCourseInput{AuthorID: author.ID, Now: now})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	submitted, err := pub.SubmitForReview(ctx, domainagg.SubmitForReviewInput{
		CourseID: created.CourseID, AuthorID: author.ID, Version: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := pub.Release(ctx, domainagg.ReleaseInput{
		CourseID: created.CourseID, Version: 1, ReviewRecordID: submitted.ReviewRecordID, Now: now,
	}); err != nil {
		t.Fatalf("release: %v", err)
	}

	// Simulate a crash between the saga steps: record stuck at approved.
	if err := all.Records.UpdateFields(ctx, tx, submitted.ReviewRecordID, map[string]any{
		"status": review.StatusApproved, "completed": true,
	}); err != nil {
		t.Fatalf("force approved record: %v", err)
	}

	res, err := pub.ReconcileRecords(ctx, now)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Reconciled != 1 {
		t.Fatalf("expected 1 reconciled record, got %d", res.Reconciled)
	}

	rec, err := all.Records.GetByID(ctx, tx, submitted.ReviewRecordID)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if rec.Status != review.StatusReleased {
		t.Fatalf("expected released record, got %s", rec.Status)
	}
}
