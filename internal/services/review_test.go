package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	dataagg "github.com/skillforge/skillforge-backend/internal/data/aggregates"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/services"
)

func reviewSetup(t *testing.T) (context.Context, *gorm.DB, repos.All, *services.ReviewService) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	all := repos.NewAll(tx, log)
	deps := dataagg.BaseDeps{DB: tx, Log: log}
	pub := dataagg.NewPublicationAggregate(deps, all)
	mailer := services.NewMailer(nil, nil, log)
	svc := services.NewReviewService(all, pub, nil, "skillforge", mailer, nil, log)
	return context.Background(), tx, all, svc
}

// markInReview flips the seeded draft version into in_review, as SubmitForReview would.
func markInReview(t *testing.T, ctx context.Context, tx *gorm.DB, c *types.Course, recID uuid.UUID) {
	t.Helper()
	vm := c.Versions.Data()
	vm[1].Status = types.VersionInReview
	vm[1].ReviewRecordID = &recID
	updates := map[string]any{"versions": datatypes.NewJSONType(vm)}
	if err := tx.WithContext(ctx).Model(&types.Course{}).Where("id = ?", c.ID).Updates(updates).Error; err != nil {
		t.Fatalf("mark in_review: %v", err)
	}
}

func TestGetPendingRecordFiltering(t *testing.T) {
	ctx, tx, _, svc := reviewSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "pending@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)

	rec := testutil.SeedRecord(t, ctx, tx, c, 1, types.ReviewPendingReview, false)

	got, err := svc.GetPendingRecord(ctx, c.ID, author.ID, nil, false)
	if err != nil {
		t.Fatalf("open record should be visible: %v", err)
	}
	if got.ID != rec.ID {
		t.Fatalf("expected record %s, got %s", rec.ID, got.ID)
	}

	// Completed rejection is hidden unless asked for.
	if err := tx.WithContext(ctx).Model(&types.ReviewRecord{}).Where("id = ?", rec.ID).
		Updates(map[string]any{"status": types.ReviewRejected, "completed": true}).Error; err != nil {
		t.Fatalf("complete record: %v", err)
	}
	if _, err := svc.GetPendingRecord(ctx, c.ID, author.ID, nil, false); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found for hidden rejection, got %v", err)
	}
	if _, err := svc.GetPendingRecord(ctx, c.ID, author.ID, nil, true); err != nil {
		t.Fatalf("rejection should surface when requested: %v", err)
	}

	// Completed approval stays visible: it still awaits release.
	if err := tx.WithContext(ctx).Model(&types.ReviewRecord{}).Where("id = ?", rec.ID).
		Update("status", types.ReviewApproved).Error; err != nil {
		t.Fatalf("approve record: %v", err)
	}
	if _, err := svc.GetPendingRecord(ctx, c.ID, author.ID, nil, false); err != nil {
		t.Fatalf("approved record should be visible: %v", err)
	}
}

func TestStartReviewClaimsRecord(t *testing.T) {
	ctx, tx, all, svc := reviewSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "claim@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	rec := testutil.SeedRecord(t, ctx, tx, c, 1, types.ReviewPendingReview, false)
	reviewer := testutil.SeedUser(t, ctx, tx, "mod@example.com")

	got, err := svc.StartReview(ctx, rec.ID, reviewer.ID)
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	if got.Status != types.ReviewInReview {
		t.Fatalf("expected in_review, got %q", got.Status)
	}
	if got.ReviewerID == nil || *got.ReviewerID != reviewer.ID {
		t.Fatalf("expected record claimed by %s", reviewer.ID)
	}

	reloaded, err := all.Records.GetByID(ctx, nil, rec.ID)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if reloaded.Status != types.ReviewInReview {
		t.Fatalf("claim did not persist, status %q", reloaded.Status)
	}

	// A claimed record cannot be claimed again.
	if _, err := svc.StartReview(ctx, rec.ID, reviewer.ID); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict on double claim, got %v", err)
	}
}

func TestApproveReleasesVersionAndClosesRecord(t *testing.T) {
	ctx, tx, all, svc := reviewSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "approve@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	rec := testutil.SeedRecord(t, ctx, tx, c, 1, types.ReviewInReview, false)
	markInReview(t, ctx, tx, c, rec.ID)
	reviewer := testutil.SeedUser(t, ctx, tx, "mod2@example.com")

	res, err := svc.Approve(ctx, rec.ID, reviewer.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if res.LiveVersion != 1 {
		t.Fatalf("expected live version 1, got %d", res.LiveVersion)
	}

	reloadedC, err := all.Courses.GetByID(ctx, nil, c.ID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if !reloadedC.HasLive() || *reloadedC.LiveVersion != 1 {
		t.Fatalf("expected course live at 1, got %v", reloadedC.LiveVersion)
	}
	if reloadedC.Versions.Data()[1].Status != types.VersionOnline {
		t.Fatalf("expected version online, got %q", reloadedC.Versions.Data()[1].Status)
	}
	if reloadedC.DraftVersion != nil {
		t.Fatalf("expected draft pointer cleared, got %v", reloadedC.DraftVersion)
	}

	reloadedRec, err := all.Records.GetByID(ctx, nil, rec.ID)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if reloadedRec.Status != types.ReviewReleased || !reloadedRec.Completed {
		t.Fatalf("expected released+completed record, got %q completed=%v", reloadedRec.Status, reloadedRec.Completed)
	}
}

func TestApproveRefusedForForeignReviewer(t *testing.T) {
	ctx, tx, _, svc := reviewSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "foreign@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	rec := testutil.SeedRecord(t, ctx, tx, c, 1, types.ReviewInReview, false)
	owner := testutil.SeedUser(t, ctx, tx, "owner-mod@example.com")
	if err := tx.WithContext(ctx).Model(&types.ReviewRecord{}).Where("id = ?", rec.ID).
		Update("reviewer_id", owner.ID).Error; err != nil {
		t.Fatalf("claim record: %v", err)
	}

	other := testutil.SeedUser(t, ctx, tx, "other-mod@example.com")
	if _, err := svc.Approve(ctx, rec.ID, other.ID); !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden for foreign reviewer, got %v", err)
	}
}

func TestRejectStoresNoteAndReturnsVersionToAuthor(t *testing.T) {
	ctx, tx, all, svc := reviewSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "reject@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	rec := testutil.SeedRecord(t, ctx, tx, c, 1, types.ReviewInReview, false)
	markInReview(t, ctx, tx, c, rec.ID)
	reviewer := testutil.SeedUser(t, ctx, tx, "mod3@example.com")

	if _, err := svc.Reject(ctx, rec.ID, reviewer.ID, "needs captions"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	reloadedRec, err := all.Records.GetByID(ctx, nil, rec.ID)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if reloadedRec.Status != types.ReviewRejected || !reloadedRec.Completed {
		t.Fatalf("expected rejected+completed, got %q completed=%v", reloadedRec.Status, reloadedRec.Completed)
	}
	if reloadedRec.Note != "needs captions" {
		t.Fatalf("expected reviewer note persisted, got %q", reloadedRec.Note)
	}

	reloadedC, err := all.Courses.GetByID(ctx, nil, c.ID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if reloadedC.Versions.Data()[1].Status != types.VersionRejected {
		t.Fatalf("expected version rejected, got %q", reloadedC.Versions.Data()[1].Status)
	}
}

func TestRejectNoteTooLong(t *testing.T) {
	ctx, _, _, svc := reviewSetup(t)

	long := make([]byte, 301)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.Reject(ctx, uuid.New(), uuid.New(), string(long))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation error for long note, got %v", err)
	}
}

func TestReconcileClosesStrandedRecords(t *testing.T) {
	ctx, tx, all, svc := reviewSetup(t)

	author := testutil.SeedAuthor(t, ctx, tx, "reconcile@example.com", true)
	c := testutil.SeedCourse(t, ctx, tx, author)
	rec := testutil.SeedRecord(t, ctx, tx, c, 1, types.ReviewApproved, true)

	// Simulate a crash between release pivot and record close: course went
	// live but the record never reached released.
	vm := c.Versions.Data()
	vm[1].Status = types.VersionOnline
	if err := tx.WithContext(ctx).Model(&types.Course{}).Where("id = ?", c.ID).Updates(map[string]any{
		"versions":      datatypes.NewJSONType(vm),
		"live_version":  1,
		"draft_version": nil,
	}).Error; err != nil {
		t.Fatalf("force live: %v", err)
	}

	if err := svc.Reconcile(ctx); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	reloaded, err := all.Records.GetByID(ctx, nil, rec.ID)
	if err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if reloaded.Status != types.ReviewReleased {
		t.Fatalf("expected reconciler to close the record, got %q", reloaded.Status)
	}
}
