package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/domain/review"
	"github.com/skillforge/skillforge-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

type publicationAggregate struct {
	deps     BaseDeps
	courses  repos.CourseRepo
	contents repos.LectureContentRepo
	records  repos.ReviewRecordRepo
	users    repos.UserRepo
}

// NewPublicationAggregate wires the version lifecycle aggregate.
func NewPublicationAggregate(deps BaseDeps, r repos.All) domainagg.PublicationAggregate {
	return &publicationAggregate{
		deps:     deps.withDefaults(),
		courses:  r.Courses,
		contents: r.Contents,
		records:  r.Records,
		users:    r.Users,
	}
}

func (a *publicationAggregate) Contract() domainagg.Contract {
	return domainagg.PublicationAggregateContract
}

func (a *publicationAggregate) SubmitForReview(ctx context.Context, in domainagg.SubmitForReviewInput) (domainagg.SubmitForReviewResult, error) {
	var res domainagg.SubmitForReviewResult
	note := strings.TrimSpace(in.Note)
	if len(note) > course.ReviewNoteMaxLen {
		return res, MapError("publication.submit", ValidationError(fmt.Sprintf("review note exceeds %d characters", course.ReviewNoteMaxLen)))
	}

	err := executeRevisionWrite(ctx, a.deps, "publication.submit", func(dbc dbctx.Context) error {
		c, err := a.courses.GetByIDForAuthor(dbc.Ctx, dbc.Tx, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v := vm[in.Version]
		if v == nil {
			return NotFoundError(fmt.Sprintf("course %s has no version %d", c.ID, in.Version))
		}
		if err := RequireStatusAllowed(v.Status, course.VersionDraft); err != nil {
			return err
		}
		if live := c.Live(); live != nil && course.SameContent(v, live) {
			return ValidationError("version has no content changes against the live version")
		}

		rec := &types.ReviewRecord{
			ID:        uuid.New(),
			CourseID:  c.ID,
			AuthorID:  in.AuthorID,
			Version:   in.Version,
			Status:    review.StatusPendingReview,
			Completed: false,
			Note:      note,
			CreatedAt: in.Now,
			UpdatedAt: in.Now,
		}
		if _, err := a.records.Create(dbc.Ctx, dbc.Tx, []*types.ReviewRecord{rec}); err != nil {
			return err
		}

		v.Status = course.VersionInReview
		v.ReviewRecordID = &rec.ID
		v.UpdatedAt = in.Now

		if err := saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":      datatypes.NewJSONType(vm),
			"draft_version": nil,
			"updated_at":    in.Now,
		}); err != nil {
			return err
		}

		res = domainagg.SubmitForReviewResult{
			CourseID:       c.ID,
			Version:        in.Version,
			ReviewRecordID: rec.ID,
			SubmittedAt:    in.Now,
		}
		return nil
	})
	return res, err
}

func (a *publicationAggregate) CancelReview(ctx context.Context, in domainagg.CancelReviewInput) (domainagg.CancelReviewResult, error) {
	var res domainagg.CancelReviewResult
	err := executeRevisionWrite(ctx, a.deps, "publication.cancel_review", func(dbc dbctx.Context) error {
		c, err := a.courses.GetByIDForAuthor(dbc.Ctx, dbc.Tx, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v := vm[in.Version]
		if v == nil {
			return NotFoundError(fmt.Sprintf("course %s has no version %d", c.ID, in.Version))
		}
		if err := RequireStatusAllowed(v.Status, course.VersionInReview); err != nil {
			return err
		}
		if v.ReviewRecordID == nil {
			return InvariantError("in_review version has no review record")
		}

		rec, err := a.records.GetByID(dbc.Ctx, dbc.Tx, *v.ReviewRecordID)
		if err != nil {
			return err
		}
		if !review.AllowedTransition(rec.Status, review.StatusCancelled) {
			return ConflictError("review can no longer be cancelled")
		}
		if err := a.records.UpdateFields(dbc.Ctx, dbc.Tx, rec.ID, map[string]any{
			"status":     review.StatusCancelled,
			"completed":  true,
			"updated_at": in.Now,
		}); err != nil {
			return err
		}

		v.Status = course.VersionDraft
		v.ReviewRecordID = nil
		v.UpdatedAt = in.Now

		if err := saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":      datatypes.NewJSONType(vm),
			"draft_version": in.Version,
			"updated_at":    in.Now,
		}); err != nil {
			return err
		}

		res = domainagg.CancelReviewResult{CourseID: c.ID, Version: in.Version, CancelledAt: in.Now}
		return nil
	})
	return res, err
}

func (a *publicationAggregate) Release(ctx context.Context, in domainagg.ReleaseInput) (domainagg.ReleaseResult, error) {
	var res domainagg.ReleaseResult
	err := executeRevisionWrite(ctx, a.deps, "publication.release", func(dbc dbctx.Context) error {
		c, err := a.courses.GetByID(dbc.Ctx, dbc.Tx, in.CourseID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v := vm[in.Version]
		if v == nil {
			return NotFoundError(fmt.Sprintf("course %s has no version %d", c.ID, in.Version))
		}
		if err := RequireStatusAllowed(v.Status, course.VersionInReview, course.VersionApproved); err != nil {
			return err
		}

		author, err := a.users.GetByID(dbc.Ctx, dbc.Tx, c.AuthorID)
		if err != nil {
			return err
		}
		authorName := strings.TrimSpace(author.FirstName + " " + author.LastName)

		v.Status = course.VersionOnline
		v.UpdatedAt = in.Now

		updates := map[string]any{
			"versions":     datatypes.NewJSONType(vm),
			"live_version": in.Version,
			"meta":         datatypes.NewJSONType(v.MetaSnapshot(authorName)),
			"updated_at":   in.Now,
		}
		if c.DraftVersion != nil && *c.DraftVersion == in.Version {
			updates["draft_version"] = nil
		}
		if err := saveCourse(a.deps.CASGuard, dbc, c, updates); err != nil {
			return err
		}

		var contentIDs []uuid.UUID
		for _, s := range v.Sections {
			if s == nil {
				continue
			}
			for _, l := range s.Lectures {
				if l != nil && l.ContentID != nil {
					contentIDs = append(contentIDs, *l.ContentID)
				}
			}
		}
		pending, err := a.contents.ListVideosWithoutRenditions(dbc.Ctx, dbc.Tx, contentIDs)
		if err != nil {
			return err
		}
		pendingIDs := make([]uuid.UUID, 0, len(pending))
		for _, p := range pending {
			pendingIDs = append(pendingIDs, p.ID)
		}

		res = domainagg.ReleaseResult{
			CourseID:         c.ID,
			Version:          in.Version,
			LiveVersion:      in.Version,
			TranscodePending: pendingIDs,
			ReleasedAt:       in.Now,
		}
		return nil
	})
	return res, err
}

func (a *publicationAggregate) Reject(ctx context.Context, in domainagg.RejectInput) (domainagg.RejectResult, error) {
	var res domainagg.RejectResult
	err := executeRevisionWrite(ctx, a.deps, "publication.reject", func(dbc dbctx.Context) error {
		c, err := a.courses.GetByID(dbc.Ctx, dbc.Tx, in.CourseID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v := vm[in.Version]
		if v == nil {
			return NotFoundError(fmt.Sprintf("course %s has no version %d", c.ID, in.Version))
		}
		if err := RequireStatusAllowed(v.Status, course.VersionInReview); err != nil {
			return err
		}

		rec, err := a.records.GetByID(dbc.Ctx, dbc.Tx, in.ReviewRecordID)
		if err != nil {
			return err
		}
		if !review.AllowedTransition(rec.Status, review.StatusRejected) {
			return ConflictError("review record cannot transition to rejected")
		}
		if err := a.records.UpdateFields(dbc.Ctx, dbc.Tx, rec.ID, map[string]any{
			"status":     review.StatusRejected,
			"completed":  true,
			"updated_at": in.Now,
		}); err != nil {
			return err
		}

		v.Status = course.VersionRejected
		v.UpdatedAt = in.Now

		if err := saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		}); err != nil {
			return err
		}

		res = domainagg.RejectResult{CourseID: c.ID, Version: in.Version, RejectedAt: in.Now}
		return nil
	})
	return res, err
}

func (a *publicationAggregate) MarkRecordReleased(ctx context.Context, in domainagg.MarkRecordReleasedInput) error {
	return executeWrite(ctx, a.deps, "publication.mark_record_released", func(dbc dbctx.Context) error {
		rec, err := a.records.GetByID(dbc.Ctx, dbc.Tx, in.ReviewRecordID)
		if err != nil {
			return err
		}
		if rec.Status == review.StatusReleased {
			return nil
		}
		// The pivot commit already went live, so any non-terminal record is
		// moved to released even if the approve update was lost.
		if review.Terminal(rec.Status) {
			return ConflictError("review record already reached a terminal state")
		}
		return a.records.UpdateFields(dbc.Ctx, dbc.Tx, rec.ID, map[string]any{
			"status":     review.StatusReleased,
			"completed":  true,
			"updated_at": in.Now,
		})
	})
}

// ReconcileRecords closes review records that approved a version which is now
// live but whose released transition was lost between the two saga steps.
func (a *publicationAggregate) ReconcileRecords(ctx context.Context, now time.Time) (domainagg.ReconcileResult, error) {
	var res domainagg.ReconcileResult
	err := executeWrite(ctx, a.deps, "publication.reconcile_records", func(dbc dbctx.Context) error {
		recs, err := a.records.ListNonTerminal(dbc.Ctx, dbc.Tx)
		if err != nil {
			return err
		}
		res.Examined = len(recs)
		for _, rec := range recs {
			if rec == nil || rec.Status != review.StatusApproved {
				continue
			}
			c, err := a.courses.GetByID(dbc.Ctx, dbc.Tx, rec.CourseID)
			if err != nil {
				continue
			}
			if c.LiveVersion == nil || *c.LiveVersion != rec.Version {
				continue
			}
			v := c.Version(rec.Version)
			if v == nil || v.Status != course.VersionOnline {
				continue
			}
			if err := a.records.UpdateFields(dbc.Ctx, dbc.Tx, rec.ID, map[string]any{
				"status":     review.StatusReleased,
				"completed":  true,
				"updated_at": now,
			}); err != nil {
				return err
			}
			res.Reconciled++
		}
		return nil
	})
	return res, err
}
