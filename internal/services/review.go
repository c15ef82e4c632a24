package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/domain/review"
	"github.com/skillforge/skillforge-backend/internal/observability"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"github.com/skillforge/skillforge-backend/internal/temporalx/transcode"
)

// ReviewService drives moderation on top of the publication aggregate. The
// aggregate owns the version/record state machine; this layer adds moderator
// decisions, transcode kickoff, and author notification.
type ReviewService struct {
	courses  repos.CourseRepo
	contents repos.LectureContentRepo
	records  repos.ReviewRecordRepo
	users    repos.UserRepo

	pub domainagg.PublicationAggregate

	tc        temporalsdkclient.Client
	taskQueue string

	mailer  *Mailer
	metrics *observability.Metrics
	log     *logger.Logger
}

func NewReviewService(
	r repos.All,
	pub domainagg.PublicationAggregate,
	tc temporalsdkclient.Client,
	taskQueue string,
	mailer *Mailer,
	metrics *observability.Metrics,
	baseLog *logger.Logger,
) *ReviewService {
	return &ReviewService{
		courses:   r.Courses,
		contents:  r.Contents,
		records:   r.Records,
		users:     r.Users,
		pub:       pub,
		tc:        tc,
		taskQueue: taskQueue,
		mailer:    mailer,
		metrics:   metrics,
		log:       baseLog.With("service", "ReviewService"),
	}
}

func (s *ReviewService) SubmitForReview(ctx context.Context, in domainagg.SubmitForReviewInput) (domainagg.SubmitForReviewResult, error) {
	const op = "review.submit"
	if len(strings.TrimSpace(in.Note)) > course.ReviewNoteMaxLen {
		return domainagg.SubmitForReviewResult{}, domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("note exceeds %d characters", course.ReviewNoteMaxLen), nil)
	}
	return s.pub.SubmitForReview(ctx, in)
}

func (s *ReviewService) CancelReview(ctx context.Context, in domainagg.CancelReviewInput) (domainagg.CancelReviewResult, error) {
	return s.pub.CancelReview(ctx, in)
}

// GetPendingRecord returns the author-visible state of the latest review
// cycle: an open record, an approved one awaiting release, or (on request)
// the most recent rejection.
func (s *ReviewService) GetPendingRecord(ctx context.Context, courseID, authorID uuid.UUID, version *int, includeRejected bool) (*types.ReviewRecord, error) {
	const op = "review.pending_record"
	rec, err := s.records.LatestForCourseAuthor(ctx, nil, courseID, authorID, version)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "no review record", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	switch {
	case !rec.Completed:
		return rec, nil
	case rec.Status == types.ReviewApproved:
		return rec, nil
	case includeRejected && rec.Status == types.ReviewRejected:
		return rec, nil
	}
	return nil, domainagg.NewError(domainagg.CodeNotFound, op, "no pending review record", nil)
}

// GetRecords lists every review record of an author's courses.
func (s *ReviewService) GetRecords(ctx context.Context, authorID uuid.UUID) ([]*types.ReviewRecord, error) {
	const op = "review.records"
	recs, err := s.records.ListByAuthor(ctx, nil, authorID)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return recs, nil
}

// GetActiveRecords pages through the moderation queue.
func (s *ReviewService) GetActiveRecords(ctx context.Context, limit, offset int) ([]*types.ReviewRecord, int64, error) {
	const op = "review.active_records"
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	recs, total, err := s.records.ListActive(ctx, nil, limit, offset)
	if err != nil {
		return nil, 0, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return recs, total, nil
}

// StartReview claims a pending record for a moderator.
func (s *ReviewService) StartReview(ctx context.Context, recordID, reviewerID uuid.UUID) (*types.ReviewRecord, error) {
	const op = "review.start"
	rec, err := s.record(ctx, op, recordID)
	if err != nil {
		return nil, err
	}
	if !review.AllowedTransition(rec.Status, types.ReviewInReview) {
		return nil, domainagg.NewError(domainagg.CodeConflict, op,
			fmt.Sprintf("record in status %q cannot enter review", rec.Status), nil)
	}
	now := time.Now().UTC()
	err = s.records.UpdateFields(ctx, nil, rec.ID, map[string]any{
		"status":      types.ReviewInReview,
		"reviewer_id": reviewerID,
		"updated_at":  now,
	})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	rec.Status = types.ReviewInReview
	rec.ReviewerID = &reviewerID
	rec.UpdatedAt = now
	return rec, nil
}

// Approve completes the record, releases the version, and kicks off the
// post-release work: review record closure, transcode jobs, author mail.
// Release is the saga pivot; once it commits the approval stands even if the
// follow-up steps fail, and the startup reconciler closes any record the
// crash window left open.
func (s *ReviewService) Approve(ctx context.Context, recordID, reviewerID uuid.UUID) (domainagg.ReleaseResult, error) {
	const op = "review.approve"
	rec, err := s.record(ctx, op, recordID)
	if err != nil {
		return domainagg.ReleaseResult{}, err
	}
	if err := s.requireReviewer(op, rec, reviewerID); err != nil {
		return domainagg.ReleaseResult{}, err
	}
	if !review.AllowedTransition(rec.Status, types.ReviewApproved) {
		return domainagg.ReleaseResult{}, domainagg.NewError(domainagg.CodeConflict, op,
			fmt.Sprintf("record in status %q cannot be approved", rec.Status), nil)
	}

	now := time.Now().UTC()
	err = s.records.UpdateFields(ctx, nil, rec.ID, map[string]any{
		"status":     types.ReviewApproved,
		"completed":  true,
		"updated_at": now,
	})
	if err != nil {
		return domainagg.ReleaseResult{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	res, err := s.pub.Release(ctx, domainagg.ReleaseInput{
		CourseID:       rec.CourseID,
		Version:        rec.Version,
		ReviewRecordID: rec.ID,
		Now:            now,
	})
	if err != nil {
		return domainagg.ReleaseResult{}, err
	}

	if err := s.pub.MarkRecordReleased(ctx, domainagg.MarkRecordReleasedInput{ReviewRecordID: rec.ID, Now: now}); err != nil {
		s.log.Error("Review record close failed after release; reconciler will heal it",
			"record_id", rec.ID.String(), "course_id", rec.CourseID.String(), "error", err)
	}

	s.startTranscodes(ctx, res)
	s.notifyAuthor(ctx, rec, true, "")
	return res, nil
}

// Reject completes the record with a reviewer note and returns the version to
// the author.
func (s *ReviewService) Reject(ctx context.Context, recordID, reviewerID uuid.UUID, note string) (domainagg.RejectResult, error) {
	const op = "review.reject"
	note = strings.TrimSpace(note)
	if len(note) > course.ReviewNoteMaxLen {
		return domainagg.RejectResult{}, domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("note exceeds %d characters", course.ReviewNoteMaxLen), nil)
	}
	rec, err := s.record(ctx, op, recordID)
	if err != nil {
		return domainagg.RejectResult{}, err
	}
	if err := s.requireReviewer(op, rec, reviewerID); err != nil {
		return domainagg.RejectResult{}, err
	}

	now := time.Now().UTC()
	res, err := s.pub.Reject(ctx, domainagg.RejectInput{
		CourseID:       rec.CourseID,
		Version:        rec.Version,
		ReviewRecordID: rec.ID,
		Now:            now,
	})
	if err != nil {
		return domainagg.RejectResult{}, err
	}

	if note != "" {
		if err := s.records.UpdateFields(ctx, nil, rec.ID, map[string]any{"note": note, "updated_at": now}); err != nil {
			s.log.Warn("Reviewer note save failed", "record_id", rec.ID.String(), "error", err)
		}
	}

	s.notifyAuthor(ctx, rec, false, note)
	return res, nil
}

// Reconcile heals review records stranded between the release pivot and the
// record close. Run once on startup.
func (s *ReviewService) Reconcile(ctx context.Context) error {
	res, err := s.pub.ReconcileRecords(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if res.Reconciled > 0 {
		s.log.Info("Review records reconciled", "examined", res.Examined, "reconciled", res.Reconciled)
	}
	return nil
}

func (s *ReviewService) record(ctx context.Context, op string, recordID uuid.UUID) (*types.ReviewRecord, error) {
	rec, err := s.records.GetByID(ctx, nil, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "review record not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return rec, nil
}

func (s *ReviewService) requireReviewer(op string, rec *types.ReviewRecord, reviewerID uuid.UUID) error {
	if rec.ReviewerID != nil && *rec.ReviewerID != reviewerID {
		return domainagg.NewError(domainagg.CodeForbidden, op, "record is claimed by another reviewer", nil)
	}
	return nil
}

// startTranscodes submits one workflow per released video content still
// missing renditions. Failures are logged and counted; the next release of
// the content retries naturally.
func (s *ReviewService) startTranscodes(ctx context.Context, res domainagg.ReleaseResult) {
	if len(res.TranscodePending) == 0 {
		return
	}
	if s.tc == nil {
		s.log.Warn("Transcode skipped: temporal client not configured",
			"course_id", res.CourseID.String(), "pending", len(res.TranscodePending))
		return
	}
	rows, err := s.contents.GetByIDs(ctx, nil, res.TranscodePending)
	if err != nil {
		s.log.Error("Transcode content lookup failed", "course_id", res.CourseID.String(), "error", err)
		return
	}
	resolutions := transcode.ResolutionsFromEnv()
	for _, row := range rows {
		if row.StorageKey == "" {
			continue
		}
		err := transcode.Start(ctx, s.tc, s.taskQueue, transcode.Input{
			CourseID:    row.CourseID,
			ContentID:   row.ID,
			SourceKey:   row.StorageKey,
			Resolutions: resolutions,
		})
		if err != nil {
			s.metrics.IncTranscodeJob("error")
			s.log.Error("Transcode start failed", "content_id", row.ID.String(), "error", err)
			continue
		}
		s.metrics.IncTranscodeJob("started")
	}
}

func (s *ReviewService) notifyAuthor(ctx context.Context, rec *types.ReviewRecord, released bool, note string) {
	if s.mailer == nil {
		return
	}
	c, err := s.courses.GetByID(ctx, nil, rec.CourseID)
	if err != nil {
		s.log.Warn("Author notification skipped: course lookup failed", "course_id", rec.CourseID.String(), "error", err)
		return
	}
	author, err := s.users.GetByID(ctx, nil, rec.AuthorID)
	if err != nil {
		s.log.Warn("Author notification skipped: user lookup failed", "author_id", rec.AuthorID.String(), "error", err)
		return
	}
	title := ""
	if v := c.Version(rec.Version); v != nil {
		title = v.Title
	}
	if released {
		s.mailer.CourseReleased(author, title, rec.Version)
		return
	}
	s.mailer.CourseRejected(author, title, rec.Version, note)
}
