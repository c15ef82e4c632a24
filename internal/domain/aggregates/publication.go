package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var PublicationAggregateContract = Contract{
	Name:             "Catalog.PublicationAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns the draft->in_review->approved/rejected->online state machine and the release/review-record saga steps.",
}

// PublicationAggregate drives the version lifecycle across the course and its
// review records. Release and review-record completion are two saga steps:
// the course commit is the pivot, the record update follows, and a startup
// reconciler heals the window between them.
type PublicationAggregate interface {
	Aggregate

	// SubmitForReview transitions a draft to in_review and opens a review record.
	SubmitForReview(ctx context.Context, in SubmitForReviewInput) (SubmitForReviewResult, error)

	// CancelReview returns an in_review version to draft and cancels its record.
	CancelReview(ctx context.Context, in CancelReviewInput) (CancelReviewResult, error)

	// Release promotes an approved version to online, swaps the live pointer,
	// and refreshes the catalog meta snapshot in the same commit.
	Release(ctx context.Context, in ReleaseInput) (ReleaseResult, error)

	// Reject marks an in_review version rejected and completes its record.
	Reject(ctx context.Context, in RejectInput) (RejectResult, error)

	// MarkRecordReleased is the post-pivot saga step closing the review record.
	MarkRecordReleased(ctx context.Context, in MarkRecordReleasedInput) error

	// ReconcileRecords heals non-terminal records whose course already went
	// live at their version, marking them released. Idempotent; run on startup.
	ReconcileRecords(ctx context.Context, now time.Time) (ReconcileResult, error)
}

type SubmitForReviewInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Version  int
	Note     string
	Now      time.Time
}

type SubmitForReviewResult struct {
	CourseID       uuid.UUID
	Version        int
	ReviewRecordID uuid.UUID
	SubmittedAt    time.Time
}

type CancelReviewInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Version  int
	Now      time.Time
}

type CancelReviewResult struct {
	CourseID    uuid.UUID
	Version     int
	CancelledAt time.Time
}

type ReleaseInput struct {
	CourseID       uuid.UUID
	Version        int
	ReviewRecordID uuid.UUID
	Now            time.Time
}

type ReleaseResult struct {
	CourseID    uuid.UUID
	Version     int
	LiveVersion int
	// TranscodePending lists video contents lacking renditions; the caller
	// kicks off transcode jobs after the commit.
	TranscodePending []uuid.UUID
	ReleasedAt       time.Time
}

type RejectInput struct {
	CourseID       uuid.UUID
	Version        int
	ReviewRecordID uuid.UUID
	Now            time.Time
}

type RejectResult struct {
	CourseID   uuid.UUID
	Version    int
	RejectedAt time.Time
}

type MarkRecordReleasedInput struct {
	ReviewRecordID uuid.UUID
	Now            time.Time
}

type ReconcileResult struct {
	Examined   int
	Reconciled int
}
