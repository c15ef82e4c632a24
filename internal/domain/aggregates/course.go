package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
)

var CourseAggregateContract = Contract{
	Name:             "Catalog.CourseAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns atomic course/version lifecycle consistency; every write compares-and-swaps the course revision.",
}

// CourseAggregate owns course creation, version lifecycle, and patching
// invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeForbidden, CodeConflict,
// CodeInvariantViolation, CodeRetryable, CodeInternal.
type CourseAggregate interface {
	Aggregate

	// CreateCourse creates a course with a single draft version numbered 1.
	CreateCourse(ctx context.Context, in CreateCourseInput) (CreateCourseResult, error)

	// CreateDraftVersion clones the latest releasable version into a new draft.
	CreateDraftVersion(ctx context.Context, in CreateDraftVersionInput) (CreateDraftVersionResult, error)

	// DeleteCourse removes a never-released course and detaches it from the author.
	DeleteCourse(ctx context.Context, in DeleteCourseInput) error

	// PatchVersion applies an allow-listed partial update to a version.
	PatchVersion(ctx context.Context, in PatchVersionInput) (PatchVersionResult, error)

	// AttachCoupon links a coupon to a draft version; DetachCoupon reverses it.
	AttachCoupon(ctx context.Context, in AttachCouponInput) error
	DetachCoupon(ctx context.Context, in AttachCouponInput) error

	// AttachPricingPolicy links a version-scoped pricing policy reference.
	AttachPricingPolicy(ctx context.Context, in AttachPricingPolicyInput) error
}

type CreateCourseInput struct {
	AuthorID uuid.UUID
	Now      time.Time
}

type CreateCourseResult struct {
	CourseID  uuid.UUID
	Version   int
	CreatedAt time.Time
}

type CreateDraftVersionInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Now      time.Time
}

type CreateDraftVersionResult struct {
	CourseID    uuid.UUID
	Version     int
	ClonedFrom  int
	CreatedAt   time.Time
}

type DeleteCourseInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
}

type PatchVersionInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Version  int
	Patch    course.VersionPatch
	Now      time.Time
}

type PatchVersionResult struct {
	CourseID  uuid.UUID
	Version   int
	Status    string
	UpdatedAt time.Time
}

type AttachCouponInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Version  int
	CouponID uuid.UUID
	Now      time.Time
}

type AttachPricingPolicyInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Version  int
	PolicyID uuid.UUID
	Now      time.Time
}
