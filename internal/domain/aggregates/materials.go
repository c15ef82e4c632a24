package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var MaterialEditorContract = Contract{
	Name:             "Catalog.MaterialEditorAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns section/lecture/content/resource mutations within a draft version, keeping lecture totals consistent.",
}

// MaterialEditorAggregate mutates the embedded course materials of a version.
// All operations address (course, version, section[, lecture]) and maintain
// TotalLectures/TotalTime incrementally and atomically with the mutation.
type MaterialEditorAggregate interface {
	Aggregate

	CreateSection(ctx context.Context, in CreateSectionInput) (CreateSectionResult, error)
	PatchSection(ctx context.Context, in PatchSectionInput) error
	DeleteSection(ctx context.Context, in DeleteSectionInput) error
	PermuteSections(ctx context.Context, in PermuteSectionsInput) error

	CreateLecture(ctx context.Context, in CreateLectureInput) (CreateLectureResult, error)
	PatchLecture(ctx context.Context, in PatchLectureInput) error
	DeleteLecture(ctx context.Context, in DeleteLectureInput) error
	PermuteLectures(ctx context.Context, in PermuteLecturesInput) error

	LinkLectureContent(ctx context.Context, in LinkLectureContentInput) error
	LinkLectureResource(ctx context.Context, in LinkLectureResourceInput) error
	UnlinkLectureResource(ctx context.Context, in LinkLectureResourceInput) error
}

type MaterialKey struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Version  int
}

type CreateSectionInput struct {
	Key         MaterialKey
	Title       string
	Description string
	Now         time.Time
}

type CreateSectionResult struct {
	SectionID uuid.UUID
	CreatedAt time.Time
}

type PatchSectionInput struct {
	Key         MaterialKey
	SectionID   uuid.UUID
	Title       *string
	Description *string
	Now         time.Time
}

type DeleteSectionInput struct {
	Key       MaterialKey
	SectionID uuid.UUID
	Now       time.Time
}

type PermuteSectionsInput struct {
	Key      MaterialKey
	Ordering []uuid.UUID
	Now      time.Time
}

type CreateLectureInput struct {
	Key         MaterialKey
	SectionID   uuid.UUID
	Title       string
	Description string
	ContentID   *uuid.UUID
	Duration    int
	Preview     bool
	Now         time.Time
}

type CreateLectureResult struct {
	LectureID     uuid.UUID
	TotalLectures int
	TotalTime     int
	CreatedAt     time.Time
}

type PatchLectureInput struct {
	Key         MaterialKey
	LectureID   uuid.UUID
	Title       *string
	Description *string
	Preview     *bool
	Now         time.Time
}

type DeleteLectureInput struct {
	Key       MaterialKey
	LectureID uuid.UUID
	Now       time.Time
}

type PermuteLecturesInput struct {
	Key       MaterialKey
	SectionID uuid.UUID
	Ordering  []uuid.UUID
	Now       time.Time
}

type LinkLectureContentInput struct {
	Key       MaterialKey
	LectureID uuid.UUID
	ContentID uuid.UUID
	Now       time.Time
}

type LinkLectureResourceInput struct {
	Key        MaterialKey
	LectureID  uuid.UUID
	ResourceID uuid.UUID
	Now        time.Time
}
