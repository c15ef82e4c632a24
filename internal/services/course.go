package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/platform/gcp"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
)

// CourseService is the reads-plus-orchestration facade over the course and
// material editor aggregates. Writes go through the aggregates untouched;
// this layer adds cross-entity reads and storage cleanup.
type CourseService struct {
	courses repos.CourseRepo
	users   repos.UserRepo
	agg     domainagg.CourseAggregate
	editor  domainagg.MaterialEditorAggregate
	bucket  gcp.BucketService
	log     *logger.Logger
}

func NewCourseService(
	r repos.All,
	agg domainagg.CourseAggregate,
	editor domainagg.MaterialEditorAggregate,
	bucket gcp.BucketService,
	baseLog *logger.Logger,
) *CourseService {
	return &CourseService{
		courses: r.Courses,
		users:   r.Users,
		agg:     agg,
		editor:  editor,
		bucket:  bucket,
		log:     baseLog.With("service", "CourseService"),
	}
}

// CourseView pairs a course row with its author for detail responses.
type CourseView struct {
	Course    *types.Course `json:"course"`
	Author    *types.User   `json:"author"`
	Purchased bool          `json:"purchased"`
}

// GetCourse loads the course and its author concurrently. Non-authors only
// see released courses.
func (s *CourseService) GetCourse(ctx context.Context, courseID, requesterID uuid.UUID) (*CourseView, error) {
	const op = "course.get"
	c, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if c.AuthorID != requesterID && !c.HasLive() {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", nil)
	}

	var author *types.User
	var purchased bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.users.GetByID(gctx, nil, c.AuthorID)
		if err != nil {
			return err
		}
		author = u
		return nil
	})
	if requesterID != c.AuthorID && requesterID != uuid.Nil {
		g.Go(func() error {
			u, err := s.users.GetByID(gctx, nil, requesterID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			purchased = u.HasPurchased(courseID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	// Strip unreleased versions for everyone but the author: purchasers and
	// visitors get live-only material.
	if c.AuthorID != requesterID {
		live := c.Live()
		vm := types.VersionMap{}
		if live != nil {
			vm[live.Version] = live
		}
		c.Versions = datatypes.NewJSONType(vm)
		c.DraftVersion = nil
	}
	return &CourseView{Course: c, Author: author, Purchased: purchased}, nil
}

// GetCourseVersion returns one version of an author's own course.
func (s *CourseService) GetCourseVersion(ctx context.Context, courseID, authorID uuid.UUID, version int) (*types.Version, error) {
	const op = "course.get_version"
	c, err := s.authorCourse(ctx, op, courseID, authorID)
	if err != nil {
		return nil, err
	}
	v := c.Version(version)
	if v == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("version %d not found", version), nil)
	}
	return v, nil
}

// GetDraftVersion returns the author's current draft, if any.
func (s *CourseService) GetDraftVersion(ctx context.Context, courseID, authorID uuid.UUID) (*types.Version, error) {
	const op = "course.get_draft"
	c, err := s.authorCourse(ctx, op, courseID, authorID)
	if err != nil {
		return nil, err
	}
	v := c.Draft()
	if v == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course has no draft version", nil)
	}
	return v, nil
}

// GetLiveVersion returns the released version visible in catalog.
func (s *CourseService) GetLiveVersion(ctx context.Context, courseID uuid.UUID) (*types.Version, error) {
	const op = "course.get_live"
	c, err := s.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	v := c.Live()
	if v == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course has no released version", nil)
	}
	return v, nil
}

func (s *CourseService) authorCourse(ctx context.Context, op string, courseID, authorID uuid.UUID) (*types.Course, error) {
	c, err := s.courses.GetByIDForAuthor(ctx, nil, courseID, authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return c, nil
}

// Writes below delegate to the aggregates; the service adds nothing to their
// invariants.

func (s *CourseService) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (domainagg.CreateCourseResult, error) {
	return s.agg.CreateCourse(ctx, in)
}

func (s *CourseService) CreateDraftVersion(ctx context.Context, in domainagg.CreateDraftVersionInput) (domainagg.CreateDraftVersionResult, error) {
	return s.agg.CreateDraftVersion(ctx, in)
}

func (s *CourseService) PatchVersion(ctx context.Context, in domainagg.PatchVersionInput) (domainagg.PatchVersionResult, error) {
	return s.agg.PatchVersion(ctx, in)
}

func (s *CourseService) AttachCoupon(ctx context.Context, in domainagg.AttachCouponInput) error {
	return s.agg.AttachCoupon(ctx, in)
}

func (s *CourseService) DetachCoupon(ctx context.Context, in domainagg.AttachCouponInput) error {
	return s.agg.DetachCoupon(ctx, in)
}

func (s *CourseService) AttachPricingPolicy(ctx context.Context, in domainagg.AttachPricingPolicyInput) error {
	return s.agg.AttachPricingPolicy(ctx, in)
}

func (s *CourseService) CreateSection(ctx context.Context, in domainagg.CreateSectionInput) (domainagg.CreateSectionResult, error) {
	return s.editor.CreateSection(ctx, in)
}

func (s *CourseService) PatchSection(ctx context.Context, in domainagg.PatchSectionInput) error {
	return s.editor.PatchSection(ctx, in)
}

func (s *CourseService) DeleteSection(ctx context.Context, in domainagg.DeleteSectionInput) error {
	return s.editor.DeleteSection(ctx, in)
}

func (s *CourseService) PermuteSections(ctx context.Context, in domainagg.PermuteSectionsInput) error {
	return s.editor.PermuteSections(ctx, in)
}

func (s *CourseService) CreateLecture(ctx context.Context, in domainagg.CreateLectureInput) (domainagg.CreateLectureResult, error) {
	return s.editor.CreateLecture(ctx, in)
}

func (s *CourseService) PatchLecture(ctx context.Context, in domainagg.PatchLectureInput) error {
	return s.editor.PatchLecture(ctx, in)
}

func (s *CourseService) DeleteLecture(ctx context.Context, in domainagg.DeleteLectureInput) error {
	return s.editor.DeleteLecture(ctx, in)
}

func (s *CourseService) PermuteLectures(ctx context.Context, in domainagg.PermuteLecturesInput) error {
	return s.editor.PermuteLectures(ctx, in)
}

func (s *CourseService) LinkLectureContent(ctx context.Context, in domainagg.LinkLectureContentInput) error {
	return s.editor.LinkLectureContent(ctx, in)
}

func (s *CourseService) LinkLectureResource(ctx context.Context, in domainagg.LinkLectureResourceInput) error {
	return s.editor.LinkLectureResource(ctx, in)
}

func (s *CourseService) UnlinkLectureResource(ctx context.Context, in domainagg.LinkLectureResourceInput) error {
	return s.editor.UnlinkLectureResource(ctx, in)
}

// DeleteCourse removes the course through the aggregate, then sweeps its
// storage prefix on both buckets. Blob cleanup is best-effort.
func (s *CourseService) DeleteCourse(ctx context.Context, courseID, authorID uuid.UUID) error {
	if err := s.agg.DeleteCourse(ctx, domainagg.DeleteCourseInput{CourseID: courseID, AuthorID: authorID}); err != nil {
		return err
	}
	if s.bucket == nil {
		return nil
	}
	prefix := fmt.Sprintf("courses/%s/", courseID)
	for _, cat := range []gcp.BucketCategory{gcp.BucketCategoryVideo, gcp.BucketCategoryResource} {
		if err := s.bucket.DeletePrefix(ctx, cat, prefix); err != nil {
			s.log.Warn("Course storage sweep failed", "category", string(cat), "prefix", prefix, "error", err)
		}
	}
	return nil
}
