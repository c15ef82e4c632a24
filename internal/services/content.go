package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/platform/gcp"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
)

// resourceURLExpiry is how long a signed resource download link stays valid.
const resourceURLExpiry = 2 * time.Hour

// ContentService manages lecture content, resource, and coupon rows together
// with their backing storage objects. Linking them into lectures is the
// material editor aggregate's job; this service owns row lifecycle and blobs.
type ContentService struct {
	courses   repos.CourseRepo
	contents  repos.LectureContentRepo
	resources repos.ResourceRepo
	coupons   repos.CouponRepo
	users     repos.UserRepo
	bucket    gcp.BucketService
	log       *logger.Logger
}

func NewContentService(r repos.All, bucket gcp.BucketService, baseLog *logger.Logger) *ContentService {
	return &ContentService{
		courses:   r.Courses,
		contents:  r.Contents,
		resources: r.Resources,
		coupons:   r.Coupons,
		users:     r.Users,
		bucket:    bucket,
		log:       baseLog.With("service", "ContentService"),
	}
}

// requireBucket guards operations that cannot proceed without media storage.
// main keeps running with a nil bucket when GCS configuration is absent, so
// every required storage call checks here first instead of panicking.
func (s *ContentService) requireBucket(op string) error {
	if s.bucket == nil {
		return domainagg.NewError(domainagg.CodePreconditionFailed, op, "media storage is not configured", nil)
	}
	return nil
}

func (s *ContentService) ownedCourse(ctx context.Context, op string, courseID, authorID uuid.UUID) (*types.Course, error) {
	c, err := s.courses.GetByIDForAuthor(ctx, nil, courseID, authorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, "course not found", err)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return c, nil
}

type CreateContentInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Name     string
	Kind     string
	Text     string
	Duration int
	// File carries the video payload for ContentKindVideo; FileName supplies
	// the object key extension.
	File     io.Reader
	FileName string
}

// CreateContent stores a new content row, uploading the video payload first
// for video kinds. Names are unique within a course.
func (s *ContentService) CreateContent(ctx context.Context, in CreateContentInput) (*types.LectureContent, error) {
	const op = "content.create"
	if _, err := s.ownedCourse(ctx, op, in.CourseID, in.AuthorID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "content name is required", nil)
	}
	if _, err := s.contents.GetByName(ctx, nil, in.CourseID, name); err == nil {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("content named %q already exists", name), nil)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	row := &types.LectureContent{
		ID:       uuid.New(),
		CourseID: in.CourseID,
		AuthorID: in.AuthorID,
		Name:     name,
		Kind:     in.Kind,
		Duration: in.Duration,
	}
	switch in.Kind {
	case types.ContentKindText:
		if strings.TrimSpace(in.Text) == "" {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "text content requires a body", nil)
		}
		row.Text = in.Text
	case types.ContentKindVideo:
		if in.File == nil {
			return nil, domainagg.NewError(domainagg.CodeValidation, op, "video content requires a file", nil)
		}
		if err := s.requireBucket(op); err != nil {
			return nil, err
		}
		row.StorageKey = fmt.Sprintf("courses/%s/content/%s/%s", in.CourseID, row.ID, strings.TrimSpace(in.FileName))
		if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryVideo, row.StorageKey, in.File); err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
	default:
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unknown content kind %q", in.Kind), nil)
	}

	created, err := s.contents.Create(ctx, nil, []*types.LectureContent{row})
	if err != nil {
		if row.StorageKey != "" && s.bucket != nil {
			// Best effort: don't leave an orphaned blob behind a failed insert.
			if delErr := s.bucket.DeleteFile(ctx, gcp.BucketCategoryVideo, row.StorageKey); delErr != nil {
				s.log.Warn("Orphaned content object cleanup failed", "key", row.StorageKey, "error", delErr)
			}
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return created[0], nil
}

// PatchTextContent rewrites the body of a text content row. Content referenced
// by a submitted or released version is frozen.
func (s *ContentService) PatchTextContent(ctx context.Context, courseID, authorID, contentID uuid.UUID, text string) error {
	const op = "content.patch_text"
	c, err := s.ownedCourse(ctx, op, courseID, authorID)
	if err != nil {
		return err
	}
	row, err := s.contents.GetByIDForCourse(ctx, nil, contentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "content not found", err)
		}
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row.Kind != types.ContentKindText {
		return domainagg.NewError(domainagg.CodeValidation, op, "only text content can be patched", nil)
	}
	if strings.TrimSpace(text) == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "text content requires a body", nil)
	}
	if referencedOutsideDraft(c, contentID) {
		return domainagg.NewError(domainagg.CodeConflict, op, "content is part of a submitted or released version", nil)
	}
	err = s.contents.UpdateFields(ctx, nil, contentID, map[string]any{
		"text":       text,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return nil
}

// referencedOutsideDraft reports whether any non-draft version links the content.
func referencedOutsideDraft(c *types.Course, contentID uuid.UUID) bool {
	for _, v := range c.Versions.Data() {
		if v == nil || v.Status == types.VersionDraft {
			continue
		}
		if v.ContainsContent(contentID) {
			return true
		}
	}
	return false
}

// DeleteContent removes an unreferenced content row and its storage object.
func (s *ContentService) DeleteContent(ctx context.Context, courseID, authorID, contentID uuid.UUID) error {
	const op = "content.delete"
	c, err := s.ownedCourse(ctx, op, courseID, authorID)
	if err != nil {
		return err
	}
	row, err := s.contents.GetByIDForCourse(ctx, nil, contentID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "content not found", err)
		}
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	for _, v := range c.Versions.Data() {
		if v != nil && v.ContainsContent(contentID) {
			return domainagg.NewError(domainagg.CodeConflict, op,
				fmt.Sprintf("content is linked from version %d; unlink it first", v.Version), nil)
		}
	}
	if err := s.contents.DeleteByIDs(ctx, nil, []uuid.UUID{contentID}); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row.StorageKey != "" && s.bucket != nil {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryVideo, row.StorageKey); err != nil {
			s.log.Warn("Content object delete failed", "key", row.StorageKey, "error", err)
		}
	}
	return nil
}

// DeleteContentByName resolves a content row by name and deletes it.
func (s *ContentService) DeleteContentByName(ctx context.Context, courseID, authorID uuid.UUID, name string) error {
	const op = "content.delete_by_name"
	row, err := s.contents.GetByName(ctx, nil, courseID, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "content not found", err)
		}
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return s.DeleteContent(ctx, courseID, authorID, row.ID)
}

type CreateResourceInput struct {
	CourseID uuid.UUID
	AuthorID uuid.UUID
	Name     string
	Size     int64
	File     io.Reader
	FileName string
}

// CreateResource uploads the attachment and stores its row.
func (s *ContentService) CreateResource(ctx context.Context, in CreateResourceInput) (*types.Resource, error) {
	const op = "resource.create"
	if _, err := s.ownedCourse(ctx, op, in.CourseID, in.AuthorID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "resource name is required", nil)
	}
	if in.File == nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "resource requires a file", nil)
	}
	if err := s.requireBucket(op); err != nil {
		return nil, err
	}

	row := &types.Resource{
		ID:         uuid.New(),
		CourseID:   in.CourseID,
		AuthorID:   in.AuthorID,
		Name:       name,
		Size:       in.Size,
		StorageKey: fmt.Sprintf("courses/%s/resources/%s/%s", in.CourseID, uuid.New(), strings.TrimSpace(in.FileName)),
	}
	if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryResource, row.StorageKey, in.File); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	created, err := s.resources.Create(ctx, nil, []*types.Resource{row})
	if err != nil {
		if delErr := s.bucket.DeleteFile(ctx, gcp.BucketCategoryResource, row.StorageKey); delErr != nil {
			s.log.Warn("Orphaned resource object cleanup failed", "key", row.StorageKey, "error", delErr)
		}
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return created[0], nil
}

// DeleteResource removes an unreferenced resource row; the storage delete is
// best-effort.
func (s *ContentService) DeleteResource(ctx context.Context, courseID, authorID, resourceID uuid.UUID) error {
	const op = "resource.delete"
	c, err := s.ownedCourse(ctx, op, courseID, authorID)
	if err != nil {
		return err
	}
	row, err := s.resources.GetByIDForCourse(ctx, nil, resourceID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainagg.NewError(domainagg.CodeNotFound, op, "resource not found", err)
		}
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	for _, v := range c.Versions.Data() {
		if v != nil && v.ContainsResource(resourceID) {
			return domainagg.NewError(domainagg.CodeConflict, op,
				fmt.Sprintf("resource is linked from version %d; unlink it first", v.Version), nil)
		}
	}
	if err := s.resources.DeleteByIDs(ctx, nil, []uuid.UUID{resourceID}); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if s.bucket != nil {
		if err := s.bucket.DeleteFile(ctx, gcp.BucketCategoryResource, row.StorageKey); err != nil {
			s.log.Warn("Resource object delete failed", "key", row.StorageKey, "error", err)
		}
	}
	return nil
}

// ResourceURL returns a signed download link for the course author or a
// purchaser, verifying the object still exists first.
func (s *ContentService) ResourceURL(ctx context.Context, courseID, userID, resourceID uuid.UUID) (string, error) {
	const op = "resource.url"
	row, err := s.resources.GetByIDForCourse(ctx, nil, resourceID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domainagg.NewError(domainagg.CodeNotFound, op, "resource not found", err)
		}
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	u, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domainagg.NewError(domainagg.CodeNotFound, op, "user not found", err)
		}
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if row.AuthorID != userID && !u.HasPurchased(courseID) {
		return "", domainagg.NewError(domainagg.CodeForbidden, op, "resource downloads require owning or purchasing the course", nil)
	}
	if err := s.requireBucket(op); err != nil {
		return "", err
	}
	exists, err := s.bucket.FileExists(ctx, gcp.BucketCategoryResource, row.StorageKey)
	if err != nil {
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !exists {
		return "", domainagg.NewError(domainagg.CodeNotFound, op, "resource object is missing from storage", nil)
	}
	url, err := s.bucket.SignedReadURL(gcp.BucketCategoryResource, row.StorageKey, resourceURLExpiry)
	if err != nil {
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return url, nil
}

type CreateCouponInput struct {
	CourseID  uuid.UUID
	AuthorID  uuid.UUID
	Code      string
	MaxUsage  int
	ExpiresAt *time.Time
}

// CreateCoupon stores a redemption code; codes are unique within a course.
func (s *ContentService) CreateCoupon(ctx context.Context, in CreateCouponInput) (*types.Coupon, error) {
	const op = "coupon.create"
	if _, err := s.ownedCourse(ctx, op, in.CourseID, in.AuthorID); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "coupon code is required", nil)
	}
	exists, err := s.coupons.ExistsByCode(ctx, nil, in.CourseID, code)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if exists {
		return nil, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("coupon code %q already exists", code), nil)
	}
	created, err := s.coupons.Create(ctx, nil, []*types.Coupon{{
		CourseID:  in.CourseID,
		AuthorID:  in.AuthorID,
		Code:      code,
		MaxUsage:  in.MaxUsage,
		ExpiresAt: in.ExpiresAt,
	}})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return created[0], nil
}
