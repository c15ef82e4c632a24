package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

type courseAggregate struct {
	deps      BaseDeps
	courses   repos.CourseRepo
	contents  repos.LectureContentRepo
	resources repos.ResourceRepo
	coupons   repos.CouponRepo
	policies  repos.PricingPolicyRepo
	users     repos.UserRepo
}

// NewCourseAggregate wires the course lifecycle aggregate.
func NewCourseAggregate(deps BaseDeps, r repos.All) domainagg.CourseAggregate {
	return &courseAggregate{
		deps:      deps.withDefaults(),
		courses:   r.Courses,
		contents:  r.Contents,
		resources: r.Resources,
		coupons:   r.Coupons,
		policies:  r.Policies,
		users:     r.Users,
	}
}

func (a *courseAggregate) Contract() domainagg.Contract {
	return domainagg.CourseAggregateContract
}

// saveCourse commits the in-memory course mutation with a revision CAS. The
// updates map must not set revision or updated_at itself.
func saveCourse(g CASGuard, dbc dbctx.Context, c *types.Course, updates map[string]any) error {
	updates["revision"] = c.Revision + 1
	ok, err := g.UpdateByRevision(dbc, types.Course{}.TableName(), c.ID, c.Revision, updates)
	if err != nil {
		return err
	}
	return RequireCASSuccess(ok, fmt.Sprintf("course %s revision %d is stale", c.ID, c.Revision))
}

func (a *courseAggregate) loadForAuthor(dbc dbctx.Context, courseID, authorID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil || authorID == uuid.Nil {
		return nil, ValidationError("course id and author id are required")
	}
	return a.courses.GetByIDForAuthor(dbc.Ctx, dbc.Tx, courseID, authorID)
}

func resolveVersion(c *types.Course, n int) (*course.Version, error) {
	v := c.Version(n)
	if v == nil {
		return nil, NotFoundError(fmt.Sprintf("course %s has no version %d", c.ID, n))
	}
	return v, nil
}

func (a *courseAggregate) CreateCourse(ctx context.Context, in domainagg.CreateCourseInput) (domainagg.CreateCourseResult, error) {
	var res domainagg.CreateCourseResult
	if in.AuthorID == uuid.Nil {
		return res, MapError("course.create", ValidationError("author id is required"))
	}

	err := executeWrite(ctx, a.deps, "course.create", func(dbc dbctx.Context) error {
		u, err := a.users.GetByID(dbc.Ctx, dbc.Tx, in.AuthorID)
		if err != nil {
			return err
		}
		if !u.IsAuthor {
			return ForbiddenError("only authors can create courses")
		}
		if !u.IsAuthorVerified && len(u.MyCourses) >= 1 {
			return ForbiddenError("unverified authors are limited to a single course")
		}
		unreleased, err := a.courses.CountUnreleasedByAuthor(dbc.Ctx, dbc.Tx, in.AuthorID)
		if err != nil {
			return err
		}
		if unreleased >= course.MaxVersionlessDrafts {
			return ForbiddenError(fmt.Sprintf("at most %d unreleased courses allowed", course.MaxVersionlessDrafts))
		}

		one := 1
		first := &course.Version{
			Version:   1,
			Status:    course.VersionDraft,
			PriceType: course.PriceTypeFixed,
			CreatedAt: in.Now,
			UpdatedAt: in.Now,
		}
		c := &types.Course{
			ID:           uuid.New(),
			AuthorID:     in.AuthorID,
			DraftVersion: &one,
			Versions:     datatypes.NewJSONType(course.VersionMap{1: first}),
			CreatedAt:    in.Now,
			UpdatedAt:    in.Now,
		}
		if _, err := a.courses.Create(dbc.Ctx, dbc.Tx, []*types.Course{c}); err != nil {
			return err
		}
		if err := a.users.AppendOwnedCourse(dbc.Ctx, dbc.Tx, in.AuthorID, c.ID); err != nil {
			return err
		}

		res = domainagg.CreateCourseResult{CourseID: c.ID, Version: 1, CreatedAt: in.Now}
		return nil
	})
	return res, err
}

func (a *courseAggregate) CreateDraftVersion(ctx context.Context, in domainagg.CreateDraftVersionInput) (domainagg.CreateDraftVersionResult, error) {
	var res domainagg.CreateDraftVersionResult
	err := executeRevisionWrite(ctx, a.deps, "course.create_draft_version", func(dbc dbctx.Context) error {
		u, err := a.users.GetByID(dbc.Ctx, dbc.Tx, in.AuthorID)
		if err != nil {
			return err
		}
		if !u.IsAuthor {
			return ForbiddenError("only authors can create draft versions")
		}
		if !u.IsAuthorVerified {
			return ForbiddenError("author verification required to create new versions")
		}

		c, err := a.loadForAuthor(dbc, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		if vm.Draft() != nil {
			return ConflictError("course already has a draft version")
		}

		src := vm.LatestReleasable()
		if src == nil {
			return InvariantError("course has no version to clone")
		}
		number := vm.NextNumber()
		vm[number] = src.CloneAsDraft(number, in.Now)

		if err := saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":      datatypes.NewJSONType(vm),
			"draft_version": number,
			"updated_at":    in.Now,
		}); err != nil {
			return err
		}

		res = domainagg.CreateDraftVersionResult{
			CourseID:   c.ID,
			Version:    number,
			ClonedFrom: src.Version,
			CreatedAt:  in.Now,
		}
		return nil
	})
	return res, err
}

func (a *courseAggregate) DeleteCourse(ctx context.Context, in domainagg.DeleteCourseInput) error {
	return executeWrite(ctx, a.deps, "course.delete", func(dbc dbctx.Context) error {
		c, err := a.loadForAuthor(dbc, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		if c.HasLive() {
			return InvariantError("released courses cannot be deleted")
		}
		for _, v := range c.Versions.Data() {
			if v != nil && v.Status == course.VersionOnline {
				return InvariantError("released courses cannot be deleted")
			}
		}

		if err := a.contents.DeleteByCourse(dbc.Ctx, dbc.Tx, c.ID); err != nil {
			return err
		}
		if err := a.resources.DeleteByCourse(dbc.Ctx, dbc.Tx, c.ID); err != nil {
			return err
		}
		if err := a.coupons.DeleteByCourse(dbc.Ctx, dbc.Tx, c.ID); err != nil {
			return err
		}
		if err := a.courses.FullDeleteByIDs(dbc.Ctx, dbc.Tx, []uuid.UUID{c.ID}); err != nil {
			return err
		}
		return a.users.RemoveOwnedCourse(dbc.Ctx, dbc.Tx, in.AuthorID, c.ID)
	})
}

func (a *courseAggregate) PatchVersion(ctx context.Context, in domainagg.PatchVersionInput) (domainagg.PatchVersionResult, error) {
	var res domainagg.PatchVersionResult
	if in.Patch.Empty() {
		return res, MapError("course.patch_version", ValidationError("patch is empty"))
	}
	if err := in.Patch.Validate(); err != nil {
		return res, MapError("course.patch_version", ValidationError(err.Error()))
	}

	err := executeRevisionWrite(ctx, a.deps, "course.patch_version", func(dbc dbctx.Context) error {
		c, err := a.loadForAuthor(dbc, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v, err := resolveVersion(c, in.Version)
		if err != nil {
			return err
		}

		repriceLive := v.Status == course.VersionOnline && in.Patch.PriceOnly()
		if v.Status != course.VersionDraft && !repriceLive {
			return ConflictError("only draft versions can be patched")
		}

		in.Patch.Apply(v, in.Now)
		if in.Patch.MinPrice != nil || in.Patch.Price != nil {
			if v.MinPrice > v.Price {
				return ValidationError("min price cannot exceed price")
			}
		}

		updates := map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		}
		// Live repricing rewrites the catalog snapshot price in the same commit.
		if repriceLive && c.LiveVersion != nil && *c.LiveVersion == in.Version {
			m := c.Meta.Data()
			m.Price = v.Price
			updates["meta"] = datatypes.NewJSONType(m)
		}
		if err := saveCourse(a.deps.CASGuard, dbc, c, updates); err != nil {
			return err
		}

		res = domainagg.PatchVersionResult{
			CourseID:  c.ID,
			Version:   in.Version,
			Status:    v.Status,
			UpdatedAt: in.Now,
		}
		return nil
	})
	return res, err
}

func (a *courseAggregate) AttachCoupon(ctx context.Context, in domainagg.AttachCouponInput) error {
	return executeRevisionWrite(ctx, a.deps, "course.attach_coupon", func(dbc dbctx.Context) error {
		c, err := a.loadForAuthor(dbc, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v, err := resolveVersion(c, in.Version)
		if err != nil {
			return err
		}
		if err := RequireStatusAllowed(v.Status, course.VersionDraft); err != nil {
			return err
		}
		if _, err := a.coupons.GetByIDForCourse(dbc.Ctx, dbc.Tx, in.CouponID, in.CourseID); err != nil {
			return err
		}
		for _, id := range v.Coupons {
			if id == in.CouponID {
				return nil
			}
		}
		v.Coupons = append(v.Coupons, in.CouponID)
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *courseAggregate) DetachCoupon(ctx context.Context, in domainagg.AttachCouponInput) error {
	return executeRevisionWrite(ctx, a.deps, "course.detach_coupon", func(dbc dbctx.Context) error {
		c, err := a.loadForAuthor(dbc, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v, err := resolveVersion(c, in.Version)
		if err != nil {
			return err
		}
		if err := RequireStatusAllowed(v.Status, course.VersionDraft); err != nil {
			return err
		}

		next := make([]uuid.UUID, 0, len(v.Coupons))
		for _, id := range v.Coupons {
			if id != in.CouponID {
				next = append(next, id)
			}
		}
		if len(next) == len(v.Coupons) {
			return nil
		}
		v.Coupons = next
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *courseAggregate) AttachPricingPolicy(ctx context.Context, in domainagg.AttachPricingPolicyInput) error {
	return executeRevisionWrite(ctx, a.deps, "course.attach_pricing_policy", func(dbc dbctx.Context) error {
		c, err := a.loadForAuthor(dbc, in.CourseID, in.AuthorID)
		if err != nil {
			return err
		}
		vm := c.Versions.Data()
		v, err := resolveVersion(c, in.Version)
		if err != nil {
			return err
		}

		p, err := a.policies.GetByID(dbc.Ctx, dbc.Tx, in.PolicyID)
		if err != nil {
			return err
		}
		if p.CreatedBy != in.AuthorID {
			return ForbiddenError("policy belongs to another user")
		}
		if v.PriceType == course.PriceTypeSmart && p.Type != types.PolicyTypeSmartPrice {
			return ValidationError("cannot attach an override while the version uses smart pricing")
		}

		// Attaching via the course pins the policy scope to this one version.
		if err := a.policies.UpdateFields(dbc.Ctx, dbc.Tx, p.ID, map[string]any{
			"courses":               datatypes.NewJSONSlice([]uuid.UUID{c.ID}),
			"course_target_mode":    types.TargetModeVersion,
			"target_course_version": datatypes.NewJSONSlice([]int{in.Version}),
			"updated_at":            in.Now,
		}); err != nil {
			return err
		}

		for _, id := range v.PricingPolicies {
			if id == in.PolicyID {
				return nil
			}
		}
		v.PricingPolicies = append(v.PricingPolicies, in.PolicyID)
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}
