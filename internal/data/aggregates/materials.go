package aggregates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

type materialEditorAggregate struct {
	deps      BaseDeps
	courses   repos.CourseRepo
	contents  repos.LectureContentRepo
	resources repos.ResourceRepo
}

// NewMaterialEditorAggregate wires the section/lecture editor aggregate.
func NewMaterialEditorAggregate(deps BaseDeps, r repos.All) domainagg.MaterialEditorAggregate {
	return &materialEditorAggregate{
		deps:      deps.withDefaults(),
		courses:   r.Courses,
		contents:  r.Contents,
		resources: r.Resources,
	}
}

func (a *materialEditorAggregate) Contract() domainagg.Contract {
	return domainagg.MaterialEditorContract
}

// loadDraft resolves the addressed version and requires it to be editable.
func (a *materialEditorAggregate) loadDraft(dbc dbctx.Context, key domainagg.MaterialKey) (*types.Course, course.VersionMap, *course.Version, error) {
	if key.CourseID == uuid.Nil || key.AuthorID == uuid.Nil {
		return nil, nil, nil, ValidationError("course id and author id are required")
	}
	c, err := a.courses.GetByIDForAuthor(dbc.Ctx, dbc.Tx, key.CourseID, key.AuthorID)
	if err != nil {
		return nil, nil, nil, err
	}
	vm := c.Versions.Data()
	v := vm[key.Version]
	if v == nil {
		return nil, nil, nil, NotFoundError(fmt.Sprintf("course %s has no version %d", c.ID, key.Version))
	}
	if v.Status != course.VersionDraft {
		return nil, nil, nil, ConflictError("course materials can only be edited on a draft version")
	}
	return c, vm, v, nil
}

// referencedByNonDraft reports whether any version other than exclude, with a
// status past draft, satisfies pred. Such references pin shared material.
func referencedByNonDraft(vm course.VersionMap, exclude int, pred func(*course.Version) bool) bool {
	for n, v := range vm {
		if n == exclude || v == nil || v.Status == course.VersionDraft {
			continue
		}
		if pred(v) {
			return true
		}
	}
	return false
}

// contentReferenced reports whether the content is still linked from any
// lecture in any version, skipping the given lecture IDs in the draft version.
func contentReferenced(vm course.VersionMap, contentID uuid.UUID, draftVersion int, skip map[uuid.UUID]bool) bool {
	for n, v := range vm {
		if v == nil {
			continue
		}
		for _, s := range v.Sections {
			if s == nil {
				continue
			}
			for _, l := range s.Lectures {
				if l == nil || l.ContentID == nil || *l.ContentID != contentID {
					continue
				}
				if n == draftVersion && skip[l.ID] {
					continue
				}
				return true
			}
		}
	}
	return false
}

func (a *materialEditorAggregate) CreateSection(ctx context.Context, in domainagg.CreateSectionInput) (domainagg.CreateSectionResult, error) {
	var res domainagg.CreateSectionResult
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > course.SectionTitleMaxLen {
		return res, MapError("materials.create_section", ValidationError(fmt.Sprintf("section title must be 1..%d characters", course.SectionTitleMaxLen)))
	}
	if len(in.Description) > course.SectionDescMaxLen {
		return res, MapError("materials.create_section", ValidationError(fmt.Sprintf("section description exceeds %d characters", course.SectionDescMaxLen)))
	}

	err := executeRevisionWrite(ctx, a.deps, "materials.create_section", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		section := &course.Section{
			ID:          uuid.New(),
			Title:       title,
			Description: in.Description,
			Lectures:    []*course.Lecture{},
		}
		v.Sections = append(v.Sections, section)
		v.UpdatedAt = in.Now

		if err := saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		}); err != nil {
			return err
		}
		res = domainagg.CreateSectionResult{SectionID: section.ID, CreatedAt: in.Now}
		return nil
	})
	return res, err
}

func (a *materialEditorAggregate) PatchSection(ctx context.Context, in domainagg.PatchSectionInput) error {
	if in.Title == nil && in.Description == nil {
		return MapError("materials.patch_section", ValidationError("patch is empty"))
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" || len(t) > course.SectionTitleMaxLen {
			return MapError("materials.patch_section", ValidationError(fmt.Sprintf("section title must be 1..%d characters", course.SectionTitleMaxLen)))
		}
	}
	if in.Description != nil && len(*in.Description) > course.SectionDescMaxLen {
		return MapError("materials.patch_section", ValidationError(fmt.Sprintf("section description exceeds %d characters", course.SectionDescMaxLen)))
	}

	return executeRevisionWrite(ctx, a.deps, "materials.patch_section", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		section := v.SectionByID(in.SectionID)
		if section == nil {
			return NotFoundError("section not found in version")
		}
		if in.Title != nil {
			section.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			section.Description = *in.Description
		}
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) DeleteSection(ctx context.Context, in domainagg.DeleteSectionInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.delete_section", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		section := v.SectionByID(in.SectionID)
		if section == nil {
			return NotFoundError("section not found in version")
		}
		if referencedByNonDraft(vm, in.Key.Version, func(other *course.Version) bool {
			return other.ContainsSection(in.SectionID)
		}) {
			return ConflictError("section is part of a submitted or released version")
		}

		removedLectures := 0
		removedTime := 0
		skip := make(map[uuid.UUID]bool, len(section.Lectures))
		var candidateContents []uuid.UUID
		for _, l := range section.Lectures {
			if l == nil {
				continue
			}
			removedLectures++
			removedTime += l.Duration
			skip[l.ID] = true
			if l.ContentID != nil {
				candidateContents = append(candidateContents, *l.ContentID)
			}
		}

		next := make([]*course.Section, 0, len(v.Sections))
		for _, s := range v.Sections {
			if s != nil && s.ID != in.SectionID {
				next = append(next, s)
			}
		}
		v.Sections = next
		v.TotalLectures -= removedLectures
		v.TotalTime -= removedTime
		v.UpdatedAt = in.Now

		var orphans []uuid.UUID
		for _, id := range candidateContents {
			if !contentReferenced(vm, id, in.Key.Version, skip) {
				orphans = append(orphans, id)
			}
		}
		if err := a.contents.DeleteByIDs(dbc.Ctx, dbc.Tx, orphans); err != nil {
			return err
		}

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) PermuteSections(ctx context.Context, in domainagg.PermuteSectionsInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.permute_sections", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		reordered, err := permute(v.Sections, in.Ordering, func(s *course.Section) uuid.UUID { return s.ID })
		if err != nil {
			return err
		}
		v.Sections = reordered
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

// permute reorders items by the given ID ordering, requiring the ordering to
// be exactly the current ID set.
func permute[T any](items []*T, ordering []uuid.UUID, idOf func(*T) uuid.UUID) ([]*T, error) {
	existing := make(map[uuid.UUID]*T, len(items))
	for _, it := range items {
		if it != nil {
			existing[idOf(it)] = it
		}
	}
	if len(ordering) != len(existing) {
		return nil, ValidationError("ordering must list every item exactly once")
	}
	out := make([]*T, 0, len(ordering))
	seen := make(map[uuid.UUID]bool, len(ordering))
	for _, id := range ordering {
		it, ok := existing[id]
		if !ok || seen[id] {
			return nil, ValidationError("ordering contains unknown or duplicate ids")
		}
		seen[id] = true
		out = append(out, it)
	}
	return out, nil
}

func (a *materialEditorAggregate) CreateLecture(ctx context.Context, in domainagg.CreateLectureInput) (domainagg.CreateLectureResult, error) {
	var res domainagg.CreateLectureResult
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > course.SectionTitleMaxLen {
		return res, MapError("materials.create_lecture", ValidationError(fmt.Sprintf("lecture title must be 1..%d characters", course.SectionTitleMaxLen)))
	}
	if in.Duration < 0 {
		return res, MapError("materials.create_lecture", ValidationError("duration must be >= 0"))
	}

	err := executeRevisionWrite(ctx, a.deps, "materials.create_lecture", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		section := v.SectionByID(in.SectionID)
		if section == nil {
			return NotFoundError("section not found in version")
		}

		duration := in.Duration
		if in.ContentID != nil {
			content, err := a.contents.GetByIDForCourse(dbc.Ctx, dbc.Tx, *in.ContentID, in.Key.CourseID)
			if err != nil {
				return err
			}
			duration = content.Duration
		}

		lecture := &course.Lecture{
			ID:          uuid.New(),
			Title:       title,
			Description: in.Description,
			ContentID:   in.ContentID,
			Duration:    duration,
			Preview:     in.Preview,
		}
		section.Lectures = append(section.Lectures, lecture)
		v.TotalLectures++
		v.TotalTime += duration
		v.UpdatedAt = in.Now

		if err := saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		}); err != nil {
			return err
		}
		res = domainagg.CreateLectureResult{
			LectureID:     lecture.ID,
			TotalLectures: v.TotalLectures,
			TotalTime:     v.TotalTime,
			CreatedAt:     in.Now,
		}
		return nil
	})
	return res, err
}

func (a *materialEditorAggregate) PatchLecture(ctx context.Context, in domainagg.PatchLectureInput) error {
	if in.Title == nil && in.Description == nil && in.Preview == nil {
		return MapError("materials.patch_lecture", ValidationError("patch is empty"))
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" || len(t) > course.SectionTitleMaxLen {
			return MapError("materials.patch_lecture", ValidationError(fmt.Sprintf("lecture title must be 1..%d characters", course.SectionTitleMaxLen)))
		}
	}

	return executeRevisionWrite(ctx, a.deps, "materials.patch_lecture", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		_, lecture := v.LectureByID(in.LectureID)
		if lecture == nil {
			return NotFoundError("lecture not found in version")
		}
		if in.Title != nil {
			lecture.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			lecture.Description = *in.Description
		}
		if in.Preview != nil {
			lecture.Preview = *in.Preview
		}
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) DeleteLecture(ctx context.Context, in domainagg.DeleteLectureInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.delete_lecture", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		section, lecture := v.LectureByID(in.LectureID)
		if lecture == nil {
			return NotFoundError("lecture not found in version")
		}
		if referencedByNonDraft(vm, in.Key.Version, func(other *course.Version) bool {
			return other.ContainsLecture(in.LectureID)
		}) {
			return ConflictError("lecture is part of a submitted or released version")
		}

		next := make([]*course.Lecture, 0, len(section.Lectures))
		for _, l := range section.Lectures {
			if l != nil && l.ID != in.LectureID {
				next = append(next, l)
			}
		}
		section.Lectures = next
		v.TotalLectures--
		v.TotalTime -= lecture.Duration
		v.UpdatedAt = in.Now

		if lecture.ContentID != nil {
			skip := map[uuid.UUID]bool{in.LectureID: true}
			if !contentReferenced(vm, *lecture.ContentID, in.Key.Version, skip) {
				if err := a.contents.DeleteByIDs(dbc.Ctx, dbc.Tx, []uuid.UUID{*lecture.ContentID}); err != nil {
					return err
				}
			}
		}

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) PermuteLectures(ctx context.Context, in domainagg.PermuteLecturesInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.permute_lectures", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		section := v.SectionByID(in.SectionID)
		if section == nil {
			return NotFoundError("section not found in version")
		}
		reordered, err := permute(section.Lectures, in.Ordering, func(l *course.Lecture) uuid.UUID { return l.ID })
		if err != nil {
			return err
		}
		section.Lectures = reordered
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) LinkLectureContent(ctx context.Context, in domainagg.LinkLectureContentInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.link_lecture_content", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		_, lecture := v.LectureByID(in.LectureID)
		if lecture == nil {
			return NotFoundError("lecture not found in version")
		}
		content, err := a.contents.GetByIDForCourse(dbc.Ctx, dbc.Tx, in.ContentID, in.Key.CourseID)
		if err != nil {
			return err
		}

		v.TotalTime -= lecture.Duration
		lecture.ContentID = &content.ID
		lecture.Duration = content.Duration
		v.TotalTime += content.Duration
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) LinkLectureResource(ctx context.Context, in domainagg.LinkLectureResourceInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.link_lecture_resource", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		_, lecture := v.LectureByID(in.LectureID)
		if lecture == nil {
			return NotFoundError("lecture not found in version")
		}
		if _, err := a.resources.GetByIDForCourse(dbc.Ctx, dbc.Tx, in.ResourceID, in.Key.CourseID); err != nil {
			return err
		}
		for _, id := range lecture.Resources {
			if id == in.ResourceID {
				return nil
			}
		}
		lecture.Resources = append(lecture.Resources, in.ResourceID)
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}

func (a *materialEditorAggregate) UnlinkLectureResource(ctx context.Context, in domainagg.LinkLectureResourceInput) error {
	return executeRevisionWrite(ctx, a.deps, "materials.unlink_lecture_resource", func(dbc dbctx.Context) error {
		c, vm, v, err := a.loadDraft(dbc, in.Key)
		if err != nil {
			return err
		}
		_, lecture := v.LectureByID(in.LectureID)
		if lecture == nil {
			return NotFoundError("lecture not found in version")
		}
		if referencedByNonDraft(vm, in.Key.Version, func(other *course.Version) bool {
			return other.ContainsResource(in.ResourceID)
		}) {
			return ConflictError("resource is part of a submitted or released version")
		}

		next := make([]uuid.UUID, 0, len(lecture.Resources))
		for _, id := range lecture.Resources {
			if id != in.ResourceID {
				next = append(next, id)
			}
		}
		if len(next) == len(lecture.Resources) {
			return nil
		}
		lecture.Resources = next
		v.UpdatedAt = in.Now

		return saveCourse(a.deps.CASGuard, dbc, c, map[string]any{
			"versions":   datatypes.NewJSONType(vm),
			"updated_at": in.Now,
		})
	})
}
