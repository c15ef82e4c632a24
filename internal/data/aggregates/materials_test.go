package aggregates

import (
	"testing"

	"github.com/google/uuid"
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
)

func sectionsFixture() []*course.Section {
	return []*course.Section{
		{ID: uuid.New(), Title: "one"},
		{ID: uuid.New(), Title: "two"},
		{ID: uuid.New(), Title: "three"},
	}
}

func TestPermuteReorders(t *testing.T) {
	sections := sectionsFixture()
	ordering := []uuid.UUID{sections[2].ID, sections[0].ID, sections[1].ID}

	out, err := permute(sections, ordering, func(s *course.Section) uuid.UUID { return s.ID })
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i, id := range ordering {
		if out[i].ID != id {
			t.Fatalf("position %d: expected %s got %s", i, id, out[i].ID)
		}
	}
}

func TestPermuteRejectsPartialOrdering(t *testing.T) {
	sections := sectionsFixture()
	_, err := permute(sections, []uuid.UUID{sections[0].ID}, func(s *course.Section) uuid.UUID { return s.ID })
	if err == nil {
		t.Fatalf("expected validation error for partial ordering")
	}
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %v", err)
	}
}

func TestPermuteRejectsUnknownAndDuplicateIDs(t *testing.T) {
	sections := sectionsFixture()

	unknown := []uuid.UUID{sections[0].ID, sections[1].ID, uuid.New()}
	if _, err := permute(sections, unknown, func(s *course.Section) uuid.UUID { return s.ID }); err == nil {
		t.Fatalf("expected error for unknown id")
	}

	dup := []uuid.UUID{sections[0].ID, sections[0].ID, sections[1].ID}
	if _, err := permute(sections, dup, func(s *course.Section) uuid.UUID { return s.ID }); err == nil {
		t.Fatalf("expected error for duplicate id")
	}
}

func TestReferencedByNonDraft(t *testing.T) {
	sectionID := uuid.New()
	vm := course.VersionMap{
		1: {Version: 1, Status: course.VersionOnline, Sections: []*course.Section{{ID: sectionID}}},
		2: {Version: 2, Status: course.VersionDraft, Sections: []*course.Section{{ID: sectionID}}},
	}

	pinned := referencedByNonDraft(vm, 2, func(v *course.Version) bool {
		return v.ContainsSection(sectionID)
	})
	if !pinned {
		t.Fatalf("expected online version to pin the section")
	}

	vm[1].Status = course.VersionDraft
	pinned = referencedByNonDraft(vm, 2, func(v *course.Version) bool {
		return v.ContainsSection(sectionID)
	})
	if pinned {
		t.Fatalf("draft versions should not pin the section")
	}
}

func TestContentReferenced(t *testing.T) {
	contentID := uuid.New()
	draftLecture := &course.Lecture{ID: uuid.New(), ContentID: &contentID}
	liveLecture := &course.Lecture{ID: uuid.New(), ContentID: &contentID}
	vm := course.VersionMap{
		1: {Version: 1, Status: course.VersionOnline, Sections: []*course.Section{{ID: uuid.New(), Lectures: []*course.Lecture{liveLecture}}}},
		2: {Version: 2, Status: course.VersionDraft, Sections: []*course.Section{{ID: uuid.New(), Lectures: []*course.Lecture{draftLecture}}}},
	}

	skip := map[uuid.UUID]bool{draftLecture.ID: true}
	if !contentReferenced(vm, contentID, 2, skip) {
		t.Fatalf("live lecture should still reference the content")
	}

	vm[1].Sections[0].Lectures = nil
	if contentReferenced(vm, contentID, 2, skip) {
		t.Fatalf("content should be orphaned once only the skipped lecture links it")
	}
}
