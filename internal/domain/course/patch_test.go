package course_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/skillforge/skillforge-backend/internal/domain/course"
)

func TestPatchApplyIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	title := "a reasonably long course title"
	desc := "short pitch"
	keywords := []string{"go", "backend"}
	price := int64(4900)
	smart := course.PriceTypeSmart
	p := course.VersionPatch{
		Title:            &title,
		ShortDescription: &desc,
		Keywords:         &keywords,
		Price:            &price,
		PriceType:        &smart,
	}

	v := &course.Version{Version: 1, Status: course.VersionDraft, Title: "old", PriceType: course.PriceTypeFixed}
	p.Apply(v, now)
	once := *v
	once.Keywords = append([]string(nil), v.Keywords...)

	p.Apply(v, now)
	if !reflect.DeepEqual(*v, once) {
		t.Fatalf("second apply changed the version:\nfirst:  %+v\nsecond: %+v", once, *v)
	}
	if v.Title != title || v.Price != price || v.PriceType != course.PriceTypeSmart {
		t.Fatalf("patch fields not applied: %+v", *v)
	}
}

func TestPatchFromJSONRejectsUnknownFields(t *testing.T) {
	if _, err := course.PatchFromJSON([]byte(`{"title":"a reasonably long course title","status":"online"}`)); err == nil {
		t.Fatalf("expected rejection of non-editable field")
	}
	p, err := course.PatchFromJSON([]byte(`{"title":"a reasonably long course title"}`))
	if err != nil {
		t.Fatalf("allow-listed patch: %v", err)
	}
	if p.Title == nil || *p.Title != "a reasonably long course title" {
		t.Fatalf("expected title decoded, got %+v", p)
	}
}
