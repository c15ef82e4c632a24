package course

import (
	"time"

	"github.com/google/uuid"
)

// Version lifecycle states.
const (
	VersionDraft    = "draft"
	VersionInReview = "in_review"
	VersionRejected = "rejected"
	VersionApproved = "approved"
	VersionOnline   = "online"
)

// Price modes.
const (
	PriceTypeFixed = "fixed"
	PriceTypeSmart = "smart"
)

// Version is one entry in the course's version map. Versions are append-only
// by number; the number is the map key and immutable once created.
type Version struct {
	Version int    `json:"version"`
	Status  string `json:"status"`

	Title            string   `json:"title"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	AgeLimit         string   `json:"age_limit"`
	Level            string   `json:"level"`
	Category         string   `json:"category"`
	SubCategory      string   `json:"sub_category"`
	Topic            string   `json:"topic"`
	Keywords         []string `json:"keywords"`
	WhatYouWillLearn []string `json:"what_you_will_learn"`
	Requirements     []string `json:"requirements"`
	AboutAuthor      string   `json:"about_author"`
	Languages        []string `json:"languages"`

	Price             int64  `json:"price"`
	MinPrice          int64  `json:"min_price"`
	PriceType         string `json:"price_type"`
	ShowOriginalPrice bool   `json:"show_original_price"`

	Sections []*Section `json:"sections"`

	Coupons         []uuid.UUID `json:"coupons,omitempty"`
	PricingPolicies []uuid.UUID `json:"pricing_policies,omitempty"`
	ReviewRecordID  *uuid.UUID  `json:"review_record_id,omitempty"`

	// TotalLectures and TotalTime are maintained incrementally on every
	// lecture mutation, never recomputed wholesale.
	TotalLectures int `json:"total_lectures"`
	TotalTime     int `json:"total_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Section struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Lectures    []*Lecture `json:"lectures"`
}

type Lecture struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ContentID   *uuid.UUID  `json:"content_id,omitempty"`
	Duration    int         `json:"duration"`
	Preview     bool        `json:"preview"`
	Resources   []uuid.UUID `json:"resources,omitempty"`
}

// VersionMap keys versions by their positive integer number.
type VersionMap map[int]*Version

// Draft returns the single draft version, or nil. The aggregate guarantees at
// most one version is in draft at a time.
func (m VersionMap) Draft() *Version {
	for _, v := range m {
		if v != nil && v.Status == VersionDraft {
			return v
		}
	}
	return nil
}

// LatestReleasable returns the highest-numbered version whose status is online
// or approved; version 1 when no version has reached either state.
func (m VersionMap) LatestReleasable() *Version {
	var best *Version
	for _, v := range m {
		if v == nil {
			continue
		}
		if v.Status != VersionOnline && v.Status != VersionApproved {
			continue
		}
		if best == nil || v.Version > best.Version {
			best = v
		}
	}
	if best == nil {
		return m[1]
	}
	return best
}

// NextNumber returns the version number a newly created draft should take.
func (m VersionMap) NextNumber() int {
	max := 0
	for n := range m {
		if n > max {
			max = n
		}
	}
	return max + 1
}

// SectionByID resolves a section within the version.
func (v *Version) SectionByID(id uuid.UUID) *Section {
	if v == nil {
		return nil
	}
	for _, s := range v.Sections {
		if s != nil && s.ID == id {
			return s
		}
	}
	return nil
}

// LectureByID resolves a lecture and its owning section within the version.
func (v *Version) LectureByID(id uuid.UUID) (*Section, *Lecture) {
	if v == nil {
		return nil, nil
	}
	for _, s := range v.Sections {
		if s == nil {
			continue
		}
		for _, l := range s.Lectures {
			if l != nil && l.ID == id {
				return s, l
			}
		}
	}
	return nil, nil
}

// ContainsSection reports whether the version embeds the given section ID.
func (v *Version) ContainsSection(id uuid.UUID) bool {
	return v.SectionByID(id) != nil
}

// ContainsLecture reports whether the version embeds the given lecture ID.
func (v *Version) ContainsLecture(id uuid.UUID) bool {
	_, l := v.LectureByID(id)
	return l != nil
}

// ContainsContent reports whether any lecture in the version links the content.
func (v *Version) ContainsContent(contentID uuid.UUID) bool {
	if v == nil {
		return false
	}
	for _, s := range v.Sections {
		if s == nil {
			continue
		}
		for _, l := range s.Lectures {
			if l != nil && l.ContentID != nil && *l.ContentID == contentID {
				return true
			}
		}
	}
	return false
}

// ContainsResource reports whether any lecture in the version links the resource.
func (v *Version) ContainsResource(resourceID uuid.UUID) bool {
	if v == nil {
		return false
	}
	for _, s := range v.Sections {
		if s == nil {
			continue
		}
		for _, l := range s.Lectures {
			if l == nil {
				continue
			}
			for _, r := range l.Resources {
				if r == resourceID {
					return true
				}
			}
		}
	}
	return false
}

// CloneAsDraft produces a deep copy of the version as the next draft. The
// copy keeps all authored content but resets review bookkeeping.
func (v *Version) CloneAsDraft(number int, now time.Time) *Version {
	if v == nil {
		return &Version{Version: number, Status: VersionDraft, PriceType: PriceTypeFixed, CreatedAt: now, UpdatedAt: now}
	}
	next := *v
	next.Version = number
	next.Status = VersionDraft
	next.ReviewRecordID = nil
	next.CreatedAt = now
	next.UpdatedAt = now

	next.Keywords = append([]string(nil), v.Keywords...)
	next.WhatYouWillLearn = append([]string(nil), v.WhatYouWillLearn...)
	next.Requirements = append([]string(nil), v.Requirements...)
	next.Languages = append([]string(nil), v.Languages...)
	next.Coupons = append([]uuid.UUID(nil), v.Coupons...)
	next.PricingPolicies = append([]uuid.UUID(nil), v.PricingPolicies...)

	next.Sections = make([]*Section, 0, len(v.Sections))
	for _, s := range v.Sections {
		if s == nil {
			continue
		}
		sc := *s
		sc.Lectures = make([]*Lecture, 0, len(s.Lectures))
		for _, l := range s.Lectures {
			if l == nil {
				continue
			}
			lc := *l
			lc.Resources = append([]uuid.UUID(nil), l.Resources...)
			sc.Lectures = append(sc.Lectures, &lc)
		}
		next.Sections = append(next.Sections, &sc)
	}
	return &next
}

// MetaSnapshot builds the catalog meta document from this version.
func (v *Version) MetaSnapshot(authorName string) Meta {
	if v == nil {
		return Meta{}
	}
	return Meta{
		Title:            v.Title,
		ShortDescription: v.ShortDescription,
		Description:      v.Description,
		AgeLimit:         v.AgeLimit,
		Level:            v.Level,
		Category:         v.Category,
		SubCategory:      v.SubCategory,
		Topic:            v.Topic,
		Keywords:         append([]string(nil), v.Keywords...),
		WhatYouWillLearn: append([]string(nil), v.WhatYouWillLearn...),
		Price:            v.Price,
		AuthorName:       authorName,
		TotalLectures:    v.TotalLectures,
		TotalTime:        v.TotalTime,
		Languages:        append([]string(nil), v.Languages...),
	}
}
