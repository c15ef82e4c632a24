package course

import "encoding/json"

// materialFields strips the fields that never count toward "did the author change
// anything" when a draft is submitted against an existing live version:
// lifecycle bookkeeping, price snapshots, and timestamps.
type materialFields struct {
	Title            string     `json:"title"`
	ShortDescription string     `json:"short_description"`
	Description      string     `json:"description"`
	AgeLimit         string     `json:"age_limit"`
	Level            string     `json:"level"`
	Category         string     `json:"category"`
	SubCategory      string     `json:"sub_category"`
	Topic            string     `json:"topic"`
	Keywords         []string   `json:"keywords"`
	WhatYouWillLearn []string   `json:"what_you_will_learn"`
	Requirements     []string   `json:"requirements"`
	AboutAuthor      string     `json:"about_author"`
	Languages        []string   `json:"languages"`
	Sections         []*Section `json:"sections"`
}

func materialOf(v *Version) materialFields {
	if v == nil {
		return materialFields{}
	}
	return materialFields{
		Title:            v.Title,
		ShortDescription: v.ShortDescription,
		Description:      v.Description,
		AgeLimit:         v.AgeLimit,
		Level:            v.Level,
		Category:         v.Category,
		SubCategory:      v.SubCategory,
		Topic:            v.Topic,
		Keywords:         v.Keywords,
		WhatYouWillLearn: v.WhatYouWillLearn,
		Requirements:     v.Requirements,
		AboutAuthor:      v.AboutAuthor,
		Languages:        v.Languages,
		Sections:         v.Sections,
	}
}

// SameContent reports whether two versions are materially identical, ignoring
// version number, status, review/pricing bookkeeping, and timestamps. Used to
// reject no-op review submissions against the current live version.
func SameContent(a, b *Version) bool {
	ja, errA := json.Marshal(materialOf(a))
	jb, errB := json.Marshal(materialOf(b))
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}
