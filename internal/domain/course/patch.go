package course

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// VersionPatch is the explicit allow-list of author-editable version fields.
// Anything not representable here cannot be patched through the aggregate;
// callers submitting unknown fields are rejected outright rather than having
// them silently dropped.
type VersionPatch struct {
	Title            *string   `json:"title,omitempty"`
	ShortDescription *string   `json:"short_description,omitempty"`
	Description      *string   `json:"description,omitempty"`
	AgeLimit         *string   `json:"age_limit,omitempty"`
	Level            *string   `json:"level,omitempty"`
	Category         *string   `json:"category,omitempty"`
	SubCategory      *string   `json:"sub_category,omitempty"`
	Topic            *string   `json:"topic,omitempty"`
	Keywords         *[]string `json:"keywords,omitempty"`
	WhatYouWillLearn *[]string `json:"what_you_will_learn,omitempty"`
	Requirements     *[]string `json:"requirements,omitempty"`
	AboutAuthor      *string   `json:"about_author,omitempty"`
	Languages        *[]string `json:"languages,omitempty"`

	Price             *int64  `json:"price,omitempty"`
	MinPrice          *int64  `json:"min_price,omitempty"`
	PriceType         *string `json:"price_type,omitempty"`
	ShowOriginalPrice *bool   `json:"show_original_price,omitempty"`
}

// PatchFromJSON decodes a caller-supplied patch document, failing on any
// field outside the allow-list.
func PatchFromJSON(raw []byte) (VersionPatch, error) {
	var p VersionPatch
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return VersionPatch{}, fmt.Errorf("patch contains non-editable or malformed fields: %w", err)
	}
	return p, nil
}

// Empty reports whether the patch changes nothing.
func (p VersionPatch) Empty() bool {
	return p == VersionPatch{}
}

// PriceOnly reports whether the patch touches nothing but the repricing
// fields. Such patches are permitted on an online version.
func (p VersionPatch) PriceOnly() bool {
	if p.Empty() {
		return false
	}
	stripped := p
	stripped.Price = nil
	stripped.MinPrice = nil
	stripped.PriceType = nil
	return stripped == (VersionPatch{})
}

// Validate checks field bounds for every field present in the patch.
func (p VersionPatch) Validate() error {
	if p.Title != nil {
		if n := len(*p.Title); n < TitleMinLen || n > TitleMaxLen {
			return fmt.Errorf("title length must be between %d and %d", TitleMinLen, TitleMaxLen)
		}
	}
	if p.ShortDescription != nil && len(*p.ShortDescription) > ShortDescMaxLen {
		return fmt.Errorf("short description exceeds %d characters", ShortDescMaxLen)
	}
	if p.Description != nil && len(*p.Description) > DescriptionMaxLen {
		return fmt.Errorf("description exceeds %d characters", DescriptionMaxLen)
	}
	if p.AboutAuthor != nil && len(*p.AboutAuthor) > AboutAuthorMaxLen {
		return fmt.Errorf("about author exceeds %d characters", AboutAuthorMaxLen)
	}
	if p.Keywords != nil {
		if len(*p.Keywords) > KeywordsMax {
			return fmt.Errorf("at most %d keywords allowed", KeywordsMax)
		}
		for _, k := range *p.Keywords {
			if len(k) > KeywordMaxLen {
				return fmt.Errorf("keyword %q exceeds %d characters", k, KeywordMaxLen)
			}
		}
	}
	if p.WhatYouWillLearn != nil && len(*p.WhatYouWillLearn) > LearnItemsMax {
		return fmt.Errorf("at most %d learning outcomes allowed", LearnItemsMax)
	}
	if p.Requirements != nil && len(*p.Requirements) > RequirementsMax {
		return fmt.Errorf("at most %d requirements allowed", RequirementsMax)
	}
	if p.Price != nil && (*p.Price < PriceMin || *p.Price > PriceMax) {
		return fmt.Errorf("price out of range")
	}
	if p.MinPrice != nil && (*p.MinPrice < PriceMin || *p.MinPrice > PriceMax) {
		return fmt.Errorf("min price out of range")
	}
	if p.PriceType != nil && *p.PriceType != PriceTypeFixed && *p.PriceType != PriceTypeSmart {
		return fmt.Errorf("unknown price type %q", *p.PriceType)
	}
	return nil
}

// Apply writes the patch onto the version. Apply is idempotent: applying the
// same patch twice yields the same version.
func (p VersionPatch) Apply(v *Version, now time.Time) {
	if v == nil {
		return
	}
	if p.Title != nil {
		v.Title = *p.Title
	}
	if p.ShortDescription != nil {
		v.ShortDescription = *p.ShortDescription
	}
	if p.Description != nil {
		v.Description = *p.Description
	}
	if p.AgeLimit != nil {
		v.AgeLimit = *p.AgeLimit
	}
	if p.Level != nil {
		v.Level = *p.Level
	}
	if p.Category != nil {
		v.Category = *p.Category
	}
	if p.SubCategory != nil {
		v.SubCategory = *p.SubCategory
	}
	if p.Topic != nil {
		v.Topic = *p.Topic
	}
	if p.Keywords != nil {
		v.Keywords = append([]string(nil), *p.Keywords...)
	}
	if p.WhatYouWillLearn != nil {
		v.WhatYouWillLearn = append([]string(nil), *p.WhatYouWillLearn...)
	}
	if p.Requirements != nil {
		v.Requirements = append([]string(nil), *p.Requirements...)
	}
	if p.AboutAuthor != nil {
		v.AboutAuthor = *p.AboutAuthor
	}
	if p.Languages != nil {
		v.Languages = append([]string(nil), *p.Languages...)
	}
	if p.Price != nil {
		v.Price = *p.Price
	}
	if p.MinPrice != nil {
		v.MinPrice = *p.MinPrice
	}
	if p.PriceType != nil {
		v.PriceType = *p.PriceType
	}
	if p.ShowOriginalPrice != nil {
		v.ShowOriginalPrice = *p.ShowOriginalPrice
	}
	v.UpdatedAt = now
}
