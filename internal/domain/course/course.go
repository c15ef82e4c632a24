package course

import (
	"time"

	"github.com/google/uuid"
	"github.com/skillforge/skillforge-backend/internal/domain/user"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is the root aggregate: a document row holding the full version map
// as JSONB plus denormalized catalog metadata refreshed on release.
type Course struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AuthorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *user.User `gorm:"constraint:OnDelete:CASCADE;foreignKey:AuthorID;references:ID" json:"author,omitempty"`

	// DraftVersion / LiveVersion point into Versions by version number.
	DraftVersion *int `gorm:"column:draft_version" json:"draft_version,omitempty"`
	LiveVersion  *int `gorm:"column:live_version;index" json:"live_version,omitempty"`

	Versions datatypes.JSONType[VersionMap] `gorm:"column:versions;type:jsonb" json:"versions"`
	Meta     datatypes.JSONType[Meta]       `gorm:"column:meta;type:jsonb" json:"meta"`

	Rating          float64                     `gorm:"column:rating;not null;default:0" json:"rating"`
	RatingQty       int                         `gorm:"column:rating_qty;not null;default:0" json:"rating_qty"`
	StudentsQty     int                         `gorm:"column:students_qty;not null;default:0" json:"students_qty"`
	RatingBreakdown datatypes.JSONType[[5]int]  `gorm:"column:rating_breakdown;type:jsonb" json:"rating_breakdown"`
	Reviews         datatypes.JSONSlice[uuid.UUID] `gorm:"column:reviews;type:jsonb" json:"reviews"`

	// Revision is the optimistic-concurrency token: every aggregate write
	// compares-and-swaps on it and increments it.
	Revision int `gorm:"column:revision;not null;default:0" json:"revision"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

// Meta is the catalog snapshot of the live version. It is rebuilt from the
// released version as a whole; individual fields are never patched in place,
// except for the live-repricing path which rewrites Price alongside the
// version's own price fields.
type Meta struct {
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
	Price            int64    `json:"price"`
	AuthorName       string   `json:"author_name"`
	TotalLectures    int      `json:"total_lectures"`
	TotalTime        int      `json:"total_time"`
	Languages        []string `json:"languages"`
}

// HasLive reports whether the course has a released version visible in catalog.
func (c *Course) HasLive() bool {
	return c != nil && c.LiveVersion != nil && *c.LiveVersion > 0
}

// Live returns the live version, or nil if the course was never released.
func (c *Course) Live() *Version {
	if c == nil || c.LiveVersion == nil {
		return nil
	}
	return c.Versions.Data()[*c.LiveVersion]
}

// Draft returns the version currently pointed at by DraftVersion, or nil.
func (c *Course) Draft() *Version {
	if c == nil || c.DraftVersion == nil {
		return nil
	}
	return c.Versions.Data()[*c.DraftVersion]
}

// Version returns the version with the given number, or nil.
func (c *Course) Version(n int) *Version {
	if c == nil {
		return nil
	}
	return c.Versions.Data()[n]
}
