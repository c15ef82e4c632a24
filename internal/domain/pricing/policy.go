package pricing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Policy kinds.
const (
	PolicyTypeSmartPrice = "smart_price"
	PolicyTypeDiscount   = "discount"
	PolicyTypeOverride   = "override"
)

// Value kinds.
const (
	ValueTypeFixed      = "fixed"
	ValueTypePercentage = "percentage"
)

// Course targeting modes.
const (
	TargetModeVersion = "version"
	TargetModeCourse  = "course"
)

// MaxExpiryMonthsAhead bounds how far in the future a policy may expire.
const MaxExpiryMonthsAhead = 6

// PricingPolicy is a standalone time-bounded discount/override rule scoped to
// courses, versions, and users.
type PricingPolicy struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code string    `gorm:"column:code;index" json:"code,omitempty"`

	Type      string  `gorm:"column:type;not null;index" json:"type"`
	ValueType string  `gorm:"column:value_type;not null" json:"value_type"`
	Value     float64 `gorm:"column:value;not null" json:"value"`
	// InitialValue preserves the pre-override display price for catalog
	// projections when ShowOriginalPrice is unset.
	InitialValue float64 `gorm:"column:initial_value;not null;default:0" json:"initial_value"`

	Courses             datatypes.JSONSlice[uuid.UUID] `gorm:"column:courses;type:jsonb" json:"courses"`
	ExcludedCourses     datatypes.JSONSlice[uuid.UUID] `gorm:"column:excluded_courses;type:jsonb" json:"excluded_courses"`
	CourseTargetMode    string                         `gorm:"column:course_target_mode" json:"course_target_mode"`
	TargetCourseVersion datatypes.JSONSlice[int]       `gorm:"column:target_course_version;type:jsonb" json:"target_course_version"`
	Users               datatypes.JSONSlice[uuid.UUID] `gorm:"column:users;type:jsonb" json:"users"`
	ExcludedUsers       datatypes.JSONSlice[uuid.UUID] `gorm:"column:excluded_users;type:jsonb" json:"excluded_users"`

	IsAutoApplicable       bool `gorm:"column:is_auto_applicable;not null;default:false" json:"is_auto_applicable"`
	IsActive               bool `gorm:"column:is_active;not null;default:false;index" json:"is_active"`
	ShowOriginalPrice      bool `gorm:"column:show_original_price;not null;default:false" json:"show_original_price"`
	AllowGlobalDiscounts   bool `gorm:"column:allow_global_discounts;not null;default:false" json:"allow_global_discounts"`
	AllowCourseDiscounts   bool `gorm:"column:allow_course_discounts;not null;default:false" json:"allow_course_discounts"`
	AllowDiscountsForGifts bool `gorm:"column:allow_discounts_for_gifts;not null;default:false" json:"allow_discounts_for_gifts"`
	MaxUsage               int  `gorm:"column:max_usage;not null;default:0" json:"max_usage"`

	StartDate  time.Time `gorm:"column:start_date;not null" json:"start_date"`
	ExpiryDate time.Time `gorm:"column:expiry_date;not null;index" json:"expiry_date"`

	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PricingPolicy) TableName() string { return "pricing_policy" }

// ActiveAt reports whether the policy is active and its window contains now.
func (p *PricingPolicy) ActiveAt(now time.Time) bool {
	if p == nil || !p.IsActive {
		return false
	}
	return !now.Before(p.StartDate) && !now.After(p.ExpiryDate)
}

// TargetsCourse reports whether the policy's course scope includes the course.
func (p *PricingPolicy) TargetsCourse(courseID uuid.UUID) bool {
	if p == nil {
		return false
	}
	for _, id := range p.ExcludedCourses {
		if id == courseID {
			return false
		}
	}
	for _, id := range p.Courses {
		if id == courseID {
			return true
		}
	}
	return false
}

// TargetsVersion reports whether the policy applies to the given version
// number: course-wide policies apply to every version, version-scoped ones
// only to the listed numbers.
func (p *PricingPolicy) TargetsVersion(version int) bool {
	if p == nil {
		return false
	}
	if p.CourseTargetMode == TargetModeCourse {
		return true
	}
	for _, v := range p.TargetCourseVersion {
		if v == version {
			return true
		}
	}
	return false
}

// TargetsUser reports whether the policy's user scope admits the user. An
// empty Users list means "all users not explicitly excluded".
func (p *PricingPolicy) TargetsUser(userID uuid.UUID) bool {
	if p == nil {
		return false
	}
	for _, id := range p.ExcludedUsers {
		if id == userID {
			return false
		}
	}
	if len(p.Users) == 0 {
		return true
	}
	for _, id := range p.Users {
		if id == userID {
			return true
		}
	}
	return false
}
