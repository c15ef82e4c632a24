package course

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lecture content kinds.
const (
	ContentKindVideo = "video"
	ContentKindText  = "text"
)

// LectureContent is the payload entity a lecture points at. Content rows are
// stored outside the aggregate because payloads are large; lectures reference
// them by ID and the reference must stay within the same course.
type LectureContent struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`

	Name       string `gorm:"column:name;not null;index" json:"name"`
	Kind       string `gorm:"column:kind;not null" json:"kind"`
	Text       string `gorm:"column:text;type:text" json:"text,omitempty"`
	StorageKey string `gorm:"column:storage_key" json:"storage_key,omitempty"`
	Duration   int    `gorm:"column:duration;not null;default:0" json:"duration"`

	// Renditions lists the transcoded resolutions available for video content.
	Renditions datatypes.JSONSlice[string] `gorm:"column:renditions;type:jsonb" json:"renditions"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (LectureContent) TableName() string { return "lecture_content" }

// Resource is a downloadable attachment linked from lectures.
type Resource struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`

	Name       string `gorm:"column:name;not null" json:"name"`
	StorageKey string `gorm:"column:storage_key;not null" json:"storage_key"`
	Size       int64  `gorm:"column:size;not null;default:0" json:"size"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Resource) TableName() string { return "resource" }

// Coupon is a course-scoped redemption code attachable to a version.
type Coupon struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`

	Code      string     `gorm:"column:code;not null;index" json:"code"`
	MaxUsage  int        `gorm:"column:max_usage;not null;default:0" json:"max_usage"`
	UsedCount int        `gorm:"column:used_count;not null;default:0" json:"used_count"`
	ExpiresAt *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Coupon) TableName() string { return "coupon" }
