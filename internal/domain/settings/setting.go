package settings

import (
	"time"

	"github.com/google/uuid"
)

// Well-known setting names.
const (
	CourseBasePrice = "courseBasePrice"
)

// Setting is a platform-level key/value knob.
type Setting struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name  string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Value string    `gorm:"column:value;not null" json:"value"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Setting) TableName() string { return "setting" }
