package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName    string    `gorm:"column:first_name" json:"first_name"`
	LastName     string    `gorm:"column:last_name" json:"last_name"`
	ContactEmail string    `gorm:"column:contact_email" json:"contact_email,omitempty"`

	IsAuthor         bool `gorm:"column:is_author;not null;default:false" json:"is_author"`
	IsAuthorVerified bool `gorm:"column:is_author_verified;not null;default:false" json:"is_author_verified"`

	MyCourses        datatypes.JSONSlice[uuid.UUID] `gorm:"column:my_courses;type:jsonb" json:"my_courses"`
	PurchasedCourses datatypes.JSONSlice[uuid.UUID] `gorm:"column:purchased_courses;type:jsonb" json:"purchased_courses"`
	GiftedCourses    datatypes.JSONSlice[uuid.UUID] `gorm:"column:gifted_courses;type:jsonb" json:"gifted_courses"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "app_user" }

// Owns reports whether the user's course list contains the given course.
func (u *User) Owns(courseID uuid.UUID) bool {
	if u == nil {
		return false
	}
	for _, id := range u.MyCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// HasPurchased reports whether the user bought or was gifted the course.
func (u *User) HasPurchased(courseID uuid.UUID) bool {
	if u == nil {
		return false
	}
	for _, id := range u.PurchasedCourses {
		if id == courseID {
			return true
		}
	}
	for _, id := range u.GiftedCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
