package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review record statuses. A record is terminal once it reaches rejected,
// released, or cancelled; approved is terminal-for-the-cycle but still awaits
// the release step of the publication saga.
const (
	StatusPendingReview = "pending_review"
	StatusInReview      = "in_review"
	StatusRejected      = "rejected"
	StatusApproved      = "approved"
	StatusReleased      = "released"
	StatusCancelled     = "cancelled"
)

// ReviewRecord tracks one review cycle of a (course, version) pair.
type ReviewRecord struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`
	AuthorID uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Version  int       `gorm:"column:version;not null" json:"version"`

	ReviewerID *uuid.UUID `gorm:"type:uuid;index" json:"reviewer_id,omitempty"`
	Status     string     `gorm:"column:status;not null;index" json:"status"`
	// Completed flips once the moderator decision lands (approved/rejected);
	// the release step only runs against completed approved records.
	Completed bool   `gorm:"column:completed;not null;default:false" json:"completed"`
	Note      string `gorm:"column:note" json:"note,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ReviewRecord) TableName() string { return "review_record" }

// Terminal reports whether no further transitions are allowed on the record.
func Terminal(status string) bool {
	switch status {
	case StatusRejected, StatusReleased, StatusCancelled:
		return true
	default:
		return false
	}
}

// AllowedTransition encodes the moderation state machine.
func AllowedTransition(from, to string) bool {
	switch from {
	case StatusPendingReview:
		return to == StatusInReview || to == StatusCancelled
	case StatusInReview:
		return to == StatusApproved || to == StatusRejected || to == StatusCancelled
	case StatusApproved:
		return to == StatusReleased
	default:
		return false
	}
}
