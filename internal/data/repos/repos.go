// Package repos re-exports the per-area repositories so wiring code can
// depend on a single import path.
package repos

import (
	"github.com/skillforge/skillforge-backend/internal/data/repos/courses"
	"github.com/skillforge/skillforge-backend/internal/data/repos/pricing"
	"github.com/skillforge/skillforge-backend/internal/data/repos/review"
	"github.com/skillforge/skillforge-backend/internal/data/repos/settings"
	"github.com/skillforge/skillforge-backend/internal/data/repos/user"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CourseRepo = courses.CourseRepo
type LectureContentRepo = courses.LectureContentRepo
type ResourceRepo = courses.ResourceRepo
type CouponRepo = courses.CouponRepo
type PricingPolicyRepo = pricing.PricingPolicyRepo
type ReviewRecordRepo = review.ReviewRecordRepo
type UserRepo = user.UserRepo
type SettingRepo = settings.SettingRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return courses.NewCourseRepo(db, baseLog)
}

func NewLectureContentRepo(db *gorm.DB, baseLog *logger.Logger) LectureContentRepo {
	return courses.NewLectureContentRepo(db, baseLog)
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return courses.NewResourceRepo(db, baseLog)
}

func NewCouponRepo(db *gorm.DB, baseLog *logger.Logger) CouponRepo {
	return courses.NewCouponRepo(db, baseLog)
}

func NewPricingPolicyRepo(db *gorm.DB, baseLog *logger.Logger) PricingPolicyRepo {
	return pricing.NewPricingPolicyRepo(db, baseLog)
}

func NewReviewRecordRepo(db *gorm.DB, baseLog *logger.Logger) ReviewRecordRepo {
	return review.NewReviewRecordRepo(db, baseLog)
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return user.NewUserRepo(db, baseLog)
}

func NewSettingRepo(db *gorm.DB, baseLog *logger.Logger) SettingRepo {
	return settings.NewSettingRepo(db, baseLog)
}

// All bundles every repository for constructor injection.
type All struct {
	Courses   CourseRepo
	Contents  LectureContentRepo
	Resources ResourceRepo
	Coupons   CouponRepo
	Policies  PricingPolicyRepo
	Records   ReviewRecordRepo
	Users     UserRepo
	Settings  SettingRepo
}

func NewAll(db *gorm.DB, baseLog *logger.Logger) All {
	return All{
		Courses:   NewCourseRepo(db, baseLog),
		Contents:  NewLectureContentRepo(db, baseLog),
		Resources: NewResourceRepo(db, baseLog),
		Coupons:   NewCouponRepo(db, baseLog),
		Policies:  NewPricingPolicyRepo(db, baseLog),
		Records:   NewReviewRecordRepo(db, baseLog),
		Users:     NewUserRepo(db, baseLog),
		Settings:  NewSettingRepo(db, baseLog),
	}
}
