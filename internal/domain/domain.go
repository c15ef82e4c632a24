package domain

import (
	"github.com/skillforge/skillforge-backend/internal/domain/course"
	"github.com/skillforge/skillforge-backend/internal/domain/pricing"
	"github.com/skillforge/skillforge-backend/internal/domain/review"
	"github.com/skillforge/skillforge-backend/internal/domain/settings"
	"github.com/skillforge/skillforge-backend/internal/domain/user"
)

type User = user.User

type Course = course.Course
type CourseMeta = course.Meta
type Version = course.Version
type VersionMap = course.VersionMap
type Section = course.Section
type Lecture = course.Lecture
type LectureContent = course.LectureContent
type Resource = course.Resource
type Coupon = course.Coupon

type PricingPolicy = pricing.PricingPolicy
type ReviewRecord = review.ReviewRecord
type Setting = settings.Setting

const (
	VersionDraft    = course.VersionDraft
	VersionInReview = course.VersionInReview
	VersionRejected = course.VersionRejected
	VersionApproved = course.VersionApproved
	VersionOnline   = course.VersionOnline

	PriceTypeFixed = course.PriceTypeFixed
	PriceTypeSmart = course.PriceTypeSmart

	ContentKindVideo = course.ContentKindVideo
	ContentKindText  = course.ContentKindText

	PolicyTypeSmartPrice = pricing.PolicyTypeSmartPrice
	PolicyTypeDiscount   = pricing.PolicyTypeDiscount
	PolicyTypeOverride   = pricing.PolicyTypeOverride

	ValueTypeFixed      = pricing.ValueTypeFixed
	ValueTypePercentage = pricing.ValueTypePercentage

	TargetModeVersion = pricing.TargetModeVersion
	TargetModeCourse  = pricing.TargetModeCourse

	ReviewPendingReview = review.StatusPendingReview
	ReviewInReview      = review.StatusInReview
	ReviewRejected      = review.StatusRejected
	ReviewApproved      = review.StatusApproved
	ReviewReleased      = review.StatusReleased
	ReviewCancelled     = review.StatusCancelled

	SettingCourseBasePrice = settings.CourseBasePrice
)
