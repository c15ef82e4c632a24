package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	types "github.com/skillforge/skillforge-backend/internal/domain"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"github.com/skillforge/skillforge-backend/internal/pricing"
)

// SettingsService owns the platform key/value knobs. The only well-known one
// today is courseBasePrice, the smart-pricing floor.
type SettingsService struct {
	settings repos.SettingRepo
	log      *logger.Logger
}

func NewSettingsService(r repos.All, baseLog *logger.Logger) *SettingsService {
	return &SettingsService{
		settings: r.Settings,
		log:      baseLog.With("service", "SettingsService"),
	}
}

// CourseBasePrice returns the platform base price in cents, zero when unset.
func (s *SettingsService) CourseBasePrice(ctx context.Context) (int64, error) {
	const op = "settings.course_base_price"
	row, err := s.settings.GetByName(ctx, nil, types.SettingCourseBasePrice)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	cents, err := pricing.ParseBasePrice(row.Value)
	if err != nil {
		return 0, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return cents, nil
}

// SetCourseBasePrice validates and stores the base price (whole currency
// units, as entered by an operator).
func (s *SettingsService) SetCourseBasePrice(ctx context.Context, value string) error {
	const op = "settings.set_course_base_price"
	cents, err := pricing.ParseBasePrice(value)
	if err != nil {
		return domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	if cents < 0 {
		return domainagg.NewError(domainagg.CodeValidation, op, "base price cannot be negative", nil)
	}
	if err := s.settings.Upsert(ctx, nil, types.SettingCourseBasePrice, value); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	s.log.Info("Course base price updated", "value", value)
	return nil
}

// Get returns a raw setting value.
func (s *SettingsService) Get(ctx context.Context, name string) (string, error) {
	const op = "settings.get"
	row, err := s.settings.GetByName(ctx, nil, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domainagg.NewError(domainagg.CodeNotFound, op, "setting not found", err)
		}
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return row.Value, nil
}
