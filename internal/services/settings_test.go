package services_test

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/skillforge/skillforge-backend/internal/data/repos"
	"github.com/skillforge/skillforge-backend/internal/data/repos/testutil"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/services"
)

func settingsSetup(t *testing.T) (context.Context, *gorm.DB, *services.SettingsService) {
	t.Helper()
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	all := repos.NewAll(tx, log)
	return context.Background(), tx, services.NewSettingsService(all, log)
}

func TestCourseBasePriceRoundTrip(t *testing.T) {
	ctx, _, svc := settingsSetup(t)

	// Unset reads as zero, not an error.
	cents, err := svc.CourseBasePrice(ctx)
	if err != nil {
		t.Fatalf("base price when unset: %v", err)
	}
	if cents != 0 {
		t.Fatalf("expected 0 cents when unset, got %d", cents)
	}

	if err := svc.SetCourseBasePrice(ctx, "25"); err != nil {
		t.Fatalf("set base price: %v", err)
	}
	cents, err = svc.CourseBasePrice(ctx)
	if err != nil {
		t.Fatalf("base price after set: %v", err)
	}
	if cents != 2500 {
		t.Fatalf("expected 2500 cents, got %d", cents)
	}

	// Upsert overwrites.
	if err := svc.SetCourseBasePrice(ctx, "19.99"); err != nil {
		t.Fatalf("overwrite base price: %v", err)
	}
	cents, err = svc.CourseBasePrice(ctx)
	if err != nil {
		t.Fatalf("base price after overwrite: %v", err)
	}
	if cents != 1999 {
		t.Fatalf("expected 1999 cents, got %d", cents)
	}
}

func TestSetCourseBasePriceRejectsGarbage(t *testing.T) {
	ctx, _, svc := settingsSetup(t)

	for _, bad := range []string{"", "free", "-5"} {
		if err := svc.SetCourseBasePrice(ctx, bad); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("value %q: expected validation error, got %v", bad, err)
		}
	}
}

func TestGetUnknownSetting(t *testing.T) {
	ctx, _, svc := settingsSetup(t)

	if _, err := svc.Get(ctx, "doesNotExist"); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
