package aggregates

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"gorm.io/gorm"
)

func TestMapErrorSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code domainagg.ErrorCode
	}{
		{ValidationError("bad input"), domainagg.CodeValidation},
		{NotFoundError("missing"), domainagg.CodeNotFound},
		{ForbiddenError("nope"), domainagg.CodeForbidden},
		{InvariantError("broken"), domainagg.CodeInvariantViolation},
		{ConflictError("raced"), domainagg.CodeConflict},
		{RetryableError("again"), domainagg.CodeRetryable},
		{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	}
	for _, c := range cases {
		mapped := MapError("test.op", c.err)
		if !domainagg.IsCode(mapped, c.code) {
			t.Fatalf("expected code %s for %v, got %v", c.code, c.err, mapped)
		}
	}
}

func TestMapErrorPgCodes(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if !domainagg.IsCode(MapError("op", unique), domainagg.CodeConflict) {
		t.Fatalf("expected conflict for unique violation")
	}
	fk := &pgconn.PgError{Code: "23503"}
	if !domainagg.IsCode(MapError("op", fk), domainagg.CodePreconditionFailed) {
		t.Fatalf("expected precondition_failed for fk violation")
	}
	dead := &pgconn.PgError{Code: "40P01"}
	if !domainagg.IsCode(MapError("op", dead), domainagg.CodeRetryable) {
		t.Fatalf("expected retryable for deadlock")
	}
}

func TestStaleRevisionSurvivesMapping(t *testing.T) {
	mapped := MapError("op", StaleRevisionError("course revision changed"))
	if !domainagg.IsCode(mapped, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %v", mapped)
	}
	if !IsStaleRevision(mapped) {
		t.Fatalf("stale marker lost through mapping: %v", mapped)
	}
	if IsStaleRevision(ConflictError("plain conflict")) {
		t.Fatalf("plain conflict should not read as stale revision")
	}
}

func TestMapErrorPassesAggregateErrors(t *testing.T) {
	orig := domainagg.NewError(domainagg.CodeForbidden, "op", "no", nil)
	if MapError("other", orig) != orig {
		t.Fatalf("expected aggregate error to pass through unchanged")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("expected nil mapping for nil error")
	}
	if !domainagg.IsCode(MapError("op", errors.New("connection timeout")), domainagg.CodeRetryable) {
		t.Fatalf("expected timeout message to map retryable")
	}
	if !domainagg.IsCode(MapError("op", errors.New("driver fell over")), domainagg.CodeInternal) {
		t.Fatalf("expected unknown failure to map internal")
	}
}
