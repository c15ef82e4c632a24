package aggregates

import "testing"

func TestRequireStatusAllowed(t *testing.T) {
	if err := RequireStatusAllowed("draft", "draft", "in_review"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireStatusAllowed("online", "draft", "in_review"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestRequireRevisionMatch(t *testing.T) {
	if err := RequireRevisionMatch(3, 3); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireRevisionMatch(2, 3)
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if !IsStaleRevision(err) {
		t.Fatalf("expected stale revision marker, got %v", err)
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireCASSuccess(false, "stale")
	if err == nil {
		t.Fatalf("expected conflict error")
	}
	if !IsStaleRevision(err) {
		t.Fatalf("expected stale revision marker, got %v", err)
	}
}
