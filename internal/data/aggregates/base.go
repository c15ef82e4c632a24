package aggregates

import (
	"context"
	"strings"
	"time"

	domainagg "github.com/skillforge/skillforge-backend/internal/domain/aggregates"
	"github.com/skillforge/skillforge-backend/internal/platform/dbctx"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
	"gorm.io/gorm"
)

// revisionRetryAttempts bounds how often a write is replayed after losing a
// revision compare-and-set to a concurrent writer.
const revisionRetryAttempts = 3

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)

	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			deps.Hooks.IncConflict(op)
		}
		if domainagg.IsCode(mapped, domainagg.CodeRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return mapped
}

// executeRevisionWrite runs fn like executeWrite, but when the transaction
// loses a revision compare-and-set it replays the whole transaction (which
// re-reads the row) a bounded number of times before surfacing the conflict.
func executeRevisionWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	var err error
	for attempt := 0; attempt < revisionRetryAttempts; attempt++ {
		err = executeWrite(ctx, deps, op, fn)
		if err == nil || !IsStaleRevision(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		deps.Hooks.IncRetry(op)
	}
	return err
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
