package worker

import (
	"log/slog"
	"sync/atomic"
	"time"

	"expenses/internal/amqp"
	applog "expenses/internal/log"
	"expenses/internal/services"
)

// AuditWorker records a structured audit trail of expense mutations consumed
// from the event queue. The log output is the audit record; the worker keeps
// no state beyond counters.
type AuditWorker struct {
	created int64
	updated int64
	deleted int64
}

func NewAuditWorker() *AuditWorker {
	return &AuditWorker{}
}

// Stats is a snapshot of processed event counts.
type Stats struct {
	Created int64
	Updated int64
	Deleted int64
}

// HandleEvent processes a single mutation event. A handler error makes the
// consumer requeue the delivery, so an unknown action is logged and dropped
// here instead of returned: requeueing could never make it processable.
func (w *AuditWorker) HandleEvent(msg *amqp.ExpenseEventMessage) error {
	var counter *int64
	switch msg.Action {
	case services.EventCreated:
		counter = &w.created
	case services.EventUpdated:
		counter = &w.updated
	case services.EventDeleted:
		counter = &w.deleted
	default:
		slog.Warn("Dropping event with unknown action",
			applog.FieldExpenseID, msg.ID,
			applog.FieldAction, msg.Action,
			applog.FieldOwner, msg.Owner)
		return nil
	}
	atomic.AddInt64(counter, 1)

	slog.Info("Expense mutation audited",
		applog.FieldExpenseID, msg.ID,
		applog.FieldAction, msg.Action,
		applog.FieldOwner, msg.Owner,
		applog.FieldTotal, msg.TotalAmount,
		"occurred_at", msg.Timestamp.Format(time.RFC3339),
		"lag_ms", time.Since(msg.Timestamp).Milliseconds())

	return nil
}

// Stats returns the counts of events processed so far.
func (w *AuditWorker) Stats() Stats {
	return Stats{
		Created: atomic.LoadInt64(&w.created),
		Updated: atomic.LoadInt64(&w.updated),
		Deleted: atomic.LoadInt64(&w.deleted),
	}
}
