package services

import (
	"time"

	"github.com/sirupsen/logrus"

	"signal-market/internal/ledger"
	"signal-market/internal/metrics"
)

// EventPublisher receives committed ledger events, e.g. the websocket hub.
type EventPublisher interface {
	Publish(marketID uint64, eventType string, data any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(uint64, string, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// recordOperation logs and counts one mutating ledger call.
func recordOperation(log logrus.FieldLogger, op string, start time.Time, fields logrus.Fields, err error) {
	entry := log.WithFields(fields).WithField("operation", op)
	result := "ok"
	switch {
	case err == nil:
		entry.Info("Ledger operation committed")
	case ledger.IsRejection(err):
		result = ledger.Reason(err)
		entry.WithField("reason", result).Warn("Ledger operation rejected")
	default:
		result = "error"
		entry.WithError(err).Error("Ledger operation failed")
	}
	metrics.RecordLedgerOperation(op, result, time.Since(start))
}
