package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"signal-market/internal/blob"
	"signal-market/internal/metrics"
	"signal-market/internal/models"
)

const archiveBatchSize = 50

// ReportSource lists resolved markets awaiting archival and builds their
// reports.
type ReportSource interface {
	Unarchived(ctx context.Context, limit int) ([]*models.Market, error)
	Build(ctx context.Context, m *models.Market) (*models.SettlementReport, error)
	MarkArchived(ctx context.Context, id uint64) error
}

// PayoutRetrier re-attempts payouts custody has not released.
type PayoutRetrier interface {
	ReleasePending(ctx context.Context, limit int) (int, error)
}

// SettlementArchiver writes one settlement report per resolved market to
// blob storage and retries pending payouts on the same schedule.
type SettlementArchiver struct {
	reports  ReportSource
	payouts  PayoutRetrier
	writer   blob.Writer
	prefix   string
	interval time.Duration
	log      logrus.FieldLogger
}

// NewSettlementArchiver creates the job. A nil writer disables archiving;
// payout retries still run.
func NewSettlementArchiver(reports ReportSource, payouts PayoutRetrier, writer blob.Writer, prefix string, interval time.Duration, log logrus.FieldLogger) *SettlementArchiver {
	return &SettlementArchiver{
		reports:  reports,
		payouts:  payouts,
		writer:   writer,
		prefix:   prefix,
		interval: interval,
		log:      log.WithField("job", "settlement_archiver"),
	}
}

// Run processes once immediately and then every interval until ctx is done.
func (a *SettlementArchiver) Run(ctx context.Context) error {
	a.log.WithFields(logrus.Fields{
		"interval":  a.interval.String(),
		"archiving": a.writer != nil,
	}).Info("Starting settlement archiver")

	a.RunOnce(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.RunOnce(ctx)
		case <-ctx.Done():
			a.log.Info("Stopping settlement archiver")
			return nil
		}
	}
}

// RunOnce retries pending payouts and archives the next batch of reports.
// It returns the number of reports archived.
func (a *SettlementArchiver) RunOnce(ctx context.Context) int {
	if a.payouts != nil {
		released, err := a.payouts.ReleasePending(ctx, archiveBatchSize)
		if err != nil {
			a.log.WithError(err).Error("Failed to retry pending payouts")
		} else if released > 0 {
			a.log.WithField("released", released).Info("Released pending payouts")
		}
	}

	if a.writer == nil {
		return 0
	}

	markets, err := a.reports.Unarchived(ctx, archiveBatchSize)
	if err != nil {
		a.log.WithError(err).Error("Failed to list unarchived markets")
		return 0
	}

	archived := 0
	for _, m := range markets {
		err := a.archive(ctx, m)
		metrics.RecordReportArchived(err)
		if err != nil {
			a.log.WithError(err).WithField("market_id", m.ID).Error("Failed to archive settlement report")
			continue
		}
		archived++
	}
	return archived
}

// ReportPath is the object key of a market's settlement report.
func (a *SettlementArchiver) ReportPath(marketID uint64) string {
	return fmt.Sprintf("%ssettlements/market-%d.json", a.prefix, marketID)
}

func (a *SettlementArchiver) archive(ctx context.Context, m *models.Market) error {
	report, err := a.reports.Build(ctx, m)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	path := a.ReportPath(m.ID)
	if err := a.writer.Put(ctx, path, bytes.NewReader(body), "application/json"); err != nil {
		return err
	}
	if err := a.reports.MarkArchived(ctx, m.ID); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}

	a.log.WithFields(logrus.Fields{
		"market_id": m.ID,
		"path":      path,
		"winners":   len(report.Winners),
		"dust":      report.Dust.Micros(),
	}).Info("Archived settlement report")
	return nil
}
