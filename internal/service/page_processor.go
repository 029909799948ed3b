package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/models"
	"github.com/carson-networks/transaction-sync/internal/reporting"
	"github.com/carson-networks/transaction-sync/internal/snapshot"
)

// pageProcessor forwards what changed on a page and then caches the page. The cache is
// only written once every change was forwarded, so a failed forward is retried on the
// next fetch of the same page.
type pageProcessor struct {
	cache     snapshot.ICache
	forwarder reporting.IForwarder
	metrics   *metrics.Collector
	logger    *logrus.Logger
}

func (p *pageProcessor) process(ctx context.Context, job string, page *models.TransactionSnapshot) (int, error) {
	logData := logging.GetLogData(ctx)

	endTimer := logData.AddToExistingTiming("cacheRead")
	previous, err := p.cache.Get(ctx, page.CreatedDate, page.Page)
	endTimer()
	if err != nil {
		return 0, err
	}

	changed := Diff(previous, page)
	forwarded, skipped := 0, 0
	endTimer = logData.AddToExistingTiming("forward")
	for _, statement := range changed {
		err := p.forwarder.Emit(ctx, statement)
		if errors.Is(err, reporting.ErrUnknownDirection) {
			p.logger.WithError(err).WithField("operationId", statement.ID).Warn("PageProcessor.Process.skipped")
			skipped++
			continue
		}
		if err != nil {
			endTimer()
			p.metrics.RecordEventsForwarded(job, forwarded)
			p.metrics.RecordEventsSkipped(job, skipped)
			return forwarded, fmt.Errorf("forward %s page %d: %w", page.CreatedDate, page.Page, err)
		}
		forwarded++
	}
	endTimer()
	p.metrics.RecordEventsForwarded(job, forwarded)
	p.metrics.RecordEventsSkipped(job, skipped)
	if skipped > 0 {
		logData.AddData("skipped", skipped)
	}

	endTimer = logData.AddToExistingTiming("cacheWrite")
	err = p.cache.Upsert(ctx, page)
	endTimer()
	if err != nil {
		return forwarded, err
	}
	return forwarded, nil
}
