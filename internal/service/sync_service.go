package service

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/internal/cursor"
	"github.com/carson-networks/transaction-sync/internal/gateway"
	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/models"
)

const JobSync = "sync"

// SyncService walks the gateway's pages date by date, driven by the shared cursor.
type SyncService struct {
	pages    *pageProcessor
	cursor   cursor.IStore
	gateway  gateway.IClient
	metrics  *metrics.Collector
	logger   *logrus.Logger
	pageSize int
	maxPages int
	location *time.Location
	now      func() time.Time
}

// Run performs one sync tick. Any error leaves the cursor at its last persisted value.
func (s *SyncService) Run(ctx context.Context) error {
	logData := logging.GetLogData(ctx)
	today := civil.DateOf(s.now().In(s.location))

	current, err := s.cursor.GetCurrentPage(ctx)
	if err != nil {
		return err
	}
	if current == nil {
		initial := models.NewCursor(today)
		current = &initial
	}
	logData.AddData("startPage", current.ActualPage)
	logData.AddData("startDate", current.CreatedDate.String())

	pagesFetched, forwarded := 0, 0
	defer func() {
		logData.AddData("pagesFetched", pagesFetched)
		logData.AddData("forwarded", forwarded)
	}()

	for i := 0; i < s.maxPages; i++ {
		endTimer := logData.AddToExistingTiming("fetch")
		page, err := s.gateway.FetchPage(ctx, current.CreatedDate, current.ActualPage, s.pageSize)
		endTimer()
		if err != nil {
			return fmt.Errorf("fetch %s page %d: %w", current.CreatedDate, current.ActualPage, err)
		}
		pagesFetched++
		s.metrics.RecordPageFetched(JobSync)

		plan := Transition(*current, page, today)
		logData.AddData("action", plan.Action.String())

		if plan.Action.ProcessesPage() {
			n, err := s.pages.process(ctx, JobSync, page)
			forwarded += n
			if err != nil {
				return err
			}
		}

		if !plan.Persist {
			break
		}

		// A cancelled context means the lease may be gone; only the holder moves the cursor.
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.cursor.SetCurrentPage(ctx, plan.Next); err != nil {
			return err
		}
		s.metrics.SetCursorPage(plan.Next.ActualPage)
		s.logger.WithFields(logrus.Fields{
			"action": plan.Action.String(),
			"page":   plan.Next.ActualPage,
			"date":   plan.Next.CreatedDate.String(),
		}).Debug("SyncService.Run.cursorAdvanced")

		*current = plan.Next
	}

	logData.AddData("endPage", current.ActualPage)
	logData.AddData("endDate", current.CreatedDate.String())
	return nil
}
