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
)

const JobGet = "get"

// GetService refreshes today's most recent pages between sync ticks. It reads the cursor
// to know where to look but never writes it.
type GetService struct {
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

func (s *GetService) Run(ctx context.Context) error {
	logData := logging.GetLogData(ctx)
	today := civil.DateOf(s.now().In(s.location))

	current, err := s.cursor.GetCurrentPage(ctx)
	if err != nil {
		return err
	}

	// The page before the cursor is the one sync finished last and may still be filling.
	start := 1
	if current != nil && current.CreatedDate == today {
		start = max(1, current.ActualPage-1)
	}
	logData.AddData("date", today.String())
	logData.AddData("startPage", start)

	forwarded := 0
	for pageNumber := start; pageNumber < start+s.maxPages; pageNumber++ {
		endTimer := logData.AddToExistingTiming("fetch")
		page, err := s.gateway.FetchPage(ctx, today, pageNumber, s.pageSize)
		endTimer()
		if err != nil {
			return fmt.Errorf("fetch %s page %d: %w", today, pageNumber, err)
		}
		s.metrics.RecordPageFetched(JobGet)

		if page.IsEmpty() {
			logData.AddData("lastPage", pageNumber-1)
			break
		}

		n, err := s.pages.process(ctx, JobGet, page)
		forwarded += n
		if err != nil {
			return err
		}
	}

	logData.AddData("forwarded", forwarded)
	return nil
}
