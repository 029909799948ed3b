package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carson-networks/transaction-sync/internal/models"
)

const maxErrorBody = 512

var (
	_ IPublisher = (*HTTPPublisher)(nil)
	_ IPublisher = (*LogPublisher)(nil)
)

// HTTPPublisher posts each event as JSON to the reporting endpoint.
type HTTPPublisher struct {
	url        string
	httpClient *http.Client
	logger     *logrus.Logger
	maxRetries int
	newBackOff func() backoff.BackOff
}

func NewHTTPPublisher(url string, timeout time.Duration, maxRetries int, logger *logrus.Logger) *HTTPPublisher {
	return &HTTPPublisher{
		url: url,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		logger:     logger,
		maxRetries: maxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(backoff.WithInitialInterval(250 * time.Millisecond))
		},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, event models.ReportEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	operation := func() error {
		return p.post(ctx, event, body)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.maxRetries)), ctx)
	return backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		p.logger.WithError(err).
			WithField("operationId", event.OperationID).
			WithField("wait", wait.String()).
			Warn("HTTPPublisher.Publish.retry")
	})
}

func (p *HTTPPublisher) post(ctx context.Context, event models.ReportEvent, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", event.ID.String())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err = fmt.Errorf("reporting endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return err
	}
	return backoff.Permanent(err)
}

// LogPublisher writes events to the logger instead of sending them anywhere.
type LogPublisher struct {
	logger *logrus.Logger
}

func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event models.ReportEvent) error {
	p.logger.WithFields(logrus.Fields{
		"eventId":        event.ID.String(),
		"operationId":    event.OperationID,
		"operationType":  event.OperationType,
		"operationValue": event.OperationValue.String(),
		"currencySymbol": event.CurrencySymbol,
	}).Info("LogPublisher.Publish.event")
	return nil
}
