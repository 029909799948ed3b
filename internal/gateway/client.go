package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/models"
)

const (
	maxResponseBytes = 10 << 20
	maxErrorBody     = 512
)

type IClient interface {
	FetchPage(ctx context.Context, date civil.Date, page, size int) (*models.TransactionSnapshot, error)
}

var _ IClient = (*Client)(nil)

type Config struct {
	BaseURL    string
	APIToken   string
	WalletID   string
	Timeout    time.Duration
	MaxRetries int
}

type pageResponse struct {
	Transactions []models.TransactionStatement `json:"transactions"`
	HasMore      bool                          `json:"hasMore"`
}

// Client reads transaction pages from the payment gateway.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	redactor   *logging.Redactor
	logger     *logrus.Logger
	maxRetries int
	newBackOff func() backoff.BackOff
}

func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, ErrEmptyCredential
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("gateway: invalid base url %q", cfg.BaseURL)
	}

	redactor := logging.NewRedactor(cfg.APIToken, cfg.WalletID)
	transport := otelhttp.NewTransport(&authTransport{
		base:     http.DefaultTransport,
		token:    cfg.APIToken,
		walletID: cfg.WalletID,
		redactor: redactor,
	})

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		redactor:   redactor,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(500*time.Millisecond),
				backoff.WithMaxInterval(10*time.Second),
			)
		},
	}, nil
}

// FetchPage fetches one page of a date's transactions. An empty page is returned as an
// empty snapshot, never as an error. Retryable failures are retried with backoff before
// the last one is returned.
func (c *Client) FetchPage(ctx context.Context, date civil.Date, page, size int) (*models.TransactionSnapshot, error) {
	if page < 1 || size < 1 || !date.IsValid() {
		return nil, &Error{Op: "FetchPage", Err: fmt.Errorf("invalid request date=%s page=%d size=%d", date, page, size)}
	}

	operation := func() (*models.TransactionSnapshot, error) {
		snapshot, err := c.fetchOnce(ctx, date, page, size)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return snapshot, err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	return backoff.RetryNotifyWithData(operation, b, func(err error, wait time.Duration) {
		c.logger.WithError(err).
			WithField("date", date.String()).
			WithField("page", page).
			WithField("wait", wait.String()).
			Warn("Gateway.FetchPage.retry")
	})
}

func (c *Client) fetchOnce(ctx context.Context, date civil.Date, page, size int) (*models.TransactionSnapshot, error) {
	endpoint := c.baseURL.JoinPath("transactions")
	query := endpoint.Query()
	query.Set("date", date.String())
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &Error{Op: "FetchPage", Err: c.redactor.RedactError(err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			Op:        "FetchPage",
			Retryable: ctx.Err() == nil,
			Err:       c.redactor.RedactError(err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Error{
			Op:         "FetchPage",
			StatusCode: resp.StatusCode,
			Retryable:  retryableStatus(resp.StatusCode),
			Err:        errors.New(c.redactor.Redact(string(body))),
		}
	}

	var decoded pageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, &Error{
			Op:         "FetchPage",
			StatusCode: resp.StatusCode,
			Err:        c.redactor.RedactError(fmt.Errorf("decode response: %w", err)),
		}
	}

	return &models.TransactionSnapshot{
		Page:         page,
		Size:         size,
		CreatedDate:  date,
		HasMore:      decoded.HasMore,
		Transactions: decoded.Transactions,
	}, nil
}
