package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/internal/handlers/v1/jobs"
	"github.com/carson-networks/transaction-sync/internal/handlers/v1/snapshot"
	"github.com/carson-networks/transaction-sync/internal/handlers/v1/status"
	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/scheduler"
	"github.com/carson-networks/transaction-sync/internal/service"
)

type Rest struct {
	Logger         *logrus.Logger
	Port           string
	StorageBackend string
	Service        *service.Service
	Scheduler      *scheduler.Scheduler
	Metrics        *metrics.Collector

	mu     sync.Mutex
	server *http.Server
}

// Routes builds the HTTP handler: status, Prometheus metrics, the read API and manual job triggers.
func (r *Rest) Routes() http.Handler {
	mux := http.NewServeMux()

	statusHandler := status.NewHandler(r.Scheduler, r.StorageBackend)
	mux.HandleFunc("/status", logging.LoggingWrapper("Status", r.Logger, statusHandler.Handler))

	if r.Metrics != nil {
		mux.Handle("/metrics", r.Metrics.Handler())
	}

	api := humago.New(mux, huma.DefaultConfig("Transaction Sync", "1.0.0"))
	api.UseMiddleware(r.logDataMiddleware)
	snapshot.NewListSnapshotsHandler(r.Service.Query).Register(api)
	snapshot.NewGetCursorHandler(r.Service.Query).Register(api)
	jobs.NewTriggerJobHandler(r.Scheduler).Register(api)

	return mux
}

// logDataMiddleware gives every API request its own LogData and logs it on completion.
func (r *Rest) logDataMiddleware(ctx huma.Context, next func(huma.Context)) {
	logData := logging.NewLogData(r.Logger)
	logData.AddData("operation", ctx.Operation().OperationID)

	endTimer := logData.AddTiming("duration")
	next(huma.WithContext(ctx, logging.WithLogData(ctx.Context(), logData)))
	endTimer()

	logData.AddData("status", ctx.Status())
	logData.Log().Debug("Handler.API.Complete")
}

func (r *Rest) Serve() {
	server := &http.Server{
		Addr:              ":" + r.Port,
		Handler:           r.Routes(),
		ReadTimeout:       time.Duration(30) * time.Second,
		WriteTimeout:      time.Duration(30) * time.Second,
		IdleTimeout:       time.Duration(10) * time.Second,
		ReadHeaderTimeout: time.Duration(10) * time.Second,
	}
	r.mu.Lock()
	r.server = server
	r.mu.Unlock()

	r.Logger.WithField("port", r.Port).Info("HttpServer.Serve.listening")
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		r.Logger.WithError(err).Error("HttpServer.Serve.listen error")
	}
	r.Logger.Info("HttpServer.Serve.shutting down")
}

func (r *Rest) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	server := r.server
	r.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
