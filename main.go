package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/carson-networks/transaction-sync/api"
	"github.com/carson-networks/transaction-sync/internal/config"
	"github.com/carson-networks/transaction-sync/internal/gateway"
	"github.com/carson-networks/transaction-sync/internal/lease"
	"github.com/carson-networks/transaction-sync/internal/logging"
	"github.com/carson-networks/transaction-sync/internal/metrics"
	"github.com/carson-networks/transaction-sync/internal/reporting"
	"github.com/carson-networks/transaction-sync/internal/scheduler"
	"github.com/carson-networks/transaction-sync/internal/service"
	"github.com/carson-networks/transaction-sync/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	envConfig, err := config.ProcessEnvironmentVariables()
	if err != nil {
		logrus.WithError(err).Fatal("config.ProcessEnvironmentVariables")
		return
	}
	if err := envConfig.Validate(); err != nil {
		logrus.WithError(err).Fatal("config.Validate")
		return
	}

	logger := logging.SetupLogging(envConfig.LogLevel, envConfig.Secrets()...)
	logger.Info("transaction-sync starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	location, err := envConfig.Location()
	if err != nil {
		logger.WithError(err).Fatal("config.Location")
		return
	}

	collector := metrics.NewCollector()

	store, err := storage.NewStorage(ctx, envConfig)
	if err != nil {
		logger.WithError(err).Fatal("storage.NewStorage")
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("storage.Close")
		}
	}()

	gatewayClient, err := gateway.NewClient(gateway.Config{
		BaseURL:    envConfig.GatewayBaseURL,
		APIToken:   envConfig.GatewayAPIToken,
		WalletID:   envConfig.GatewayWalletID,
		Timeout:    envConfig.GatewayTimeout,
		MaxRetries: envConfig.GatewayMaxRetries,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("gateway.NewClient")
		return
	}

	var publisher reporting.IPublisher
	switch envConfig.ReportingPublisher {
	case config.PublisherHTTP:
		publisher = reporting.NewHTTPPublisher(envConfig.ReportingURL, envConfig.ReportingTimeout, envConfig.ReportingMaxRetries, logger)
	default:
		publisher = reporting.NewLogPublisher(logger)
	}

	svc, err := service.NewService(envConfig, service.Dependencies{
		Store:     store.KV,
		Gateway:   gatewayClient,
		Forwarder: reporting.NewForwarder(publisher),
		Metrics:   collector,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("service.NewService")
		return
	}

	sched := scheduler.New(lease.NewLocker(store.KV, logger), location, logger, collector)
	jobs := []scheduler.Job{
		newJob(service.JobSync, scheduler.SyncLockKey, envConfig.Sync, svc.Sync.Run),
		newJob(service.JobGet, scheduler.GetLockKey, envConfig.Get, svc.Get.Run),
		newJob(service.JobPurge, scheduler.PurgeLockKey, envConfig.Purge, svc.Purge.Run),
	}
	for _, job := range jobs {
		if err := sched.Add(job); err != nil {
			logger.WithError(err).WithField("job", job.Name).Fatal("scheduler.Add")
			return
		}
	}
	sched.Start()

	httpRest := &api.Rest{
		Logger:         logger,
		Port:           envConfig.HTTPPort,
		StorageBackend: store.Backend,
		Service:        svc,
		Scheduler:      sched,
		Metrics:        collector,
	}
	go httpRest.Serve()

	<-ctx.Done()
	logger.Info("transaction-sync shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpRest.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HttpServer.Shutdown")
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Scheduler.Stop")
	}
}

func newJob(name, lockKey string, cfg config.JobConfig, run func(ctx context.Context) error) scheduler.Job {
	return scheduler.Job{
		Name:         name,
		Schedule:     cfg.Cron,
		LockKey:      lockKey,
		LeaseTimeout: cfg.LeaseTimeout,
		LeaseRefresh: cfg.LeaseRefresh,
		Run:          run,
	}
}
