package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/config"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/logging"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/worker"
)

// Job sources. Each returns how many rows it changed in the tenant.
type completer interface {
	CompleteDue(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

type licenseExpirer interface {
	ExpireLicenses(ctx context.Context) (int, error)
}

func workerJobs(cfg *config.Config, appointments completer, licenses licenseExpirer) []worker.Job {
	return []worker.Job{
		{Name: "complete-past", Spec: cfg.CronCompleteSpec, Run: appointments.CompleteDue},
		{Name: "send-reminders", Spec: cfg.CronReminderSpec, Run: appointments.SendReminders},
		{Name: "expire-licenses", Spec: cfg.CronLicenseSpec, Run: licenses.ExpireLicenses},
	}
}

func workerTenants(cfg *config.Config) []string {
	if len(cfg.WorkerTenants) > 0 {
		return cfg.WorkerTenants
	}
	return []string{cfg.DefaultTenant}
}

func runWorker(once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.New(cfg)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolOptions(cfg, "worker"))
	if err != nil {
		return err
	}
	defer pool.Close()

	a, err := newApp(ctx, cfg, pool, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	w := worker.New(workerTenants(cfg), worker.PoolRunner(pool), logger)
	jobs := workerJobs(cfg, a.scheduling, a.admin)

	if once {
		return runJobsOnce(ctx, w, jobs, logger)
	}

	for _, job := range jobs {
		if err := w.Register(job); err != nil {
			return err
		}
	}
	w.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	w.Stop(stopCtx)
	return nil
}

func runJobsOnce(ctx context.Context, w *worker.Worker, jobs []worker.Job, logger zerolog.Logger) error {
	failed := 0
	for _, job := range jobs {
		failed += w.RunOnce(ctx, job)
	}
	if failed > 0 {
		logger.Warn().Int("failed_tenants", failed).Msg("worker run finished with errors")
	}
	return nil
}
