// Package worker runs the periodic maintenance jobs once per tenant.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
)

// Job is one scheduled task. Run is called with a tenant-scoped context and
// returns how many records it touched.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

// TenantRunner opens a tenant connection and calls fn with it.
type TenantRunner func(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error

// PoolRunner runs fn on a connection pinned to the tenant schema.
func PoolRunner(pool *pgxpool.Pool) TenantRunner {
	return func(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
		return db.WithTenant(ctx, pool, tenantID, fn)
	}
}

type Worker struct {
	cron    *cron.Cron
	tenants []string
	runner  TenantRunner
	logger  zerolog.Logger
	timeout time.Duration

	mu   sync.Mutex
	ctx  context.Context
	jobs []Job
}

func New(tenants []string, runner TenantRunner, logger zerolog.Logger) *Worker {
	cl := cronLogger{logger: logger}
	return &Worker{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		tenants: tenants,
		runner:  runner,
		logger:  logger,
		timeout: 5 * time.Minute,
		ctx:     context.Background(),
	}
}

// Register schedules job. Job.Spec uses the standard cron syntax or
// descriptors such as "@every 5m".
func (w *Worker) Register(job Job) error {
	if _, err := w.cron.AddFunc(job.Spec, func() { w.RunOnce(w.baseContext(), job) }); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	w.mu.Lock()
	w.jobs = append(w.jobs, job)
	w.mu.Unlock()
	return nil
}

// Jobs lists the registered jobs.
func (w *Worker) Jobs() []Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Job, len(w.jobs))
	copy(out, w.jobs)
	return out
}

func (w *Worker) baseContext() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ctx
}

// Start begins scheduling. Jobs stop picking up new runs when ctx ends.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()
	w.cron.Start()
	w.logger.Info().Int("jobs", len(w.Jobs())).Strs("tenants", w.tenants).Msg("worker started")
}

// Stop waits for running jobs or until ctx is done.
func (w *Worker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		w.logger.Info().Msg("worker stopped")
	case <-ctx.Done():
		w.logger.Warn().Msg("worker stop timed out with jobs still running")
	}
}

// RunOnce executes job for every tenant. A failing tenant does not stop
// the others. It returns the number of tenants that failed.
func (w *Worker) RunOnce(ctx context.Context, job Job) int {
	started := time.Now()
	failed, total := 0, 0
	for _, tenant := range w.tenants {
		n, err := w.runTenant(ctx, tenant, job)
		log := w.logger.With().Str("job", job.Name).Str("tenant", tenant).Logger()
		if err != nil {
			failed++
			log.Error().Err(err).Msg("job failed")
			continue
		}
		total += n
		if n > 0 {
			log.Info().Int("affected", n).Msg("job processed records")
		}
	}
	w.logger.Debug().
		Str("job", job.Name).
		Int("affected", total).
		Int("failed_tenants", failed).
		Dur("took", time.Since(started)).
		Msg("job finished")
	return failed
}

func (w *Worker) runTenant(ctx context.Context, tenant string, job Job) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	err = w.runner(ctx, tenant, func(ctx context.Context) error {
		var runErr error
		n, runErr = job.Run(ctx)
		return runErr
	})
	return n, err
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
