package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/etuitionbd/etuition-be/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// CounterReconciler re-derives stored applicant counters.
type CounterReconciler interface {
	ReconcileApplicantCounts(ctx context.Context) (int64, error)
}

// Reconciler periodically repairs applicantsCount drift on a cron schedule.
type Reconciler struct {
	svc     CounterReconciler
	cron    *cron.Cron
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconciler creates a reconciler running on the standard cron spec
// (descriptors such as @hourly are accepted).
func NewReconciler(svc CounterReconciler, spec string) (*Reconciler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reconciler{
		svc:     svc,
		timeout: 2 * time.Minute,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	if _, err := r.cron.AddFunc(spec, func() { _, _ = r.RunOnce() }); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start runs one pass immediately in the background, then follows the schedule.
func (r *Reconciler) Start() {
	log.Info().Msg("Starting applicant counter reconciler...")
	r.cron.Start()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.RunOnce()
	}()
}

// Stop cancels a pass in progress and waits for running jobs to return.
func (r *Reconciler) Stop() {
	r.cancel()
	<-r.cron.Stop().Done()
	r.wg.Wait()
	log.Info().Msg("Stopped applicant counter reconciler.")
}

// RunOnce performs a single reconciliation pass.
func (r *Reconciler) RunOnce() (int64, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	fixed, err := r.svc.ReconcileApplicantCounts(ctx)
	if fixed > 0 {
		metrics.CounterCorrections.Add(float64(fixed))
		log.Warn().Int64("corrected", fixed).Msg("Repaired applicantsCount drift")
	}
	if err != nil {
		log.Error().Err(err).Msg("Applicant counter reconciliation failed")
		return fixed, err
	}
	log.Debug().Msg("Applicant counters in sync")
	return fixed, nil
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
