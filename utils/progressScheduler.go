package utils

import (
	"context"
	"sync"
	"time"

	"lms/logger"
	"lms/services/rollup"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// RollupReconciler re-derives course rollups from leaf rows touched since its
// last run, repairing rollups whose recompute failed inside a request.
type RollupReconciler struct {
	db      *gorm.DB
	svc     *rollup.Service
	log     *logger.Logger
	clock   func() time.Time
	mu      sync.Mutex
	lastRun time.Time
}

func NewRollupReconciler(db *gorm.DB, svc *rollup.Service, log *logger.Logger) *RollupReconciler {
	return &RollupReconciler{
		db:    db,
		svc:   svc,
		log:   logger.OrNop(log).With("service", "RollupReconciler"),
		clock: time.Now,
	}
}

// window returns where the next sweep starts. The first sweep covers today.
func (r *RollupReconciler) window(started time.Time) time.Time {
	if r.lastRun.IsZero() {
		return now.With(started).BeginningOfDay()
	}
	return r.lastRun
}

// Run performs one sweep and returns how many rollups it rewrote.
func (r *RollupReconciler) Run(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.clock()
	since := r.window(started)
	n, err := r.svc.ReconcileSince(ctx, r.db, since, r.log)
	if err != nil {
		r.log.Error("rollup reconcile sweep failed", "since", since, "error", err)
		return n, err
	}
	r.lastRun = started
	r.log.Info("rollup reconcile sweep done", "since", since, "rollups", n)
	return n, nil
}

// StartRollupScheduler runs the reconciler on spec. An empty spec disables it.
func StartRollupScheduler(r *RollupReconciler, spec string) (*cron.Cron, error) {
	if spec == "" {
		r.log.Info("rollup reconcile scheduler disabled")
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		_, _ = r.Run(context.Background())
	}); err != nil {
		return nil, err
	}
	c.Start()
	r.log.Info("rollup reconcile scheduler started", "spec", spec)
	return c, nil
}
