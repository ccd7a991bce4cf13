/*
reconciler.go - Periodic attendance reconciliation

PURPOSE:
  Attendance writes after an approval are best effort: a failure is logged
  and the approval stands. The reconciler re-applies every approved leave
  touching a recent window so such gaps close on their own.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Each pass lists approved leave overlapping [today-Lookback, today+Lookahead]
  - Apply is idempotent, so healthy records are only rewritten in place
  - A failing request is logged and the pass moves on

USAGE:
  rec := attendance.NewReconciler(store, sync, logger)
  rec.Start(ctx)
  defer rec.Stop()
*/
package attendance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Pass summarises one reconciliation pass.
type Pass struct {
	Window   generic.Period
	Requests int
	Failed   int
	Result   Result
}

type Reconciler struct {
	leaves leave.LeaveStore
	sync   *Synchronizer
	logger *slog.Logger

	Interval  time.Duration
	Lookback  int
	Lookahead int
	Now       func() time.Time

	mu     sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	last   time.Time
}

func NewReconciler(leaves leave.LeaveStore, s *Synchronizer, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		leaves:    leaves,
		sync:      s,
		logger:    logger,
		Interval:  time.Hour,
		Lookback:  31,
		Lookahead: 31,
		Now:       time.Now,
	}
}

// Start runs a pass immediately and then every Interval until Stop or ctx
// is done. A non-positive Interval disables the reconciler.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Interval <= 0 {
		r.logger.Info("attendance reconciler disabled")
		return
	}
	if r.ticker != nil {
		return
	}

	r.ticker = time.NewTicker(r.Interval)
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.run(ctx, r.ticker, r.stop)

	r.logger.Info("attendance reconciler started", "interval", r.Interval)
}

// Stop halts the loop and waits for an in-flight pass.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.ticker == nil {
		r.mu.Unlock()
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.ticker = nil
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("attendance reconciler stopped")
}

func (r *Reconciler) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer r.wg.Done()

	r.RunNow(ctx)
	for {
		select {
		case <-ticker.C:
			r.RunNow(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// RunNow performs one pass synchronously.
func (r *Reconciler) RunNow(ctx context.Context) (Pass, error) {
	today := generic.DateOf(r.Now())
	pass := Pass{Window: generic.Period{Start: today.AddDays(-r.Lookback), End: today.AddDays(r.Lookahead)}}

	reqs, err := r.leaves.FindLeaves(ctx, leave.LeaveFilter{
		Statuses: []leave.Status{leave.StatusApproved},
		Overlap:  &pass.Window,
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "reconcile: list approved leave failed", "error", err)
		return pass, err
	}

	for i := range reqs {
		req := &reqs[i]
		res, err := r.sync.Apply(ctx, req)
		pass.Requests++
		pass.Result.Created += res.Created
		pass.Result.Updated += res.Updated
		if err != nil {
			pass.Failed++
			r.logger.ErrorContext(ctx, "reconcile: apply failed",
				"leave_id", req.ID,
				"staff_id", req.StaffID,
				"error", err,
			)
		}
	}

	r.mu.Lock()
	r.last = r.Now()
	r.mu.Unlock()

	r.logger.InfoContext(ctx, "attendance reconciled",
		"window_start", pass.Window.Start.String(),
		"window_end", pass.Window.End.String(),
		"requests", pass.Requests,
		"created", pass.Result.Created,
		"failed", pass.Failed,
	)
	return pass, nil
}

// NextRun is when the next pass is due, or zero when not running.
func (r *Reconciler) NextRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ticker == nil || r.last.IsZero() {
		return time.Time{}
	}
	return r.last.Add(r.Interval)
}
