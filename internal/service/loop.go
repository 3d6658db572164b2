package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loanops/commsync/internal/model"
	"github.com/loanops/commsync/internal/pkg/apperrors"
	"github.com/loanops/commsync/internal/pkg/logger"
	"github.com/loanops/commsync/internal/pkg/metrics"
)

type State int32

const (
	StateIdle State = iota
	StateRunning
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// CycleStore persists the last cycle report so /health can expose it.
type CycleStore interface {
	SaveLastCycle(ctx context.Context, report *model.CycleReport) error
	LastCycle(ctx context.Context) (*model.CycleReport, error)
}

// Loop drives the periodic fetch-and-reconcile passes. Cycles never overlap:
// the next tick is consumed only after the current cycle completes. Shutdown
// is honored between cycles, never mid-flight, so no record is left with a
// half-applied write on our side.
type Loop struct {
	poller     *Poller
	reconciler *Reconciler
	interval   time.Duration
	cycles     CycleStore

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State

	trigger chan model.Source
	fatal   chan error
	done    chan struct{}
}

func NewLoop(poller *Poller, reconciler *Reconciler, interval time.Duration, cycles CycleStore) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		poller:     poller,
		reconciler: reconciler,
		interval:   interval,
		cycles:     cycles,
		ctx:        ctx,
		cancel:     cancel,
		trigger:    make(chan model.Source, 1),
		fatal:      make(chan error, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the loop in a background goroutine. The first cycle runs
// immediately; subsequent cycles follow the configured interval.
func (l *Loop) Start() {
	go l.run()
}

// Stop requests a graceful halt and waits for the loop goroutine to exit.
func (l *Loop) Stop() {
	l.cancel()
	<-l.done
}

// Fatal yields the error that halted the loop, if any. The channel fires at
// most once.
func (l *Loop) Fatal() <-chan error {
	return l.fatal
}

func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// TriggerNow schedules an immediate cycle. It fails when a cycle is already
// running or pending, or when the loop has halted.
func (l *Loop) TriggerNow() error {
	if l.State() != StateIdle {
		return apperrors.NewInvalidRequest(fmt.Sprintf("sync loop is %s", l.State()))
	}
	select {
	case l.trigger <- model.SourceManual:
		return nil
	default:
		return apperrors.NewInvalidRequest("a manual sync is already pending")
	}
}

func (l *Loop) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

func (l *Loop) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	// First cycle runs at startup rather than one interval in.
	if halted := l.cycle(model.SourcePoll); halted {
		return
	}

	for {
		select {
		case <-l.ctx.Done():
			l.setState(StateHalted)
			logger.Info("Sync loop stopped")
			return
		case <-ticker.C:
			if halted := l.cycle(model.SourcePoll); halted {
				return
			}
		case src := <-l.trigger:
			if halted := l.cycle(src); halted {
				return
			}
		}
	}
}

// cycle runs one pass and reports whether the loop must halt.
func (l *Loop) cycle(src model.Source) bool {
	select {
	case <-l.ctx.Done():
		l.setState(StateHalted)
		return true
	default:
	}

	l.setState(StateRunning)
	// Cycles run on a fresh context: shutdown is honored between cycles,
	// not by cancelling in-flight API calls, which all carry their own
	// bounded timeouts.
	report, fatalErr := l.runCycle(context.Background(), src)
	l.saveReport(report)

	if fatalErr != nil {
		l.setState(StateHalted)
		metrics.CyclesTotal.WithLabelValues("fatal").Inc()
		logger.Error("Sync loop halted", "error", fatalErr)
		l.fatal <- fatalErr
		return true
	}

	l.setState(StateIdle)
	return false
}

func (l *Loop) runCycle(ctx context.Context, src model.Source) (*model.CycleReport, error) {
	report := &model.CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		metrics.CycleDuration.Observe(report.Duration.Seconds())
	}()

	opps, err := l.poller.FetchAll(ctx)
	if err != nil {
		report.FetchError = err.Error()
		if apperrors.IsAuth(err) {
			return report, err
		}
		// Transient fetch failure: skip this cycle, keep the schedule.
		metrics.CyclesTotal.WithLabelValues("fetch_failed").Inc()
		logger.Warn("Fetch failed, skipping cycle", "cycle_id", report.CycleID, "error", err)
		return report, nil
	}
	report.Fetched = len(opps)

	for i := range opps {
		outcome, err := l.reconciler.Reconcile(ctx, &opps[i], report.CycleID, src)
		switch outcome {
		case model.OutcomeUpdated:
			report.Updated++
		case model.OutcomeSkipped:
			report.Skipped++
		case model.OutcomeInvalid:
			report.Invalid++
			logger.Warn("Record skipped", "cycle_id", report.CycleID, "opportunity_id", opps[i].ID, "error", err)
		case model.OutcomeFailed:
			report.Failed++
			if apperrors.IsAuth(err) {
				return report, err
			}
			// Contained: remaining records still get processed, the write is
			// retried on the next scheduled cycle.
			logger.Error("Update failed", "cycle_id", report.CycleID, "opportunity_id", opps[i].ID, "error", err)
		}
	}

	metrics.CyclesTotal.WithLabelValues("ok").Inc()
	logger.Info("Cycle complete",
		"cycle_id", report.CycleID,
		"source", src,
		"fetched", report.Fetched,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"invalid", report.Invalid,
		"failed", report.Failed,
		"duration", time.Since(report.StartedAt).String())
	return report, nil
}

func (l *Loop) saveReport(report *model.CycleReport) {
	if l.cycles == nil || report == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.cycles.SaveLastCycle(ctx, report); err != nil {
		logger.Warn("Failed to persist cycle report", "cycle_id", report.CycleID, "error", err)
	}
}
