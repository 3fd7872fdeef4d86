package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// RunState is the lifecycle state of a run.
type RunState int

const (
	StateInitializing RunState = iota
	StateRunning
	StateCompleted
	StateAbortedCap
	StateAbortedError
	StateInterrupted
)

func (s RunState) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateAbortedCap:
		return "ABORTED_BY_CAP"
	case StateAbortedError:
		return "ABORTED_BY_ERROR"
	case StateInterrupted:
		return "INTERRUPTED"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// Service is the remote game session as consumed by the Runner. game/api
// provides the HTTP implementation; tests substitute scripted fakes.
type Service interface {
	// NewGame creates a session and returns its constraint set and capacity.
	NewGame(ctx context.Context, scenario int) (*Session, error)
	// DecideAndNext submits the decision for the person at personIndex (nil
	// for the initial pull) and returns the next turn.
	DecideAndNext(ctx context.Context, personIndex int, accept *bool) (*Turn, error)
}

// Runner drives one session end to end: create the session, then strictly
// sequentially fetch a person, decide, submit, book-keep, until the venue is
// full, the rejection cap is hit, or the service reports a terminal status.
// Runner owns the QuotaTracker exclusively; nothing else mutates it.
type Runner struct {
	svc    Service
	policy AdmissionPolicy
	cfg    RunnerConfig

	state   RunState
	session *Session
	tracker *QuotaTracker
	metrics *Metrics
}

// NewRunner creates a runner in the INITIALIZING state.
func NewRunner(svc Service, policy AdmissionPolicy, cfg RunnerConfig) *Runner {
	return &Runner{
		svc:     svc,
		policy:  policy,
		cfg:     cfg,
		state:   StateInitializing,
		metrics: NewMetrics(),
	}
}

func (r *Runner) State() RunState        { return r.state }
func (r *Runner) Tracker() *QuotaTracker { return r.tracker }
func (r *Runner) Metrics() *Metrics      { return r.metrics }

// Run executes the session and returns the terminal state. The returned
// error is non-nil only for ABORTED_BY_ERROR; interruption and a hit
// rejection cap are normal terminations distinguished by the state.
// Cancellation is honored between persons: no decision is submitted for an
// in-flight person once ctx is done.
func (r *Runner) Run(ctx context.Context) (RunState, error) {
	r.state = StateInitializing
	sess, err := r.svc.NewGame(ctx, r.cfg.Scenario)
	if err != nil {
		return r.fail(err, "create session")
	}
	r.session = sess
	r.tracker = NewQuotaTracker(sess.Capacity, r.cfg.RejectionCap, sess.Constraints)
	logrus.Infof("session %s: capacity=%d constraints=%d rejection_cap=%d",
		sess.GameID, sess.Capacity, len(sess.Constraints), r.cfg.RejectionCap)

	turn, err := r.svc.DecideAndNext(ctx, 0, nil)
	if err != nil {
		return r.fail(err, "fetch first person")
	}

	r.state = StateRunning
	for turn.Status == StatusRunning {
		select {
		case <-ctx.Done():
			r.state = StateInterrupted
			logrus.Warnf("interrupted after %d processed", r.metrics.Processed)
			return r.state, nil
		default:
		}

		p := turn.Person
		r.tracker.Observe(p)
		accept, reason := r.policy.Decide(p, r.tracker)

		turn, err = r.svc.DecideAndNext(ctx, p.Index, &accept)
		if err != nil {
			return r.fail(err, fmt.Sprintf("submit decision for person %d", p.Index))
		}

		if accept {
			r.tracker.RecordAccept(p)
		} else {
			r.tracker.RecordReject()
		}
		r.metrics.Record(accept, reason)

		if r.cfg.LogEvery > 0 && r.metrics.Processed%r.cfg.LogEvery == 0 {
			r.logProgress()
		}
		if r.tracker.CapReached() {
			r.state = StateAbortedCap
			logrus.Errorf("rejection cap %d reached with %d/%d admitted",
				r.cfg.RejectionCap, r.tracker.Accepted(), r.tracker.Capacity())
			return r.state, nil
		}
		if r.tracker.Full() && turn.Status == StatusRunning {
			// The service normally reports completion at capacity itself;
			// stop locally rather than judge people for a full venue.
			logrus.Warnf("venue full after %d processed but service still running", r.metrics.Processed)
			r.state = StateCompleted
			return r.state, nil
		}
	}

	switch turn.Status {
	case StatusCompleted:
		r.state = StateCompleted
		logrus.Infof("completed: admitted=%d rejected=%d efficiency=%.4f",
			r.tracker.Accepted(), turn.RejectedCount, r.metrics.Efficiency())
	case StatusFailed:
		return r.fail(fmt.Errorf("service reported failure: %s", turn.Reason), "run")
	default:
		return r.fail(fmt.Errorf("unexpected status %q", turn.Status), "run")
	}
	return r.state, nil
}

// fail maps an error to the terminal state: cancellation between retries is
// an interruption, everything else aborts the run.
func (r *Runner) fail(err error, op string) (RunState, error) {
	if errors.Is(err, context.Canceled) {
		r.state = StateInterrupted
		logrus.Warnf("interrupted during %s", op)
		return r.state, nil
	}
	r.state = StateAbortedError
	return r.state, fmt.Errorf("%s: %w", op, err)
}

func (r *Runner) logProgress() {
	logrus.Infof("[%d] admitted=%d/%d rejected=%d/%d eff=%.3f deficits=%v reasons=%v",
		r.metrics.Processed,
		r.tracker.Accepted(), r.tracker.Capacity(),
		r.tracker.Rejected(), r.cfg.RejectionCap,
		r.metrics.Efficiency(),
		r.tracker.Deficits(), r.metrics.Reasons)
	if len(r.session.RelativeFrequencies) > 0 {
		if short := r.tracker.ProjectedShortfall(r.session.RelativeFrequencies); len(short) > 0 {
			logrus.Warnf("projected shortfall at current base rates: %v", short)
		}
	}
}
