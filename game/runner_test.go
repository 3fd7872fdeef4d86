package game

import (
	"context"
	"errors"
	"testing"
)

// fakeService scripts a session: it serves people in order, applies the
// submitted decisions, and completes once the venue is full or the script is
// exhausted.
type fakeService struct {
	capacity    int
	constraints []Constraint
	people      []*Person

	admitted  int
	rejected  int
	decisions []bool // decisions received, in order

	newGameErr error
	decideErr  error // returned on every DecideAndNext call when set
	failAfter  int   // >0: report status "failed" after this many decisions
	// onDecide is called with the running decision count, for cancellation hooks.
	onDecide func(n int)
}

func (f *fakeService) NewGame(_ context.Context, _ int) (*Session, error) {
	if f.newGameErr != nil {
		return nil, f.newGameErr
	}
	return &Session{
		GameID:      "fake-game",
		Capacity:    f.capacity,
		Constraints: f.constraints,
	}, nil
}

func (f *fakeService) DecideAndNext(_ context.Context, personIndex int, accept *bool) (*Turn, error) {
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	if accept != nil {
		f.decisions = append(f.decisions, *accept)
		if *accept {
			f.admitted++
		} else {
			f.rejected++
		}
		if f.onDecide != nil {
			f.onDecide(len(f.decisions))
		}
		if f.failAfter > 0 && len(f.decisions) >= f.failAfter {
			return &Turn{Status: StatusFailed, Reason: "scripted failure"}, nil
		}
	}
	if f.admitted >= f.capacity {
		return &Turn{Status: StatusCompleted, RejectedCount: f.rejected}, nil
	}
	next := len(f.decisions)
	if next >= len(f.people) {
		return &Turn{Status: StatusCompleted, RejectedCount: f.rejected}, nil
	}
	return &Turn{Status: StatusRunning, Person: f.people[next]}, nil
}

// rejectAll is a test policy that turns everyone away.
type rejectAll struct{}

func (rejectAll) Decide(_ *Person, _ *QuotaTracker) (bool, string) {
	return false, ReasonNoHelp
}

// TestRunner_Scenario plays the reference scenario: capacity 10, rejection
// cap 5, one constraint requiring at least 4 of 10 to carry attribute A.
// Carriers arrive first, then non-carriers.
func TestRunner_Scenario(t *testing.T) {
	people := make([]*Person, 0, 10)
	for i := 0; i < 4; i++ {
		people = append(people, person(i, "A"))
	}
	for i := 4; i < 10; i++ {
		people = append(people, person(i))
	}
	svc := &fakeService{
		capacity:    10,
		constraints: []Constraint{{Attribute: "A", MinCount: 4}},
		people:      people,
	}
	runner := NewRunner(svc, NewGreedyFeasibility(DefaultTuning()), RunnerConfig{
		Scenario:     1,
		RejectionCap: 5,
	})

	state, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateCompleted {
		t.Fatalf("state = %s, want %s", state, StateCompleted)
	}
	// The first four carriers build toward the buffered 40% target; the
	// rest fit on spare capacity.
	for i, accepted := range svc.decisions {
		if !accepted {
			t.Errorf("person %d rejected, expected all accepted", i)
		}
	}
	if got := runner.Tracker().AcceptedWith("A"); got < 4 {
		t.Errorf("accepted carrying A = %d, want >= 4", got)
	}
	if got := runner.Tracker().Accepted(); got != 10 {
		t.Errorf("accepted = %d, want 10", got)
	}
}

// TestRunner_AbortsAtRejectionCap verifies the run stops as soon as the local
// rejection budget is spent.
func TestRunner_AbortsAtRejectionCap(t *testing.T) {
	people := make([]*Person, 20)
	for i := range people {
		people[i] = person(i)
	}
	svc := &fakeService{capacity: 10, people: people}
	runner := NewRunner(svc, rejectAll{}, RunnerConfig{RejectionCap: 3})

	state, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateAbortedCap {
		t.Fatalf("state = %s, want %s", state, StateAbortedCap)
	}
	if got := len(svc.decisions); got != 3 {
		t.Errorf("decisions submitted = %d, want exactly 3", got)
	}
}

// TestRunner_TransportErrorAborts verifies fatal transport failures surface
// as ABORTED_BY_ERROR with the cause attached.
func TestRunner_TransportErrorAborts(t *testing.T) {
	t.Run("session creation fails", func(t *testing.T) {
		svc := &fakeService{newGameErr: errors.New("connection refused")}
		runner := NewRunner(svc, AcceptAll{}, RunnerConfig{RejectionCap: 10})

		state, err := runner.Run(context.Background())
		if state != StateAbortedError {
			t.Fatalf("state = %s, want %s", state, StateAbortedError)
		}
		if err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("decision submission fails", func(t *testing.T) {
		svc := &fakeService{capacity: 5, people: []*Person{person(0)}}
		runner := NewRunner(svc, AcceptAll{}, RunnerConfig{RejectionCap: 10})
		svc.decideErr = errors.New("gave up after retries")

		state, err := runner.Run(context.Background())
		if state != StateAbortedError {
			t.Fatalf("state = %s, want %s", state, StateAbortedError)
		}
		if err == nil {
			t.Fatal("expected an error")
		}
	})
}

// TestRunner_ServerFailure verifies a server-side "failed" status aborts.
func TestRunner_ServerFailure(t *testing.T) {
	people := make([]*Person, 10)
	for i := range people {
		people[i] = person(i)
	}
	svc := &fakeService{capacity: 10, people: people, failAfter: 2}
	runner := NewRunner(svc, AcceptAll{}, RunnerConfig{RejectionCap: 10})

	state, err := runner.Run(context.Background())
	if state != StateAbortedError {
		t.Fatalf("state = %s, want %s", state, StateAbortedError)
	}
	if err == nil || err.Error() != "run: service reported failure: scripted failure" {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestRunner_Interrupted verifies cancellation stops the loop at the next
// safe point, with no decision submitted for the person in hand.
func TestRunner_Interrupted(t *testing.T) {
	people := make([]*Person, 10)
	for i := range people {
		people[i] = person(i)
	}
	svc := &fakeService{capacity: 10, people: people}
	ctx, cancel := context.WithCancel(context.Background())
	svc.onDecide = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	runner := NewRunner(svc, AcceptAll{}, RunnerConfig{RejectionCap: 10})

	state, err := runner.Run(ctx)
	if err != nil {
		t.Fatalf("interruption must not be an error, got: %v", err)
	}
	if state != StateInterrupted {
		t.Fatalf("state = %s, want %s", state, StateInterrupted)
	}
	if got := len(svc.decisions); got != 2 {
		t.Errorf("decisions submitted = %d, want 2 (none for the in-flight person)", got)
	}
}

// TestRunState_String covers the state labels.
func TestRunState_String(t *testing.T) {
	tests := []struct {
		state RunState
		want  string
	}{
		{StateInitializing, "INITIALIZING"},
		{StateRunning, "RUNNING"},
		{StateCompleted, "COMPLETED"},
		{StateAbortedCap, "ABORTED_BY_CAP"},
		{StateAbortedError, "ABORTED_BY_ERROR"},
		{StateInterrupted, "INTERRUPTED"},
		{RunState(42), "RunState(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

var _ Service = (*fakeService)(nil)
