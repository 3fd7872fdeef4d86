package game

// Constraint is a minimum-count requirement on the final accepted population:
// at least MinCount of the admitted individuals must carry Attribute.
// Constraints are fixed at session creation and immutable for its duration.
type Constraint struct {
	Attribute string
	MinCount  int
}

// Person is a single arrival. It exists only for the duration of the one
// decision it triggers and is never stored.
type Person struct {
	Index      int
	Attributes map[string]bool
}

// Has reports whether the person carries the given attribute.
func (p *Person) Has(attr string) bool {
	return p.Attributes[attr]
}

// Session describes a created game session as reported by the remote service.
type Session struct {
	GameID      string
	Capacity    int
	Constraints []Constraint
	// RelativeFrequencies holds the per-attribute base rates in the arrival
	// population, when the service reports them. Used for projected-shortfall
	// diagnostics only; the policy's hard guards never depend on them.
	RelativeFrequencies map[string]float64
}

// Turn statuses reported by the remote service.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Turn is one decide-and-next exchange with the remote service: either the
// next person to judge, or a terminal status when the session has ended
// server-side.
type Turn struct {
	Status        string
	Person        *Person // non-nil while Status == StatusRunning
	AdmittedCount int
	RejectedCount int
	Reason        string // populated when Status == StatusFailed
}
