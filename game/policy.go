package game

import "fmt"

// Decision reasons, tallied by Metrics.
const (
	ReasonForcedQuota  = "forced_quota"      // every remaining slot must carry an attribute this person has
	ReasonSlotReserved = "slot_reserved"     // every remaining slot is reserved for an attribute this person lacks
	ReasonMultiQuota   = "multi_quota"       // helps two or more deficited constraints at once
	ReasonHelpsQuota   = "helps_quota"       // helps one deficited constraint
	ReasonSpareFill    = "spare_fill"        // helps nothing, but spare capacity covers all deficits
	ReasonCapPressure  = "cap_pressure_fill" // helps nothing, admitted to protect the rejection budget
	ReasonNoHelp       = "no_help"           // helps nothing and capacity is needed for quotas
)

// AdmissionPolicy decides whether an arriving person is admitted. The reason
// string feeds the per-run decision tally.
//
// Decide is a pure function of the person and the tracker state; it must not
// mutate the tracker. The Runner never invokes it once the venue is full or
// the rejection cap is reached.
type AdmissionPolicy interface {
	Decide(p *Person, t *QuotaTracker) (accept bool, reason string)
}

// AcceptAll admits everyone. Baseline for scenarios without constraints and
// for measuring the greedy policy against.
type AcceptAll struct{}

func (AcceptAll) Decide(_ *Person, _ *QuotaTracker) (bool, string) {
	return true, ""
}

// GreedyFeasibility is the production policy: a feasibility-guarded greedy
// heuristic. Hard guards keep every quota reachable at all times; inside the
// feasible region it prefers people carrying the most-deficited attributes,
// tracking inflated targets early in the run so unfavorable late arrivals
// have slack to land in.
type GreedyFeasibility struct {
	tuning Tuning
}

// NewGreedyFeasibility creates the policy with the given tuning knobs.
func NewGreedyFeasibility(tuning Tuning) *GreedyFeasibility {
	return &GreedyFeasibility{tuning: tuning}
}

func (g *GreedyFeasibility) Decide(p *Person, t *QuotaTracker) (bool, string) {
	slots := t.RemainingCapacity()

	// Hard feasibility guards, always against raw deficits. A constraint
	// whose deficit equals the remaining capacity owns every open slot:
	// carriers are force-accepted, everyone else is turned away.
	forced := false
	reserved := false
	for _, a := range t.Attributes() {
		d := t.Deficit(a)
		if d <= 0 || d < slots {
			continue
		}
		if p.Has(a) {
			forced = true
		} else {
			reserved = true
		}
	}
	if reserved {
		return false, ReasonSlotReserved
	}
	if forced {
		return true, ReasonForcedQuota
	}

	// Below the phase cutoff, deficits are measured against buffered targets.
	margin := 0.0
	if float64(t.Accepted()) < g.tuning.MarginPhaseFraction*float64(t.Capacity()) {
		margin = g.tuning.SafetyMargin
	}
	helps := 0
	for _, a := range t.Attributes() {
		if p.Has(a) && t.BufferedDeficit(a, margin) > 0 {
			helps++
		}
	}
	if helps >= 2 {
		return true, ReasonMultiQuota
	}
	if helps == 1 {
		return true, ReasonHelpsQuota
	}

	// Filler: someone who helps no quota only gets a slot while the spare
	// capacity left after admitting them still covers the largest
	// outstanding deficit (buffered in the margin phase), with FillerSlack
	// headroom on top.
	maxDeficit := 0
	for _, a := range t.Attributes() {
		maxDeficit = max(maxDeficit, t.BufferedDeficit(a, margin))
	}
	if slots-1 >= maxDeficit+g.tuning.FillerSlack {
		return true, ReasonSpareFill
	}

	// Close to the rejection cap the bias flips: better an inefficient fill
	// than an aborted run.
	if t.RejectionCap() > 0 &&
		float64(t.Rejected()) >= g.tuning.CapPressureFraction*float64(t.RejectionCap()) {
		return true, ReasonCapPressure
	}

	return false, ReasonNoHelp
}

// NewPolicy creates an admission policy by name.
// Valid names: "greedy-feasibility", "accept-all".
// An empty string defaults to GreedyFeasibility (for CLI flag default
// compatibility). Panics on unrecognized names.
func NewPolicy(name string, tuning Tuning) AdmissionPolicy {
	switch name {
	case "", "greedy-feasibility":
		return NewGreedyFeasibility(tuning)
	case "accept-all":
		return AcceptAll{}
	default:
		panic(fmt.Sprintf("unknown admission policy %q; valid policies: [greedy-feasibility, accept-all]", name))
	}
}
