package game

import (
	"math"
	"sort"
)

// QuotaTracker is the single mutable state object of a run. It keeps the
// accepted/rejected totals, per-attribute accepted counts, and per-attribute
// arrival counts, and derives deficits and feasibility from them.
//
// It is pure counter bookkeeping: no operation can fail, and only the Runner
// mutates it. Invariants maintained:
//   - AcceptedWith(a) <= Accepted() for every constrained attribute a
//   - Accepted() <= Capacity(), Rejected() <= RejectionCap()
type QuotaTracker struct {
	capacity     int
	rejectionCap int

	minCounts map[string]int
	attrs     []string // constrained attributes in stable sorted order

	accepted int
	rejected int

	admitTrue map[string]int // accepted individuals carrying the attribute
	seenTrue  map[string]int // arrivals carrying the attribute
}

// NewQuotaTracker creates a tracker with all counters at zero.
func NewQuotaTracker(capacity, rejectionCap int, constraints []Constraint) *QuotaTracker {
	t := &QuotaTracker{
		capacity:     capacity,
		rejectionCap: rejectionCap,
		minCounts:    make(map[string]int, len(constraints)),
		admitTrue:    make(map[string]int, len(constraints)),
		seenTrue:     make(map[string]int, len(constraints)),
	}
	for _, c := range constraints {
		t.minCounts[c.Attribute] = c.MinCount
		t.attrs = append(t.attrs, c.Attribute)
	}
	sort.Strings(t.attrs)
	return t
}

// Attributes returns the constrained attributes in stable order.
func (t *QuotaTracker) Attributes() []string { return t.attrs }

func (t *QuotaTracker) Accepted() int     { return t.accepted }
func (t *QuotaTracker) Rejected() int     { return t.rejected }
func (t *QuotaTracker) Capacity() int     { return t.capacity }
func (t *QuotaTracker) RejectionCap() int { return t.rejectionCap }

// RemainingCapacity is the number of open venue slots.
func (t *QuotaTracker) RemainingCapacity() int { return t.capacity - t.accepted }

// Full reports whether the venue has reached capacity.
func (t *QuotaTracker) Full() bool { return t.accepted >= t.capacity }

// CapReached reports whether the local rejection budget is exhausted.
func (t *QuotaTracker) CapReached() bool { return t.rejected >= t.rejectionCap }

// MinCount returns the raw minimum for a constrained attribute (0 otherwise).
func (t *QuotaTracker) MinCount(attr string) int { return t.minCounts[attr] }

// AcceptedWith returns how many accepted individuals carry the attribute.
func (t *QuotaTracker) AcceptedWith(attr string) int { return t.admitTrue[attr] }

// SeenWith returns how many arrivals so far carried the attribute.
func (t *QuotaTracker) SeenWith(attr string) int { return t.seenTrue[attr] }

// Deficit is the shortfall against the raw minimum for the attribute.
func (t *QuotaTracker) Deficit(attr string) int {
	return max(0, t.minCounts[attr]-t.admitTrue[attr])
}

// BufferedDeficit is the shortfall against an inflated target: the raw
// minimum plus the given margin, capped at capacity. A positive margin
// front-loads quota-relevant admissions early in the run.
func (t *QuotaTracker) BufferedDeficit(attr string, margin float64) int {
	// The epsilon keeps float noise in the product from ceiling one too high
	// (40 * 1.1 is 44.000000000000004).
	target := int(math.Ceil(float64(t.minCounts[attr])*(1+margin) - 1e-9))
	target = min(target, t.capacity)
	return max(0, target-t.admitTrue[attr])
}

// MaxDeficit returns the largest raw deficit across all constraints.
func (t *QuotaTracker) MaxDeficit() int {
	m := 0
	for _, a := range t.attrs {
		m = max(m, t.Deficit(a))
	}
	return m
}

// TotalDeficit returns the sum of raw deficits across all constraints.
func (t *QuotaTracker) TotalDeficit() int {
	s := 0
	for _, a := range t.attrs {
		s += t.Deficit(a)
	}
	return s
}

// Deficits returns a snapshot of the positive raw deficits, for reporting.
func (t *QuotaTracker) Deficits() map[string]int {
	out := make(map[string]int)
	for _, a := range t.attrs {
		if d := t.Deficit(a); d > 0 {
			out[a] = d
		}
	}
	return out
}

// Feasible reports whether every constraint is still mathematically
// reachable: each raw deficit must fit in the remaining capacity. Individuals
// carrying several deficited attributes at once only help, so the
// per-constraint check is the conservative baseline.
func (t *QuotaTracker) Feasible() bool {
	slots := t.RemainingCapacity()
	for _, a := range t.attrs {
		if t.Deficit(a) > slots {
			return false
		}
	}
	return true
}

// ProjectedShortfall estimates, per constraint, how far the expected supply
// of carriers in the remaining slots falls short of the deficit, given the
// population's relative attribute frequencies. Positive values flag
// constraints at risk. Diagnostic only.
func (t *QuotaTracker) ProjectedShortfall(freqs map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	slots := float64(t.RemainingCapacity())
	for _, a := range t.attrs {
		d := float64(t.Deficit(a))
		if d <= 0 {
			continue
		}
		if short := d - slots*freqs[a]; short > 0 {
			out[a] = short
		}
	}
	return out
}

// Observe records an arrival's attributes before the decision is made.
func (t *QuotaTracker) Observe(p *Person) {
	for _, a := range t.attrs {
		if p.Has(a) {
			t.seenTrue[a]++
		}
	}
}

// RecordAccept books an accepted individual: the total and every constrained
// attribute the person carries.
func (t *QuotaTracker) RecordAccept(p *Person) {
	t.accepted++
	for _, a := range t.attrs {
		if p.Has(a) {
			t.admitTrue[a]++
		}
	}
}

// RecordReject books a rejection. Rejections never touch attribute counts.
func (t *QuotaTracker) RecordReject() {
	t.rejected++
}
