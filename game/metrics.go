package game

import (
	"fmt"
	"sort"
	"time"
)

// Metrics aggregates per-decision statistics over a run for progress
// reporting and the final summary.
type Metrics struct {
	Processed int            // individuals judged
	Accepted  int            // individuals admitted
	Rejected  int            // individuals turned away
	Reasons   map[string]int // decision reason tally
}

// NewMetrics creates an empty tally.
func NewMetrics() *Metrics {
	return &Metrics{Reasons: make(map[string]int)}
}

// Record books one decision.
func (m *Metrics) Record(accept bool, reason string) {
	m.Processed++
	if accept {
		m.Accepted++
	} else {
		m.Rejected++
	}
	if reason != "" {
		m.Reasons[reason]++
	}
}

// Efficiency is accepted/(accepted+rejected), the run's headline metric.
func (m *Metrics) Efficiency() float64 {
	if m.Processed == 0 {
		return 0
	}
	return float64(m.Accepted) / float64(m.Processed)
}

// Print displays the final run summary.
func (m *Metrics) Print(state RunState, t *QuotaTracker, elapsed time.Duration) {
	fmt.Println("=== Run Metrics ===")
	fmt.Printf("Final state      : %s\n", state)
	fmt.Printf("Processed        : %d\n", m.Processed)
	if t != nil {
		fmt.Printf("Accepted         : %d/%d\n", m.Accepted, t.Capacity())
		fmt.Printf("Rejected         : %d/%d\n", m.Rejected, t.RejectionCap())
	} else {
		fmt.Printf("Accepted         : %d\n", m.Accepted)
		fmt.Printf("Rejected         : %d\n", m.Rejected)
	}
	fmt.Printf("Efficiency       : %.4f\n", m.Efficiency())
	fmt.Printf("Elapsed          : %s\n", elapsed.Round(time.Millisecond))
	if t != nil && t.TotalDeficit() > 0 {
		fmt.Printf("Unmet deficits   : %v\n", t.Deficits())
	}
	for _, reason := range sortedKeys(m.Reasons) {
		fmt.Printf("  reason %-18s: %d\n", reason, m.Reasons[reason])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
