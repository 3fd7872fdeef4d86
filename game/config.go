package game

// Tuning groups the heuristic knobs of the greedy admission policy. All of
// them are levers for rejection efficiency, not correctness: the hard
// feasibility guards in the policy hold for any setting.
type Tuning struct {
	// SafetyMargin inflates each constraint's target by this fraction while
	// the run is below MarginPhaseFraction of capacity.
	SafetyMargin float64 `yaml:"safety_margin"`
	// MarginPhaseFraction is the fill level (0..1) at which the policy stops
	// tracking buffered targets and reverts to raw minimums.
	MarginPhaseFraction float64 `yaml:"margin_phase_fraction"`
	// FillerSlack is how many spare slots beyond the largest outstanding
	// deficit must remain before a person helping no quota is admitted.
	FillerSlack int `yaml:"filler_slack"`
	// CapPressureFraction is the used fraction (0..1) of the rejection cap
	// past which filler rejections flip to acceptances, so a run close to
	// aborting does not end empty-handed.
	CapPressureFraction float64 `yaml:"cap_pressure_fraction"`
}

// DefaultTuning returns the stock policy knobs.
func DefaultTuning() Tuning {
	return Tuning{
		SafetyMargin:        0.10,
		MarginPhaseFraction: 0.80,
		FillerSlack:         0,
		CapPressureFraction: 0.95,
	}
}

// RunnerConfig groups run-loop parameters.
type RunnerConfig struct {
	Scenario     int // scenario number passed to session creation
	RejectionCap int // local rejection budget; the run aborts when reached
	LogEvery     int // progress log cadence in processed individuals (0 = off)
}
