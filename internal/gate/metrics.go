package gate

import "time"

// Metrics receives pipeline measurements. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ContentStaged(kind Kind)
	ModalityVerdict(modality Modality, verdict Verdict)
	DecisionRecorded(decision Decision, automated bool)
	PublishOutcome(outcome string)
	SweepAction(action string)
	InFlight(delta int)
	StageDuration(stage string, d time.Duration)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) ContentStaged(Kind)                  {}
func (NopMetrics) ModalityVerdict(Modality, Verdict)   {}
func (NopMetrics) DecisionRecorded(Decision, bool)     {}
func (NopMetrics) PublishOutcome(string)               {}
func (NopMetrics) SweepAction(string)                  {}
func (NopMetrics) InFlight(int)                        {}
func (NopMetrics) StageDuration(string, time.Duration) {}
