package app

import (
	"time"

	"modgate/internal/config"
	"modgate/internal/gate"
)

// PolicyFromConfig builds the pipeline policy. Zero values in cfg keep the
// defaults of gate.DefaultPolicy.
func PolicyFromConfig(cfg *config.Config) gate.Policy {
	p := gate.DefaultPolicy()

	pl := cfg.Pipeline
	setInt(&p.Concurrency, pl.Concurrency)
	setInt64(&p.MaxUploadSize, pl.MaxUploadSize)
	setDuration(&p.MaxDuration, pl.MaxDuration)
	setDuration(&p.AnalysisWait, pl.AnalysisWait)
	setInt(&p.Retry.MaxAttempts, pl.MaxAttempts)
	setDuration(&p.Retry.AttemptTimeout, pl.AttemptTimeout)
	setDuration(&p.Retry.InitialBackoff, pl.InitialBackoff)
	setDuration(&p.Retry.MaxBackoff, pl.MaxBackoff)

	// Asset creation shares the pipeline's timing but has its own attempt budget.
	p.PublishRetry = p.Retry
	p.PublishRetry.MaxAttempts = gate.DefaultRetryPolicy().MaxAttempts
	setInt(&p.PublishRetry.MaxAttempts, cfg.Publish.MaxAttempts)
	setInt(&p.PollAttempts, cfg.Publish.PollAttempts)
	setDuration(&p.PollInterval, cfg.Publish.PollInterval)

	p.Denylist = cfg.Policy.Denylist
	p.Allowlist = cfg.Policy.Allowlist
	if cfg.Policy.GestureElevationDelta > 0 {
		p.Gesture.ElevationDelta = cfg.Policy.GestureElevationDelta
	}
	setInt(&p.Gesture.MinFrames, cfg.Policy.GestureMinFrames)
	if cfg.Policy.MinLandmarkConfidence > 0 {
		p.Gesture.MinLandmarkConfidence = cfg.Policy.MinLandmarkConfidence
	}

	setDuration(&p.GracePeriod, cfg.Sweeper.GracePeriod)
	setDuration(&p.StallTimeout, cfg.Sweeper.StallTimeout)
	setInt(&p.SweepBatchSize, cfg.Sweeper.BatchSize)
	return p
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setInt64(dst *int64, v int64) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v config.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}
