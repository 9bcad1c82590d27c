package gate

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// GestureConfig tunes the sustained-gesture heuristic.
type GestureConfig struct {
	// ElevationDelta is how far, as a fraction of person height, a wrist
	// must rise above the same-side shoulder.
	ElevationDelta float64
	// MinFrames is the number of consecutive sampled frames required.
	MinFrames int
	// MinLandmarkConfidence discards low-confidence keypoints.
	MinLandmarkConfidence float64
}

// Policy carries every tunable of the pipeline.
type Policy struct {
	MaxUploadSize int64
	MaxDuration   time.Duration

	// Retry governs durable store and analysis calls.
	Retry RetryPolicy
	// AnalysisWait bounds how long a single Await may block.
	AnalysisWait time.Duration

	Gesture   GestureConfig
	Denylist  []string
	Allowlist []string

	// PublishRetry governs asset creation; PollAttempts and PollInterval the
	// readiness polling that follows it.
	PublishRetry RetryPolicy
	PollAttempts int
	PollInterval time.Duration

	Concurrency    int
	GracePeriod    time.Duration
	StallTimeout   time.Duration
	SweepBatchSize int
}

// DefaultPolicy returns the defaults written by `config init`.
func DefaultPolicy() Policy {
	return Policy{
		MaxUploadSize: 2 << 30,
		MaxDuration:   10 * time.Minute,
		Retry:         DefaultRetryPolicy(),
		AnalysisWait:  90 * time.Second,
		Gesture: GestureConfig{
			ElevationDelta:        0.05,
			MinFrames:             3,
			MinLandmarkConfidence: 0.5,
		},
		PublishRetry:   DefaultRetryPolicy(),
		PollAttempts:   20,
		PollInterval:   5 * time.Second,
		Concurrency:    4,
		GracePeriod:    15 * time.Minute,
		StallTimeout:   6 * time.Hour,
		SweepBatchSize: 100,
	}
}

// Dependencies are the collaborators a Service is built from.
type Dependencies struct {
	Database Database
	Staging  StagingArea
	Store    ObjectStore
	Analysis AnalysisService
	Delivery DeliveryNetwork
	Logger   Logger
	Metrics  Metrics
	Clock    Clock
	IDs      IDGenerator
}

// Service runs content through staging, durable upload, analysis, the
// moderation decision and publishing.
type Service struct {
	database Database
	staging  StagingArea
	store    ObjectStore
	analysis AnalysisService
	delivery DeliveryNetwork
	logger   Logger
	metrics  Metrics
	clock    Clock
	idgen    IDGenerator

	policy   Policy
	terms    *TermMatcher
	validate *validator.Validate
}

var contentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,127}$`)

// NewService creates a new Service. Logger, Metrics, Clock and IDs fall back
// to no-op or real implementations when nil.
func NewService(deps Dependencies, policy Policy) (*Service, error) {
	if deps.Database == nil || deps.Staging == nil || deps.Store == nil {
		return nil, errors.New("database, staging area and object store are required")
	}
	if deps.Analysis == nil || deps.Delivery == nil {
		return nil, errors.New("analysis service and delivery network are required")
	}
	if deps.Logger == nil {
		deps.Logger = NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = NopMetrics{}
	}
	if deps.Clock == nil {
		deps.Clock = RealClock{}
	}
	if deps.IDs == nil {
		deps.IDs = UUIDGenerator{}
	}

	terms, err := NewTermMatcher(policy.Denylist, policy.Allowlist)
	if err != nil {
		return nil, fmt.Errorf("failed to build term matcher: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("contentid", func(fl validator.FieldLevel) bool {
		return contentIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("failed to register content id validation: %w", err)
	}

	return &Service{
		database: deps.Database,
		staging:  deps.Staging,
		store:    deps.Store,
		analysis: deps.Analysis,
		delivery: deps.Delivery,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		idgen:    deps.IDs,
		policy:   policy,
		terms:    terms,
		validate: validate,
	}, nil
}

// Policy returns the policy the service was built with.
func (s *Service) Policy() Policy {
	return s.policy
}

// now returns the clock time normalized to UTC. Timestamps are compared as
// text by SQLite, so every stored time must share a zone.
func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}
