package gate

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies what sort of asset a content item is.
type Kind string

const (
	KindVideo        Kind = "video"
	KindVideoComment Kind = "video_comment"
	KindThreadVideo  Kind = "thread_video"
	KindProfileImage Kind = "profile_image"
)

// IsStill reports whether the kind is a still image rather than a clip.
func (k Kind) IsStill() bool {
	return k == KindProfileImage
}

// Status is the pipeline position of a content item.
type Status string

const (
	StatusStaged     Status = "staged"
	StatusUploaded   Status = "uploaded"
	StatusAnalyzing  Status = "analyzing"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
	StatusPublishing Status = "publishing"
	StatusActive     Status = "active"
	StatusFailed     Status = "failed"
)

// IsPreDecision reports whether no moderation decision can exist yet for an
// item in this status.
func (s Status) IsPreDecision() bool {
	switch s {
	case StatusStaged, StatusUploaded, StatusAnalyzing:
		return true
	}
	return false
}

// Decision is the outcome recorded in a moderation decision row.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Status returns the content status a decision moves an item to.
func (d Decision) Status() Status {
	if d == DecisionApproved {
		return StatusApproved
	}
	return StatusRejected
}

// Modality is one category of automated analysis.
type Modality string

const (
	ModalityVideo Modality = "video"
	ModalityAudio Modality = "audio"
	ModalityImage Modality = "image"
)

// ApplicableModalities returns the modalities that must all come back clear
// before an item of the given kind can be approved.
func ApplicableModalities(kind Kind) []Modality {
	if kind.IsStill() {
		return []Modality{ModalityImage}
	}
	return []Modality{ModalityVideo, ModalityAudio}
}

// Verdict is the normalized result of one modality.
type Verdict string

const (
	VerdictClear        Verdict = "clear"
	VerdictReject       Verdict = "reject"
	VerdictInconclusive Verdict = "inconclusive_error"
)

// Flagged reasons written by the pipeline itself.
const (
	ReasonStorageVerificationFailed = "storage verification failed"
	ReasonDurableUploadFailed       = "durable upload failed"
	ReasonPublishPendingRetry       = "publish pending retry"
	ReasonStalled                   = "stalled — exceeded processing window"
)

// MetadataVersion is the current version of UploadMetadata.
const MetadataVersion = 1

// UploadMetadata is the declared metadata accompanying a finished upload.
// It is validated once, at staging, and never passed around loosely after that.
type UploadMetadata struct {
	Version    int    `json:"version" validate:"required,eq=1"`
	ContentID  string `json:"content_id" validate:"omitempty,contentid"`
	OwnerID    string `json:"owner_id" validate:"required,max=128"`
	Kind       Kind   `json:"kind" validate:"required,oneof=video video_comment thread_video profile_image"`
	Size       int64  `json:"size" validate:"gt=0"`
	DurationMS int64  `json:"duration_ms" validate:"gte=0"`
	Category   string `json:"category" validate:"max=64"`
	Title      string `json:"title" validate:"max=256"`
}

// StagedBlob describes a blob written to the staging area.
type StagedBlob struct {
	Path     string
	Size     int64
	Checksum string
}

// ModalityResult is the normalized outcome of one modality for one item.
type ModalityResult struct {
	Modality   Modality `json:"modality"`
	Verdict    Verdict  `json:"verdict"`
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
	Attempts   int      `json:"attempts"`
	Features   Features `json:"features"`
}

// Features is the raw feature summary kept with a modality result for review.
type Features struct {
	Transcript            string                `json:"transcript,omitempty"`
	MatchedTerms          []string              `json:"matched_terms,omitempty"`
	Labels                []string              `json:"labels,omitempty"`
	PersonCount           int                   `json:"person_count,omitempty"`
	MaxExplicitLikelihood Likelihood            `json:"max_explicit_likelihood,omitempty"`
	GestureFlags          []GestureFlag         `json:"gesture_flags,omitempty"`
	SafeSearch            map[string]Likelihood `json:"safe_search,omitempty"`
}

// GestureFlag records one sustained wrist-above-shoulder run on a tracked person.
type GestureFlag struct {
	TrackID    string `json:"track_id"`
	Side       string `json:"side"`
	FirstFrame int    `json:"first_frame"`
	LastFrame  int    `json:"last_frame"`
	Frames     int    `json:"frames"`
}

func (g GestureFlag) String() string {
	wrist := g.Side + " wrist"
	if g.Side == "both" {
		wrist = "both wrists"
	}
	return fmt.Sprintf("track %s %s, frames %d-%d", g.TrackID, wrist, g.FirstFrame, g.LastFrame)
}

// StatusView is what the surrounding application sees of a content item.
type StatusView struct {
	ContentID     string    `json:"content_id"`
	Status        Status    `json:"status"`
	FlaggedReason string    `json:"flagged_reason,omitempty"`
	IsActive      bool      `json:"is_active"`
	DeliveryURL   string    `json:"delivery_url,omitempty"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Likelihood is the bucketed probability scale used by the analysis services.
type Likelihood int

const (
	LikelihoodUnknown Likelihood = iota
	LikelihoodVeryUnlikely
	LikelihoodUnlikely
	LikelihoodPossible
	LikelihoodLikely
	LikelihoodVeryLikely
)

var likelihoodNames = []string{"UNKNOWN", "VERY_UNLIKELY", "UNLIKELY", "POSSIBLE", "LIKELY", "VERY_LIKELY"}

func (l Likelihood) String() string {
	if l < 0 || int(l) >= len(likelihoodNames) {
		return "UNKNOWN"
	}
	return likelihoodNames[l]
}

// Score maps a likelihood bucket onto [0, 1].
func (l Likelihood) Score() float64 {
	switch l {
	case LikelihoodVeryUnlikely:
		return 0.1
	case LikelihoodUnlikely:
		return 0.3
	case LikelihoodPossible:
		return 0.5
	case LikelihoodLikely:
		return 0.7
	case LikelihoodVeryLikely:
		return 0.9
	}
	return 0
}

// ParseLikelihood parses the wire name of a likelihood bucket.
func ParseLikelihood(s string) (Likelihood, error) {
	for i, name := range likelihoodNames {
		if strings.EqualFold(s, name) {
			return Likelihood(i), nil
		}
	}
	return LikelihoodUnknown, fmt.Errorf("unknown likelihood: %q", s)
}

func (l Likelihood) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Likelihood) UnmarshalText(text []byte) error {
	parsed, err := ParseLikelihood(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
