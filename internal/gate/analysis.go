package gate

import (
	"context"
	"slices"
	"time"
)

// Feature names a kind of annotation requested from the analysis service.
type Feature string

const (
	FeatureExplicitContent     Feature = "EXPLICIT_CONTENT_DETECTION"
	FeatureObjectTracking      Feature = "OBJECT_TRACKING"
	FeaturePersonDetection     Feature = "PERSON_DETECTION"
	FeatureSpeechTranscription Feature = "SPEECH_TRANSCRIPTION"
	FeatureSafeSearch          Feature = "SAFE_SEARCH_DETECTION"
)

// FeaturesFor returns the annotation features a modality needs.
func FeaturesFor(m Modality) []Feature {
	switch m {
	case ModalityVideo:
		return []Feature{FeatureExplicitContent, FeatureObjectTracking, FeaturePersonDetection}
	case ModalityAudio:
		return []Feature{FeatureSpeechTranscription}
	case ModalityImage:
		return []Feature{FeatureSafeSearch}
	}
	return nil
}

// ModalityFor returns the modality a feature set was requested for, or ""
// when the features belong to no single modality.
func ModalityFor(features []Feature) Modality {
	for _, m := range []Modality{ModalityVideo, ModalityAudio, ModalityImage} {
		if slices.Equal(FeaturesFor(m), features) {
			return m
		}
	}
	return ""
}

// JobHandle identifies a submitted analysis job.
type JobHandle struct {
	ID       string
	Modality Modality
}

// AnalysisService runs automated analysis against a durable URI.
// Implementations return errors wrapped with Transient when a retry may help.
type AnalysisService interface {
	Submit(ctx context.Context, uri string, features []Feature) (JobHandle, error)

	// Await blocks until the job finishes, ctx ends, or timeout elapses.
	// An elapsed timeout returns ErrAwaitTimeout.
	Await(ctx context.Context, job JobHandle, timeout time.Duration) (*Annotations, error)
}

// Annotations is the raw output of an analysis job. Only the fields for the
// requested features are populated.
type Annotations struct {
	ExplicitFrames []ExplicitFrame `json:"explicit_frames,omitempty"`
	ObjectTracks   []ObjectTrack   `json:"object_tracks,omitempty"`
	PersonTracks   []PersonTrack   `json:"person_tracks,omitempty"`

	// SpeechTranscribed is set when transcription ran, even if nothing was said.
	SpeechTranscribed    bool    `json:"speech_transcribed"`
	Transcript           string  `json:"transcript,omitempty"`
	TranscriptConfidence float64 `json:"transcript_confidence,omitempty"`

	SafeSearch map[string]Likelihood `json:"safe_search,omitempty"`
}

// ExplicitFrame is the explicit content likelihood of one sampled frame.
type ExplicitFrame struct {
	TimeOffset time.Duration `json:"time_offset"`
	Likelihood Likelihood    `json:"likelihood"`
}

// ObjectTrack is one tracked object label.
type ObjectTrack struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// PersonTrack is one person followed across sampled frames.
type PersonTrack struct {
	TrackID string      `json:"track_id"`
	Frames  []PoseFrame `json:"frames"`
}

// PoseFrame holds a person's bounding box and pose landmarks on one sampled
// frame. Coordinates are normalized to the frame with y growing downwards.
type PoseFrame struct {
	Index      int                 `json:"index"`
	TimeOffset time.Duration       `json:"time_offset"`
	Top        float64             `json:"top"`
	Bottom     float64             `json:"bottom"`
	Landmarks  map[string]Landmark `json:"landmarks"`
}

// Landmark is a single pose keypoint.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// Pose landmark names used by the gesture heuristic.
const (
	LandmarkLeftWrist     = "left_wrist"
	LandmarkRightWrist    = "right_wrist"
	LandmarkLeftShoulder  = "left_shoulder"
	LandmarkRightShoulder = "right_shoulder"
)
