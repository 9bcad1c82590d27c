package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modgate/internal/gate"
)

// AnalysisStep is the scripted outcome of one Await call.
type AnalysisStep struct {
	Err         error
	Annotations *gate.Annotations
	// Hang blocks the Await until its context ends or its timeout elapses.
	Hang bool
}

// ScriptedAnalysis is an AnalysisService that plays back scripted steps per
// modality. Once a modality's script runs out it reports clean annotations.
// Safe for concurrent use.
type ScriptedAnalysis struct {
	mu      sync.Mutex
	scripts map[gate.Modality][]AnalysisStep
	submits map[gate.Modality]int
	uris    []string
	jobs    int

	// OnAwait, if set, runs at the start of every Await. Tests use it to act
	// while analysis is in flight.
	OnAwait func(ctx context.Context, m gate.Modality)
}

// Compile-time check that ScriptedAnalysis implements gate.AnalysisService interface
var _ gate.AnalysisService = (*ScriptedAnalysis)(nil)

func NewScriptedAnalysis() *ScriptedAnalysis {
	return &ScriptedAnalysis{
		scripts: make(map[gate.Modality][]AnalysisStep),
		submits: make(map[gate.Modality]int),
	}
}

// Script appends steps to the playback of modality m.
func (a *ScriptedAnalysis) Script(m gate.Modality, steps ...AnalysisStep) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts[m] = append(a.scripts[m], steps...)
}

// Fail scripts n consecutive failures of modality m with err.
func (a *ScriptedAnalysis) Fail(m gate.Modality, n int, err error) {
	for i := 0; i < n; i++ {
		a.Script(m, AnalysisStep{Err: err})
	}
}

func (a *ScriptedAnalysis) Submit(ctx context.Context, uri string, features []gate.Feature) (gate.JobHandle, error) {
	if err := ctx.Err(); err != nil {
		return gate.JobHandle{}, err
	}
	m := gate.ModalityFor(features)
	if m == "" {
		return gate.JobHandle{}, fmt.Errorf("unexpected feature set %v", features)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits[m]++
	a.uris = append(a.uris, uri)
	a.jobs++
	return gate.JobHandle{ID: fmt.Sprintf("job-%d", a.jobs), Modality: m}, nil
}

func (a *ScriptedAnalysis) Await(ctx context.Context, job gate.JobHandle, timeout time.Duration) (*gate.Annotations, error) {
	if a.OnAwait != nil {
		a.OnAwait(ctx, job.Modality)
	}

	a.mu.Lock()
	step := AnalysisStep{Annotations: CleanAnnotations(job.Modality)}
	if script := a.scripts[job.Modality]; len(script) > 0 {
		step = script[0]
		a.scripts[job.Modality] = script[1:]
	}
	a.mu.Unlock()

	if step.Hang {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, gate.ErrAwaitTimeout
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Annotations, nil
}

// Submits returns how many jobs were submitted for modality m.
func (a *ScriptedAnalysis) Submits(m gate.Modality) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submits[m]
}

// TotalSubmits returns how many jobs were submitted for any modality.
func (a *ScriptedAnalysis) TotalSubmits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jobs
}

// URIs returns every URI submitted for analysis, in order.
func (a *ScriptedAnalysis) URIs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.uris...)
}

// CleanAnnotations returns annotations that pass every check for modality m.
func CleanAnnotations(m gate.Modality) *gate.Annotations {
	switch m {
	case gate.ModalityVideo:
		return &gate.Annotations{
			ExplicitFrames: []gate.ExplicitFrame{
				{TimeOffset: 0, Likelihood: gate.LikelihoodVeryUnlikely},
				{TimeOffset: time.Second, Likelihood: gate.LikelihoodUnlikely},
			},
			ObjectTracks: []gate.ObjectTrack{{Label: "person", Confidence: 0.91}},
			PersonTracks: []gate.PersonTrack{RestingTrack("p1", 6)},
		}
	case gate.ModalityAudio:
		return TranscriptAnnotations("hello and welcome back to the channel")
	case gate.ModalityImage:
		return SafeSearchAnnotations(gate.LikelihoodVeryUnlikely, gate.LikelihoodVeryUnlikely, gate.LikelihoodUnlikely)
	}
	return &gate.Annotations{}
}

// ExplicitAnnotations returns video annotations whose peak frame has likelihood l.
func ExplicitAnnotations(l gate.Likelihood) *gate.Annotations {
	a := CleanAnnotations(gate.ModalityVideo)
	a.ExplicitFrames = append(a.ExplicitFrames, gate.ExplicitFrame{TimeOffset: 2 * time.Second, Likelihood: l})
	return a
}

// GestureAnnotations returns clean video annotations plus one person holding
// a wrist raised for the given number of consecutive frames.
func GestureAnnotations(frames int) *gate.Annotations {
	a := CleanAnnotations(gate.ModalityVideo)
	a.PersonTracks = append(a.PersonTracks, RaisedHandTrack("p2", frames))
	return a
}

// TranscriptAnnotations returns audio annotations for a finished transcription.
func TranscriptAnnotations(text string) *gate.Annotations {
	return &gate.Annotations{SpeechTranscribed: true, Transcript: text, TranscriptConfidence: 0.92}
}

// SafeSearchAnnotations returns still-image annotations.
func SafeSearchAnnotations(adult, violence, racy gate.Likelihood) *gate.Annotations {
	return &gate.Annotations{SafeSearch: map[string]gate.Likelihood{
		"adult":    adult,
		"violence": violence,
		"racy":     racy,
	}}
}

// RestingTrack returns a person track with both wrists at the hips.
func RestingTrack(id string, frames int) gate.PersonTrack {
	return poseTrack(id, frames, 0.7)
}

// RaisedHandTrack returns a person track with the right wrist well above
// the right shoulder on every frame.
func RaisedHandTrack(id string, frames int) gate.PersonTrack {
	return poseTrack(id, frames, 0.15)
}

func poseTrack(id string, frames int, rightWristY float64) gate.PersonTrack {
	track := gate.PersonTrack{TrackID: id}
	for i := 0; i < frames; i++ {
		track.Frames = append(track.Frames, gate.PoseFrame{
			Index:      i,
			TimeOffset: time.Duration(i) * 500 * time.Millisecond,
			Top:        0.1,
			Bottom:     0.9,
			Landmarks: map[string]gate.Landmark{
				gate.LandmarkLeftShoulder:  {X: 0.4, Y: 0.3, Confidence: 0.9},
				gate.LandmarkRightShoulder: {X: 0.6, Y: 0.3, Confidence: 0.9},
				gate.LandmarkLeftWrist:     {X: 0.35, Y: 0.7, Confidence: 0.9},
				gate.LandmarkRightWrist:    {X: 0.65, Y: rightWristY, Confidence: 0.9},
			},
		})
	}
	return track
}
