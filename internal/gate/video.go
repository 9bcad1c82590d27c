package gate

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// evaluateVideo rejects on explicit content at or above LIKELY on any sampled
// frame, or on any sustained raised-hand gesture.
func evaluateVideo(a *Annotations, cfg GestureConfig) (ModalityResult, error) {
	if len(a.ExplicitFrames) == 0 {
		return ModalityResult{}, errors.New("video analysis returned no explicit content frames")
	}

	peak := LikelihoodUnknown
	var peakAt time.Duration
	for _, f := range a.ExplicitFrames {
		if f.Likelihood > peak {
			peak = f.Likelihood
			peakAt = f.TimeOffset
		}
	}
	flags := DetectGestures(a.PersonTracks, cfg)

	result := ModalityResult{
		Confidence: 1 - peak.Score(),
		Features: Features{
			Labels:                trackLabels(a.ObjectTracks),
			PersonCount:           len(a.PersonTracks),
			MaxExplicitLikelihood: peak,
			GestureFlags:          flags,
		},
	}

	var reasons []string
	if peak >= LikelihoodLikely {
		reasons = append(reasons, fmt.Sprintf("explicit content %s at %s", peak, peakAt))
		result.Confidence = peak.Score()
	}
	for _, f := range flags {
		reasons = append(reasons, fmt.Sprintf("sustained raised-hand gesture (%s)", f))
	}
	if len(flags) > 0 && result.Confidence < LikelihoodLikely.Score() {
		result.Confidence = LikelihoodLikely.Score()
	}

	if len(reasons) > 0 {
		return result, &PolicyRejection{Modality: ModalityVideo, Reasons: reasons}
	}
	return result, nil
}

func trackLabels(tracks []ObjectTrack) []string {
	seen := make(map[string]bool, len(tracks))
	var labels []string
	for _, t := range tracks {
		if t.Label == "" || seen[t.Label] {
			continue
		}
		seen[t.Label] = true
		labels = append(labels, t.Label)
	}
	sort.Strings(labels)
	return labels
}
