package gate

import (
	"errors"
	"fmt"
)

// evaluateAudio rejects when the transcript contains a denylisted term.
// An empty transcript is clear only if transcription actually ran.
func evaluateAudio(a *Annotations, terms *TermMatcher) (ModalityResult, error) {
	if !a.SpeechTranscribed {
		return ModalityResult{}, errors.New("audio analysis returned no transcription")
	}

	matched := terms.Match(a.Transcript)
	result := ModalityResult{
		Confidence: a.TranscriptConfidence,
		Features: Features{
			Transcript:   a.Transcript,
			MatchedTerms: matched,
		},
	}
	if len(matched) == 0 {
		return result, nil
	}

	reasons := make([]string, 0, len(matched))
	for _, term := range matched {
		reasons = append(reasons, fmt.Sprintf("denylisted term %q in transcript", term))
	}
	return result, &PolicyRejection{Modality: ModalityAudio, Reasons: reasons}
}
