package gate

import (
	"fmt"
)

// SafeSearchCategories are the still-image categories that must all be
// reported and stay below LIKELY.
var SafeSearchCategories = []string{"adult", "violence", "racy"}

func evaluateImage(a *Annotations) (ModalityResult, error) {
	peak := LikelihoodUnknown
	var reasons []string
	for _, category := range SafeSearchCategories {
		l, ok := a.SafeSearch[category]
		if !ok {
			return ModalityResult{}, fmt.Errorf("image analysis did not report %s likelihood", category)
		}
		if l > peak {
			peak = l
		}
		if l >= LikelihoodLikely {
			reasons = append(reasons, fmt.Sprintf("%s content %s", category, l))
		}
	}

	result := ModalityResult{
		Confidence: 1 - peak.Score(),
		Features:   Features{SafeSearch: a.SafeSearch},
	}
	if len(reasons) > 0 {
		result.Confidence = peak.Score()
		return result, &PolicyRejection{Modality: ModalityImage, Reasons: reasons}
	}
	return result, nil
}
