package gate

import (
	"fmt"
	"strings"
)

// Aggregate folds modality results into a decision. Approval requires every
// modality applicable to kind to be present and clear. The reason lists every
// contributing cause joined with "; ".
func Aggregate(kind Kind, results []ModalityResult) (Decision, string) {
	byModality := make(map[Modality]ModalityResult, len(results))
	for _, r := range results {
		byModality[r.Modality] = r
	}

	var reasons []string
	for _, m := range ApplicableModalities(kind) {
		r, ok := byModality[m]
		switch {
		case !ok:
			reasons = append(reasons, fmt.Sprintf("%s: no result (%v)", m, ErrInconclusive))
		case r.Verdict == VerdictClear:
		case r.Reason != "":
			reasons = append(reasons, r.Reason)
		default:
			reasons = append(reasons, fmt.Sprintf("%s: %s", m, r.Verdict))
		}
	}

	if len(reasons) == 0 {
		return DecisionApproved, "all modalities clear"
	}
	return DecisionRejected, strings.Join(reasons, "; ")
}
