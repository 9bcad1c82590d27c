package gate

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"modgate/internal/database/sqlc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeModalityResults serializes results for the decision row.
func EncodeModalityResults(results []ModalityResult) (string, error) {
	if results == nil {
		results = []ModalityResult{}
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to encode modality results: %w", err)
	}
	return string(b), nil
}

// DecodeModalityResults parses the modality results stored on a decision.
func DecodeModalityResults(d *sqlc.ModerationDecision) ([]ModalityResult, error) {
	var results []ModalityResult
	if d.ModalityResults == "" {
		return results, nil
	}
	if err := json.Unmarshal([]byte(d.ModalityResults), &results); err != nil {
		return nil, fmt.Errorf("failed to decode modality results of decision %d: %w", d.ID, err)
	}
	return results, nil
}
