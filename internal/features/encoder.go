package features

import (
	"sort"
	"strings"
)

// UnknownConditionCode is the reserved code for condition labels not seen
// during training. Unseen labels map here at prediction time, never an error.
const UnknownConditionCode = 0

// ConditionEncoder maps free-text condition descriptions to stable integer
// codes. Codes are only stable across retraining runs when the vocabulary is
// persisted alongside the model, so the encoder state is JSON-serializable.
type ConditionEncoder struct {
	Vocab map[string]int `json:"vocab"`
}

// NewConditionEncoder creates an empty encoder.
func NewConditionEncoder() *ConditionEncoder {
	return &ConditionEncoder{Vocab: make(map[string]int)}
}

// Fit builds the vocabulary from observed labels. Labels are normalized to
// lower case and assigned codes starting at 1 in sorted order, which keeps
// the assignment deterministic for a given label set.
func (e *ConditionEncoder) Fit(labels []string) {
	seen := make(map[string]bool, len(labels))
	unique := make([]string, 0, len(labels))
	for _, label := range labels {
		norm := normalizeLabel(label)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		unique = append(unique, norm)
	}
	sort.Strings(unique)

	e.Vocab = make(map[string]int, len(unique))
	for i, label := range unique {
		e.Vocab[label] = i + 1
	}
}

// Encode returns the code for a label, or UnknownConditionCode when the
// label was not part of the training vocabulary.
func (e *ConditionEncoder) Encode(label string) int {
	if code, ok := e.Vocab[normalizeLabel(label)]; ok {
		return code
	}
	return UnknownConditionCode
}

// Size returns the vocabulary size.
func (e *ConditionEncoder) Size() int {
	return len(e.Vocab)
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
