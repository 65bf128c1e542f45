package domain

import "encoding/json"

type ReadingSource string

const (
	ReadingSourceAutomated ReadingSource = "automated"
	ReadingSourceManual    ReadingSource = "manual_override"
)

// Reading is either Automated(value) or ManualOverride(value, reason).
// The zero value is Automated(0).
type Reading struct {
	value  int
	source ReadingSource
	reason string
}

func Automated(value int) Reading {
	return Reading{value: value, source: ReadingSourceAutomated}
}

func ManualOverride(value int, reason string) Reading {
	return Reading{value: value, source: ReadingSourceManual, reason: reason}
}

func (r Reading) Value() int {
	return r.value
}

func (r Reading) IsManual() bool {
	return r.source == ReadingSourceManual
}

// Reason is empty for automated readings.
func (r Reading) Reason() string {
	return r.reason
}

func (r Reading) Source() ReadingSource {
	if r.source == "" {
		return ReadingSourceAutomated
	}
	return r.source
}

func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value  int           `json:"value"`
		Source ReadingSource `json:"source"`
		Reason string        `json:"reason,omitempty"`
	}{r.value, r.Source(), r.reason})
}
