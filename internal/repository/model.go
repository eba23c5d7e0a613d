package repository

import (
	"sort"
	"time"
)

// Activation status values, following the platform's result taxonomy.
const (
	StatusSuccess          = "success"
	StatusApplicationError = "application_error"
	StatusDeveloperError   = "developer_error"
	StatusInternalError    = "internal_error"
)

// Metadata holds versioning info used to detect newer copies on disk.
type Metadata struct {
	LastUpdate int64 `json:"lastUpdate"` // Unix timestamp in milliseconds
}

// HistoryDocument represents the persisted JSON structure.
type HistoryDocument struct {
	Metadata    Metadata     `json:"metadata"`
	Activations []Activation `json:"activations" validate:"dive"`
}

// Activation records one action invocation.
type Activation struct {
	ActivationID string         `json:"activationId" validate:"required"`
	Action       string         `json:"action" validate:"required"`
	Kind         string         `json:"kind" validate:"required"`
	ContainerID  string         `json:"containerId,omitempty"`
	Parameters   map[string]any `json:"parameters"`
	Result       any            `json:"result,omitempty"`
	Status       string         `json:"status" validate:"required,oneof=success application_error developer_error internal_error"`
	Error        string         `json:"error,omitempty"`
	Start        time.Time      `json:"start" validate:"required"`
	End          time.Time      `json:"end"`
	DurationMs   int64          `json:"duration" validate:"gte=0"`
}

// ApplyDefaults sets fallback values after decode.
func (d *HistoryDocument) ApplyDefaults() {
	if d.Activations == nil {
		d.Activations = []Activation{}
	}
	for i := range d.Activations {
		if d.Activations[i].Parameters == nil {
			d.Activations[i].Parameters = map[string]any{}
		}
	}
}

// MergeActivations returns the union of a and b by activation id, oldest
// first, keeping at most the newest limit entries (limit <= 0 keeps all).
// Entries of b win on id conflicts.
func MergeActivations(a, b []Activation, limit int) []Activation {
	byID := make(map[string]Activation, len(a)+len(b))
	for _, act := range a {
		byID[act.ActivationID] = act
	}
	for _, act := range b {
		byID[act.ActivationID] = act
	}

	merged := make([]Activation, 0, len(byID))
	for _, act := range byID {
		merged = append(merged, act)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Start.Equal(merged[j].Start) {
			return merged[i].ActivationID < merged[j].ActivationID
		}
		return merged[i].Start.Before(merged[j].Start)
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged
}

// Newest returns up to limit activations, newest first (limit <= 0 returns all).
func Newest(activations []Activation, limit int) []Activation {
	n := len(activations)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Activation, 0, n)
	for i := len(activations) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, activations[i])
	}
	return out
}

// Find returns the activation with id, or nil.
func Find(activations []Activation, id string) *Activation {
	for i := range activations {
		if activations[i].ActivationID == id {
			act := activations[i]
			return &act
		}
	}
	return nil
}
