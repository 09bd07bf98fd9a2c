package domain

import "time"

// TriageSettings is the singleton tunables record. A run reads it once and
// carries the snapshot through every stage.
type TriageSettings struct {
	AutoCloseEnabled    bool      `json:"autoCloseEnabled"`
	ConfidenceThreshold float64   `json:"confidenceThreshold"`
	SLAHours            int       `json:"slaHours"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
