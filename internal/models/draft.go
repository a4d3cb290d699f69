package models

import (
	"encoding/json"
	"time"
)

// StorageKeyWizardDraft is the default key for the trip-wizard draft, one
// instance of the generic expiring-draft pattern.
const StorageKeyWizardDraft = "routewise-trip-wizard-draft"

// Draft is a time-limited snapshot of in-progress wizard input. Timestamps
// are epoch milliseconds, matching the original client's stored format.
type Draft struct {
	ID             string          `json:"id"`
	CurrentStep    int             `json:"currentStep"`
	CompletedSteps []int           `json:"completedSteps,omitempty"`
	LastUpdated    int64           `json:"lastUpdated"`
	Data           json.RawMessage `json:"data,omitempty"`
	ExpiresAt      int64           `json:"expiresAt"`
}

// IsExpired reports whether the draft has passed its expiry timestamp
func (d *Draft) IsExpired(now time.Time) bool {
	return now.UnixMilli() > d.ExpiresAt
}

// AgeAt returns how long ago the draft was last updated. Clock skew can
// place LastUpdated in the future; that clamps to zero.
func (d *Draft) AgeAt(now time.Time) time.Duration {
	age := now.Sub(time.UnixMilli(d.LastUpdated))
	if age < 0 {
		return 0
	}
	return age
}

// DraftStatus describes a stored draft for status endpoints: whether one
// exists, how old it is, and whether it counts as recent.
type DraftStatus struct {
	Exists      bool   `json:"exists"`
	ID          string `json:"id,omitempty"`
	Age         string `json:"age,omitempty"`
	IsRecent    bool   `json:"isRecent"`
	CurrentStep int    `json:"currentStep,omitempty"`
	ExpiresAt   int64  `json:"expiresAt,omitempty"`
}
