package orchestrator

import (
	"github.com/fyrsmithlabs/mentord/internal/intent"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

// TaskStatus is the outcome of one task in a turn.
type TaskStatus string

const (
	// StatusSuccess means the capability ran and its delta was merged.
	StatusSuccess TaskStatus = "success"
	// StatusSkipped means no adapter is available for the capability.
	StatusSkipped TaskStatus = "skipped"
	// StatusError means the capability failed; later tasks still run.
	StatusError TaskStatus = "error"
)

// TaskResult records what happened to one planned task.
type TaskResult struct {
	CapabilityID string         `json:"capability_id"`
	Status       TaskStatus     `json:"status"`
	Error        string         `json:"error,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CapabilityInfo is the advertised shape of one capability.
type CapabilityInfo struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	PhaseCompatibility []string `json:"phase_compatibility"`
}

// Response is the full outcome of one turn.
type Response struct {
	Message               string           `json:"message"`
	State                 *session.State   `json:"state"`
	Intent                intent.Result    `json:"intent"`
	Plan                  []string         `json:"plan"`
	TaskResults           []TaskResult     `json:"task_results"`
	AvailableCapabilities []CapabilityInfo `json:"available_capabilities"`
}

// ModeManual selects a single capability directly, bypassing intent
// resolution.
const ModeManual = "manual"

// Options tune one ProcessRequest call.
type Options struct {
	// Mode is empty for automatic intent resolution or ModeManual.
	Mode string
	// SelectedCapabilityID names the capability to run in manual mode.
	SelectedCapabilityID string
}
