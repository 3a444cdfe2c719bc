package domain

import "time"

type EventType string

const (
	EventJobAdded        EventType = "job_added"
	EventJobUpdated      EventType = "job_updated"
	EventProgressUpdated EventType = "progress_updated"
	EventStateChanged    EventType = "state_changed"
	EventJobError        EventType = "job_error"
	EventJobCompleted    EventType = "job_completed"
)

// Event is a state-change notification published by the queue manager.
// Events for a single job are delivered in the order its worker produced
// them; there is no ordering across jobs.
type Event struct {
	Type  EventType `json:"type"`
	JobID string    `json:"job_id"`
	Time  time.Time `json:"time"`

	OldState JobStatus `json:"old_state,omitempty"`
	NewState JobStatus `json:"new_state,omitempty"`

	Progress *Progress `json:"progress,omitempty"`
	Reason   string    `json:"reason,omitempty"`

	Completed *Completion `json:"completed,omitempty"`
}

// Completion is the payload handed to the history store when a job finishes.
type Completion struct {
	JobID   string    `json:"job_id"`
	URL     string    `json:"url"`
	Title   string    `json:"title"`
	Options Options   `json:"options"`
	Path    string    `json:"path"`
	Time    time.Time `json:"time"`
}
