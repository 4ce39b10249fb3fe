// Package events provides an event system for run progress notifications.
package events

import "time"

// EventType represents the type of event
type EventType string

const (
	// EventPhaseStarted is emitted when the runner enters a new phase
	EventPhaseStarted EventType = "phase_started"
	// EventFaultInjected is emitted when the nemesis applies a fault
	EventFaultInjected EventType = "fault_injected"
	// EventFaultFailed is emitted when a fault actuator reports an error
	EventFaultFailed EventType = "fault_failed"
	// EventOpCompleted is emitted when a client operation completes
	EventOpCompleted EventType = "op_completed"
	// EventRunCompleted is emitted when a run finishes and a verdict exists
	EventRunCompleted EventType = "run_completed"
)

// Event represents a run progress event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Data      EventData `json:"data,omitempty"`
}

// EventData contains event-specific data
type EventData struct {
	Phase   string `json:"phase,omitempty"`
	Fault   string `json:"fault,omitempty"`
	Process int    `json:"process,omitempty"`
	F       string `json:"f,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Valid   *bool  `json:"valid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewPhaseStartedEvent creates a phase transition event
func NewPhaseStartedEvent(runID, phase string) Event {
	return Event{
		Type:      EventPhaseStarted,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      EventData{Phase: phase},
	}
}

// NewFaultInjectedEvent creates a fault injection event
func NewFaultInjectedEvent(runID, fault string) Event {
	return Event{
		Type:      EventFaultInjected,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      EventData{Fault: fault},
	}
}

// NewFaultFailedEvent creates a fault failure event
func NewFaultFailedEvent(runID, fault string, err error) Event {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	return Event{
		Type:      EventFaultFailed,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      EventData{Fault: fault, Error: errMsg},
	}
}

// NewOpCompletedEvent creates an operation completion event
func NewOpCompletedEvent(runID string, process int, f, outcome string) Event {
	return Event{
		Type:      EventOpCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      EventData{Process: process, F: f, Outcome: outcome},
	}
}

// NewRunCompletedEvent creates a run completion event
func NewRunCompletedEvent(runID string, valid bool) Event {
	return Event{
		Type:      EventRunCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      EventData{Valid: &valid},
	}
}
