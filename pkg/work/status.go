package work

import (
	"encoding/json"
	"fmt"
)

// Status represents the current lifecycle state of a work item
type Status string

// Work status constants
const (
	// StatusCreated indicates the work item exists only in-process and has
	// not been deposited to the backend
	StatusCreated Status = "created"
	// StatusQueued indicates the work item is waiting in the backend queue
	StatusQueued Status = "queued"
	// StatusRunning indicates the work item has been claimed by a worker
	StatusRunning Status = "running"
	// StatusSuccess indicates the work item finished successfully
	StatusSuccess Status = "success"
	// StatusFailure indicates the work item failed with no retries left
	StatusFailure Status = "failure"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a final state
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// ParseStatus converts a string to a Status
func ParseStatus(str string) (Status, error) {
	switch str {
	case string(StatusCreated):
		return StatusCreated, nil
	case string(StatusQueued):
		return StatusQueued, nil
	case string(StatusRunning):
		return StatusRunning, nil
	case string(StatusSuccess):
		return StatusSuccess, nil
	case string(StatusFailure):
		return StatusFailure, nil
	default:
		return StatusCreated, fmt.Errorf("invalid work status: %s", str)
	}
}

// MarshalJSON implements json.Marshaler for Status
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler for Status
func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}
