package common

// JobStatus is the client-visible state of a processing job.
type JobStatus string

const (
	StatusPending      JobStatus = "pending"
	StatusTranscribing JobStatus = "transcribing"
	StatusAnalyzing    JobStatus = "analyzing"
	StatusCompleted    JobStatus = "completed"
	StatusError        JobStatus = "error"
)

// IsTerminal reports whether no further transitions can happen.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusTranscribing, StatusAnalyzing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}
