package constants

// ProcessStatus is the lifecycle state of a ProcessResult.
type ProcessStatus string

// Stable values (persisted as-is).
const (
	StatusPending    ProcessStatus = "pending"    // queued, not yet extracted
	StatusProcessing ProcessStatus = "processing" // extraction in progress
	StatusSuccess    ProcessStatus = "success"    // merged record available, awaiting review
	StatusError      ProcessStatus = "error"      // terminal extraction failure
	StatusConfirmed  ProcessStatus = "confirmed"  // reviewed and confirmed
)

var allowedTransitions = map[ProcessStatus][]ProcessStatus{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusSuccess, StatusError},
	StatusSuccess:    {StatusConfirmed},
	StatusError:      {StatusPending},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to ProcessStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Editable reports whether a result in this state may enter a review session.
func (s ProcessStatus) Editable() bool {
	return s == StatusSuccess || s == StatusConfirmed
}

func (s ProcessStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSuccess, StatusError, StatusConfirmed:
		return true
	}
	return false
}
