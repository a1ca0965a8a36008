package domain

// Status describes where a rule's execution stands within one build
// context.
type Status int

const (
	// StatusWaiting means the rule has not been launched in this build.
	StatusWaiting Status = iota
	// StatusRunning means the rule's work is in flight.
	StatusRunning
	// StatusSucceeded means the rule completed successfully (or was
	// satisfied from cache).
	StatusSucceeded
	// StatusFailed means the rule's work failed, or a dependency's failure
	// cascaded to it.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
