package linking

// Status is the lifecycle state of a linking session.
type Status int

const (
	StatusIdle Status = iota
	StatusAwaitingAuthorizationURL
	StatusAwaitingCallback
	StatusExchangingCode
	StatusSucceeded
	StatusFailed
	StatusCancelled
	StatusTimedOut
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaitingAuthorizationURL:
		return "awaiting_authorization_url"
	case StatusAwaitingCallback:
		return "awaiting_callback"
	case StatusExchangingCode:
		return "exchanging_code"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	}
	return "unknown"
}
