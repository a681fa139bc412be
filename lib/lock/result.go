package lock

// AcquireResult is the value-style outcome of an acquire attempt.
// Contention is not an error: a failed result carries the blocking lock so
// the caller can show who holds the resource (see GetLockedBy).
type AcquireResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// Lock is the acquired (or renewed) lock on success, and the blocking
	// lock on a contention failure. Nil only for rejected requests
	// (e.g. missing user).
	Lock *Lock `json:"lock,omitempty"`
}

// IsSuccessful reports whether the lock was acquired or renewed.
func (r AcquireResult) IsSuccessful() bool {
	return r.Success
}

// GetLockedBy returns the user id of the blocking lock owner on a contention
// failure, or the empty string otherwise.
func (r AcquireResult) GetLockedBy() string {
	if r.Success || r.Lock == nil {
		return ""
	}
	return r.Lock.UserID
}

// Acquired builds a success result.
func Acquired(l *Lock, message string) AcquireResult {
	return AcquireResult{Success: true, Message: message, Lock: l}
}

// Contended builds a failure result carrying the blocking lock.
func Contended(blocking *Lock, message string) AcquireResult {
	return AcquireResult{Success: false, Message: message, Lock: blocking}
}

// Rejected builds a failure result without a blocking lock.
func Rejected(message string) AcquireResult {
	return AcquireResult{Success: false, Message: message}
}
