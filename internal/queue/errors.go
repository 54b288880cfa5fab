package queue

// tooBusyError signals queue admission timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "generation queue is full" }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy() error { return tooBusyError{} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}
