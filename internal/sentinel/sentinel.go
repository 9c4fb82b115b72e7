package sentinel

var _ error = Error("")

// Error is an immutable error value. Declare sentinels with it as const:
//
//	const ErrNoPID = sentinel.Error("pid file is empty")
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
