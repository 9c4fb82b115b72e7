package process

import "time"

// Stoppable is a process that can be stopped and have its files closed.
type Stoppable interface {
	Stop(timeout time.Duration) error
	Close()
}

// StopCloseAndNil stops *p, closes it and sets it to nil, in that order.
// Close and the nil-out run even when Stop fails; the Stop error is
// returned. A nil p or *p is a no-op.
//
//	var proc *process.BaseProcess
//	err := process.StopCloseAndNil(&proc, time.Second)
func StopCloseAndNil[P interface {
	*E
	Stoppable
}, E any](p *P, timeout time.Duration) error {
	if p == nil || *p == nil {
		return nil
	}
	defer func() {
		(*p).Close()
		*p = nil
	}()
	return (*p).Stop(timeout)
}
