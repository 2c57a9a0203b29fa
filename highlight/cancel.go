package highlight

import "sync/atomic"

// CancelToken is the atomic word a highlight job observes. Setting it
// causes the next iteration step that checks it to stop early with
// status Cancelled. A CancelToken is heap-allocated once per job by the
// Manager and never reused across jobs.
type CancelToken struct {
	set atomic.Bool
}

// Cancel requests the job carrying this token stop at its next
// opportunity.
func (c *CancelToken) Cancel() { c.set.Store(true) }

// Cancelled reports whether Cancel has been called.
func (c *CancelToken) Cancelled() bool { return c.set.Load() }
