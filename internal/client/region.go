package client

import (
	"errors"
	"sync/atomic"
)

// ErrStale marks a response that arrived after a newer request for the same
// region had already started; its payload must be discarded.
var ErrStale = errors.New("stale response")

// region tracks one interaction region's in-flight state. Each begin bumps a
// monotonic token; a response is only valid if its token is still current
// when it settles.
type region struct {
	token    atomic.Uint64
	inflight atomic.Int64
}

// begin marks a request started and returns its token.
func (r *region) begin() uint64 {
	r.inflight.Add(1)
	return r.token.Add(1)
}

// end marks a request settled.
func (r *region) end() {
	r.inflight.Add(-1)
}

// current reports whether token belongs to the newest request.
func (r *region) current(token uint64) bool {
	return r.token.Load() == token
}

// isBusy reports whether any request is in flight.
func (r *region) isBusy() bool {
	return r.inflight.Load() > 0
}
