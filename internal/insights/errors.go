package insights

import (
	"errors"
	"fmt"
)

// UpstreamError reports a failed data engine call: network failure, a non-2xx
// gateway status, or a response the client could not make sense of.
type UpstreamError struct {
	Op     string // gateway operation, e.g. "getData"
	Status int    // HTTP status, 0 when the request never completed
	Msg    string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: gateway returned %d: %s", e.Op, e.Status, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
