package pool

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrUnknownPool is returned when a caller names a pool outside the
// configured set.
var ErrUnknownPool = errors.New("pool: unknown pool")

// OverloadedError reports that admission was denied: no permit became
// available within the caller's queue-wait budget.
type OverloadedError struct {
	Pool string
}

func (e *OverloadedError) Error() string {
	return "pool_overloaded:" + e.Pool
}

// IsOverloaded reports whether err is an admission denial.
func IsOverloaded(err error) bool {
	var oe *OverloadedError
	return errors.As(err, &oe)
}

// ErrKind reduces a transport error to a short stable tag for routing
// reasons and pool state (`error:<pool>:<kind>`).
func ErrKind(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "conn_refused"
	case errors.Is(err, syscall.ECONNRESET):
		return "conn_reset"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	var de *net.DNSError
	if errors.As(err, &de) {
		return "dns_error"
	}
	if err != nil && strings.Contains(err.Error(), "EOF") {
		return "eof"
	}
	return "network_error"
}
