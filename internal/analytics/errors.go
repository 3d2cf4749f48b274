package analytics

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoData indicates that no log rows matched the agent name, version and
// window. Only the summary report treats this as an error; timeline-shaped
// reports return zero-filled payloads instead.
var ErrNoData = errors.New("no analytics data for agent")

// IsUnavailable reports whether err means the store could not be reached, as
// opposed to a query or scan failure. Callers map this to a 503.
func IsUnavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
