package services

import (
	"context"
	"errors"
	"net"
)

// TransportMarker picks the sentinel for a failed HTTP round trip: deadline
// expiry maps to ErrTimeout, everything else to ErrNetwork.
func TransportMarker(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}
	return ErrNetwork
}
