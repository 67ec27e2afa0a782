package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIO marks file read failures, detached handles, and cancelled reads.
	ErrIO = errors.New("io error")
	// ErrNetwork marks timeouts, connectivity failures, and blocked requests.
	ErrNetwork = errors.New("network error")
	// ErrNotFound marks identification lookups with no usable match.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks records missing required fields at upload time.
	ErrValidation = errors.New("validation error")
	// ErrRejected marks upload submissions explicitly refused by the server.
	ErrRejected = errors.New("server rejection")
	// ErrConfiguration marks missing credentials or unusable settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrTimeout marks external calls that exceeded their deadline.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrNetwork
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether a stage failure should be retried with backoff
// before being surfaced as terminal. Network trouble and timeouts are
// transient; everything else is not fixed by trying again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// IsBlocking reports whether a failure blocks upload-readiness for the file,
// as opposed to degrading gracefully with partial data.
func IsBlocking(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrConfiguration) || errors.Is(err, ErrRejected)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
