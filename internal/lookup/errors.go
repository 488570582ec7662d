package lookup

import (
	"context"
	"errors"
	"fmt"
	"net"

	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

// Classify wraps a lookup failure so callers can map it with errors.Is:
// deadline and timeout errors become ErrTimeout, everything else ErrUpstream.
// Errors already classified are returned unchanged.
func Classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apperrors.ErrTimeout) || errors.Is(err, apperrors.ErrUpstream) || errors.Is(err, apperrors.ErrInvalidInput) || errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", what, apperrors.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %v", what, apperrors.ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", what, apperrors.ErrUpstream, err)
}
