package v1

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/duynhne/user-web/internal/core/domain"
)

// parseUserID reads a path identifier. Only positive integers name a user.
func parseUserID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("parse %q: %w", raw, domain.ErrInvalidID)
	}
	return id, nil
}

// sanitizeFormError returns a browser-safe message for a form body that
// could not be bound. Raw parse errors never reach the page.
func sanitizeFormError(err error) string {
	var escErr url.EscapeError
	if errors.As(err, &escErr) {
		return "Malformed form encoding"
	}
	return "Invalid request"
}
