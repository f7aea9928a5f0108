package feed

import (
	"errors"
	"fmt"
)

// Platform error codes with dedicated handling.
const (
	// ErrCodeDuplicatePost is the platform's duplicate-submission rejection:
	// the identical content was already accepted for this author.
	ErrCodeDuplicatePost = 187
	// ErrCodePostNotFound marks a referenced post that no longer resolves.
	ErrCodePostNotFound = 144
)

// APIError is a platform error payload. Code carries the platform's numeric
// error code (0 when the response carried no structured payload).
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "feed api error"
	}
	return fmt.Sprintf("feed api status=%d code=%d message=%s", e.StatusCode, e.Code, e.Message)
}

// IsDuplicatePost reports whether err is the platform's duplicate-submission
// rejection. Callers treat it as success with nothing new created.
func IsDuplicatePost(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == ErrCodeDuplicatePost
}

// IsPostNotFound reports whether err marks a missing/unfetchable post.
func IsPostNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == ErrCodePostNotFound || apiErr.StatusCode == 404
}
