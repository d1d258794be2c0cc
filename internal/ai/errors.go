package ai

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrQuotaExceeded marks rate limit and quota rejections.
	ErrQuotaExceeded = errors.New("generation quota exceeded")
	// ErrTransient marks failures worth retrying: network trouble and 5xx.
	ErrTransient = errors.New("transient generation service failure")
	// ErrRejected marks permanent rejections of a request or file.
	ErrRejected = errors.New("request rejected by generation service")

	ErrEmptyResponse = errors.New("generation service returned no candidates")
)

// IsTransient reports whether err is worth another attempt. Quota errors
// count as transient for uploads and polling.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classifyStatus maps an HTTP status code onto the error taxonomy.
func classifyStatus(status int) error {
	switch {
	case status == 429:
		return ErrQuotaExceeded
	case status >= 500, status == 408:
		return ErrTransient
	case status >= 400:
		return ErrRejected
	default:
		return nil
	}
}
