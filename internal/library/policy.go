package library

import (
	"context"
	"time"
)

// RetryPolicy bounds the upload and activation loop for one sync.
type RetryPolicy struct {
	MaxAttempts   int           // state checks per file before giving up
	Interval      time.Duration // fixed wait between checks and upload retries
	UploadRetries int           // extra upload attempts on transient errors
	Deadline      time.Duration // wall-clock bound for the whole sync (0 = none)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   15,
		Interval:      time.Second,
		UploadRetries: 2,
		Deadline:      5 * time.Minute,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Interval < 0 {
		p.Interval = 0
	}
	if p.UploadRetries < 0 {
		p.UploadRetries = 0
	}
	return p
}

// Clock abstracts waiting so tests can run the polling loop instantly.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func RealClock() Clock { return realClock{} }
