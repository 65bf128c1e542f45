package estimator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle-checkpoint-backend/internal/logger"
)

// Image is a captured dashboard photo.
type Image struct {
	Data        []byte
	ContentType string
}

// Estimate is a point estimate read off a dashboard photo. Either value may be missing.
type Estimate struct {
	Odometer    *int `json:"odometer,omitempty"`
	FuelPercent *int `json:"fuel_percent,omitempty"`
}

type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
	KindUnreadable  ErrorKind = "unreadable"
	KindRejected    ErrorKind = "rejected"
)

var ErrDisabled = errors.New("condition estimation is disabled")

// EstimationError explains why no estimate could be produced.
type EstimationError struct {
	Kind ErrorKind
	Err  error
}

func (e *EstimationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("estimation %s", e.Kind)
	}
	return fmt.Sprintf("estimation %s: %v", e.Kind, e.Err)
}

func (e *EstimationError) Unwrap() error { return e.Err }

// Result is either an Estimate or an EstimationError, never both.
type Result struct {
	Estimate Estimate
	Err      *EstimationError
}

func Success(e Estimate) Result { return Result{Estimate: e} }

func Failure(kind ErrorKind, err error) Result {
	return Result{Err: &EstimationError{Kind: kind, Err: err}}
}

func (r Result) OK() bool { return r.Err == nil }

// OdometerOr returns the estimated odometer or def when there is none.
func (r Result) OdometerOr(def int) int {
	if r.Err != nil || r.Estimate.Odometer == nil {
		return def
	}
	return *r.Estimate.Odometer
}

// FuelPercentOr returns the estimated fuel level or def when there is none.
func (r Result) FuelPercentOr(def int) int {
	if r.Err != nil || r.Estimate.FuelPercent == nil {
		return def
	}
	return *r.Estimate.FuelPercent
}

// ConditionEstimator infers odometer and fuel level from a dashboard photo.
// Any answer is advisory.
type ConditionEstimator interface {
	Estimate(ctx context.Context, img Image) Result
}

type timeoutEstimator struct {
	next    ConditionEstimator
	timeout time.Duration
}

// WithTimeout bounds every estimation. An expired deadline yields KindTimeout
// even if the wrapped estimator ignores its context.
func WithTimeout(next ConditionEstimator, timeout time.Duration) ConditionEstimator {
	return &timeoutEstimator{next: next, timeout: timeout}
}

func (t *timeoutEstimator) Estimate(ctx context.Context, img Image) Result {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		done <- t.next.Estimate(ctx, img)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warn("Condition estimation timed out", "timeout", t.timeout)
			return Failure(KindTimeout, ctx.Err())
		}
		return Failure(KindUnavailable, ctx.Err())
	}
}

type disabled struct{}

// Disabled always reports the estimator as unavailable, forcing manual entry.
func Disabled() ConditionEstimator { return disabled{} }

func (disabled) Estimate(context.Context, Image) Result {
	return Failure(KindUnavailable, ErrDisabled)
}
