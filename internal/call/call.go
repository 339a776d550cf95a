// Package call bounds collaborator calls (store, deploy, blob) with a
// deadline and maps their failures onto the error taxonomy.
package call

import (
	"context"
	stderrors "errors"
	"net"
	"net/url"
	"time"

	"github.com/sitesmith/sitesmith/internal/errors"
)

// DefaultTimeout is the bound applied when a caller passes zero.
const DefaultTimeout = 15 * time.Second

type result[T any] struct {
	val T
	err error
}

// Do races fn against timeout. fn gets a context carrying the deadline; if the
// deadline passes first Do returns a TIMEOUT error without waiting for fn.
// No partial effect is assumed on timeout.
func Do[T any](ctx context.Context, op string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{v, err}
	}()

	var zero T
	select {
	case r := <-done:
		if r.err != nil {
			return zero, Classify(op, timeout, r.err)
		}
		return r.val, nil
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, errors.NewTimeout(op, timeout.Seconds())
		}
		return zero, errors.NewTransport(op, ctx.Err())
	}
}

// Run is Do for calls with no result value.
func Run(ctx context.Context, op string, timeout time.Duration, fn func(context.Context) error) error {
	_, err := Do(ctx, op, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Classify maps a collaborator error: deadline and network timeouts become
// TIMEOUT, other network failures TRANSPORT. SiteErrors and anything else
// pass through unchanged.
func Classify(op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	var sErr *errors.SiteError
	if stderrors.As(err, &sErr) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeout(op, timeout.Seconds())
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.NewTimeout(op, timeout.Seconds())
		}
		return errors.NewTransport(op, err)
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return errors.NewTransport(op, err)
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		return errors.NewTransport(op, err)
	}
	return err
}
