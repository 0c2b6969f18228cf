package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error types reported by IsRetryableError.
const (
	ErrTypeJSON           = "json_decode_error"
	ErrTypeNotFound       = "not_found"
	ErrTypeConstraint     = "constraint_violation"
	ErrTypeDBConnection   = "db_connection_error"
	ErrTypeNetworkTimeout = "network_timeout"
	ErrTypeNetwork        = "network_error"
	ErrTypeTimeout        = "timeout"
	ErrTypeCanceled       = "context_canceled"
	ErrTypeUpstream       = "upstream_error"
	ErrTypeMalformed      = "malformed"
	ErrTypeUnknown        = "unknown_error"
)

// Permanent marks an error that retrying cannot fix.
type Permanent struct{ Err error }

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Upstream marks a failed call to an external service.
type Upstream struct {
	Service string
	Status  int
	Err     error
}

func (u *Upstream) Error() string {
	if u.Err != nil {
		return u.Service + " upstream error: " + u.Err.Error()
	}
	return u.Service + " upstream error"
}

func (u *Upstream) Unwrap() error { return u.Err }

// IsRetryableError decides whether a worker should requeue a message.
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	var perm *Permanent
	if errors.As(err, &perm) {
		return false, ErrTypeMalformed
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, ErrTypeJSON
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrTypeNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 23: integrity constraint violation
		if strings.HasPrefix(pgErr.Code, "23") {
			return false, ErrTypeConstraint
		}
		// class 08: connection exception
		if strings.HasPrefix(pgErr.Code, "08") {
			return true, ErrTypeDBConnection
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, ErrTypeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return false, ErrTypeCanceled
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true, ErrTypeNetworkTimeout
		}
		return true, ErrTypeNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, ErrTypeNetworkTimeout
		}
		return true, ErrTypeNetwork
	}

	var up *Upstream
	if errors.As(err, &up) {
		// 4xx other than 429 will fail the same way next time
		if up.Status >= 400 && up.Status < 500 && up.Status != 429 {
			return false, ErrTypeUpstream
		}
		return true, ErrTypeUpstream
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") {
		return true, ErrTypeDBConnection
	}

	return false, ErrTypeUnknown
}

// ShouldRetry allows a retryable error up to maxRetries attempts.
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
