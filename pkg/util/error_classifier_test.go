package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error = &json.SyntaxError{}
	cases := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"json", fmt.Errorf("decode: %w", syntaxErr), false, ErrTypeJSON},
		{"no rows", fmt.Errorf("load goal: %w", pgx.ErrNoRows), false, ErrTypeNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, false, ErrTypeConstraint},
		{"conn", &pgconn.PgError{Code: "08006"}, true, ErrTypeDBConnection},
		{"deadline", context.DeadlineExceeded, true, ErrTypeTimeout},
		{"canceled", context.Canceled, false, ErrTypeCanceled},
		{"permanent", &Permanent{Err: errors.New("bad")}, false, ErrTypeMalformed},
		{"upstream 503", &Upstream{Service: "llm", Status: 503}, true, ErrTypeUpstream},
		{"upstream 400", &Upstream{Service: "llm", Status: 400}, false, ErrTypeUpstream},
		{"upstream 429", &Upstream{Service: "llm", Status: 429}, true, ErrTypeUpstream},
		{"refused", errors.New("dial tcp: connection refused"), true, ErrTypeDBConnection},
		{"other", errors.New("weird"), false, ErrTypeUnknown},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(c.err)
			assert.Equal(t, c.retryable, retryable)
			assert.Equal(t, c.kind, kind)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}

func TestNilRedisHelpers(t *testing.T) {
	var d *Deduper
	assert.True(t, d.AcquireOnce(context.Background(), "h", "1"))

	rc := NewRetryCounter(nil, 0)
	n, err := rc.IncrementAndGet(context.Background(), FormatRetryKey("h", "1"))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
