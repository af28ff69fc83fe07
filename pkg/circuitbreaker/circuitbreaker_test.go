package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", Timeout: time.Hour, FailureThreshold: 2}, nil)

	calls := 0
	fail := func() error { calls++; return errBoom }

	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.Equal(t, "open", cb.State())

	assert.ErrorIs(t, cb.Execute(fail), ErrOpen)
	assert.Equal(t, 2, calls)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", Timeout: time.Hour, FailureThreshold: 2}, nil)

	assert.Error(t, cb.Execute(func() error { return errBoom }))
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Error(t, cb.Execute(func() error { return errBoom }))
	assert.Equal(t, "closed", cb.State())
}

func TestBreakerIgnoresNonFailures(t *testing.T) {
	errCaller := errors.New("bad input")
	cb := NewCircuitBreaker(Settings{
		Name:             "test",
		Timeout:          time.Hour,
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, errCaller) },
	}, nil)

	assert.ErrorIs(t, cb.Execute(func() error { return errCaller }), errCaller)
	assert.Equal(t, "closed", cb.State())
}
