package circuitbreaker_test

import (
	"testing"
	"time"

	"github.com/healthwatch/daemon/internal/domain/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := circuitbreaker.New(3, time.Minute)

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, circuitbreaker.Closed, b.State())
	}

	require.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, circuitbreaker.Open, b.State())
}

func TestBreaker_FailFastWhileOpen(t *testing.T) {
	b := circuitbreaker.New(1, time.Hour)

	require.True(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, circuitbreaker.Open, b.State())

	assert.False(t, b.Allow())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	b := circuitbreaker.New(3, time.Minute)

	require.True(t, b.Allow())
	b.RecordFailure()
	require.True(t, b.Allow())
	b.RecordSuccess()
	require.True(t, b.Allow())
	b.RecordFailure()
	require.True(t, b.Allow())
	b.RecordFailure()

	assert.Equal(t, circuitbreaker.Closed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b := circuitbreaker.New(1, 10*time.Millisecond)

	require.True(t, b.Allow())
	b.RecordFailure()
	require.Equal(t, circuitbreaker.Open, b.State())

	time.Sleep(15 * time.Millisecond)

	require.True(t, b.Allow())
	assert.False(t, b.Allow(), "only one probe allowed while half-open")

	b.RecordSuccess()
	assert.Equal(t, circuitbreaker.Closed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := circuitbreaker.New(1, 10*time.Millisecond)

	require.True(t, b.Allow())
	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)

	require.True(t, b.Allow())
	b.RecordFailure()

	assert.Equal(t, circuitbreaker.Open, b.State())
}
