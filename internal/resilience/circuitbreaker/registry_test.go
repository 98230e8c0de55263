package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetCreatesOnce(t *testing.T) {
	r := NewRegistry(nil, nil)

	var wg sync.WaitGroup
	got := make([]*CircuitBreaker, 10)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Get("remotive")
		}(i)
	}
	wg.Wait()

	for _, cb := range got {
		assert.Same(t, got[0], cb)
	}
	assert.Equal(t, []string{"remotive"}, r.Names())
	assert.Equal(t, uint32(5), got[0].Config().FailureThreshold)
}

func TestRegistry_RegisterUsesConfig(t *testing.T) {
	r := NewRegistry(ExternalAPIConfig, nil)

	cb, err := r.Register(DatabaseConfig())
	require.NoError(t, err)
	assert.Equal(t, uint32(3), cb.Config().FailureThreshold)

	again, err := r.Register(Config{Name: "database", FailureThreshold: 9, RecoveryTimeout: time.Second})
	require.NoError(t, err)
	assert.Same(t, cb, again)

	_, err = r.Register(Config{Name: "broken"})
	assert.Error(t, err)
}

func TestRegistry_Status(t *testing.T) {
	r := NewRegistry(func(name string) Config {
		return Config{Name: name, FailureThreshold: 1, RecoveryTimeout: time.Hour}
	}, nil)

	_, _ = r.Get("a").Execute(fail)
	r.Get("b")

	status := r.Status()
	require.Len(t, status, 2)
	assert.Equal(t, StateOpen, status["a"].State)
	assert.Equal(t, uint32(1), status["a"].FailureCount)
	assert.NotNil(t, status["a"].LastFailureTime)
	assert.Equal(t, StateClosed, status["b"].State)
}

func TestRegistry_Trip(t *testing.T) {
	r := NewRegistry(nil, nil)

	assert.Error(t, r.Trip("missing"))
	_, ok := r.Lookup("missing")
	assert.False(t, ok, "Trip must not create breakers")

	r.Get("remotive")
	require.NoError(t, r.Trip("remotive"))
	assert.True(t, r.Get("remotive").IsOpen())
	require.NoError(t, r.Trip("remotive"))
}
