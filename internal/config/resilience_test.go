package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscout/internal/resilience/backoff"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/usecase/recovery"
)

const sampleConfig = `
search:
  deadline: 30s
  enabled_sources: [remotive, linkedin]
  enrich_threshold: 300
sources:
  defaults:
    timeout: 10s
    retry:
      max_attempts: 4
      strategy: linear
      base_delay: 500ms
      max_delay: 5s
    breaker:
      failure_threshold: 4
      recovery_timeout: 2m
  linkedin:
    timeout: 20s
    retry:
      max_attempts: 2
    breaker:
      failure_threshold: 2
recovery:
  - component: database
    triggers: [connection_failure]
    actions: [restart, alert]
    cooldown: 30s
    max_attempts: 5
  - component: cache
    triggers: [connection_failure, timeout]
    actions: [degrade]
    cooldown: 1m
    max_attempts: 1
report:
  max_age: 24h
  max_entries: 500
`

func TestParseResilience(t *testing.T) {
	r, err := ParseResilience([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, r.Search.Deadline)
	assert.Equal(t, 300, r.Search.EnrichThreshold)
	assert.Equal(t, []string{"remotive", "linkedin"}, r.EnabledSources)

	assert.Equal(t, 10*time.Second, r.Search.Defaults.Timeout)
	assert.Equal(t, 4, r.Search.Defaults.Policy.MaxAttempts)
	assert.Equal(t, backoff.Linear, r.Search.Defaults.Policy.Strategy)

	linkedin := r.Search.Sources["linkedin"]
	assert.Equal(t, 20*time.Second, linkedin.Timeout)
	assert.Equal(t, 2, linkedin.Policy.MaxAttempts)
	assert.Equal(t, backoff.Linear, linkedin.Policy.Strategy, "inherits defaults")
	assert.Equal(t, 500*time.Millisecond, linkedin.Policy.BaseDelay)

	assert.Equal(t, uint32(2), r.BreakerConfig("linkedin").FailureThreshold)
	assert.Equal(t, 2*time.Minute, r.BreakerConfig("linkedin").RecoveryTimeout)
	remotive := r.BreakerConfig("remotive")
	assert.Equal(t, "remotive", remotive.Name)
	assert.Equal(t, uint32(4), remotive.FailureThreshold)

	assert.Equal(t, 24*time.Hour, r.Report.MaxAge)
	assert.Equal(t, 500, r.Report.MaxEntries)
}

func TestParseResilience_RecoveryStrategies(t *testing.T) {
	r, err := ParseResilience([]byte(sampleConfig))
	require.NoError(t, err)

	byComponent := r.Strategies
	assert.Len(t, r.Strategies, len(recovery.DefaultStrategies())+1, "database replaced, cache appended")

	db := byComponent[recovery.ComponentDatabase]
	assert.Equal(t, []failure.Kind{failure.ConnectionFailure}, db.Triggers)
	assert.Equal(t, []recovery.Action{recovery.RestartComponent, recovery.AlertAdministrators}, db.Actions)
	assert.Equal(t, 30*time.Second, db.Cooldown)
	assert.Equal(t, 5, db.MaxAttempts)

	assert.Contains(t, byComponent, "cache")
	assert.Contains(t, byComponent, recovery.ComponentExternalAPI)
}

func TestParseResilience_Empty(t *testing.T) {
	r, err := ParseResilience(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultResilience(), r)
}

func TestParseResilience_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad duration", "search:\n  deadline: soon\n"},
		{"unknown key", "search:\n  dedline: 30s\n"},
		{"unknown strategy", "sources:\n  defaults:\n    retry:\n      strategy: random\n"},
		{"zero attempts", "sources:\n  remotive:\n    retry:\n      max_attempts: 0\n"},
		{"zero threshold", "sources:\n  remotive:\n    breaker:\n      failure_threshold: 0\n"},
		{"unknown trigger", "recovery:\n  - component: db\n    triggers: [meteor]\n    actions: [alert]\n    cooldown: 1m\n    max_attempts: 1\n"},
		{"unknown action", "recovery:\n  - component: db\n    triggers: [timeout]\n    actions: [pray]\n    cooldown: 1m\n    max_attempts: 1\n"},
		{"missing cooldown", "recovery:\n  - component: db\n    triggers: [timeout]\n    actions: [alert]\n    max_attempts: 1\n"},
		{"report entries", "report:\n  max_entries: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResilience([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadResilience(t *testing.T) {
	r, err := LoadResilience("")
	require.NoError(t, err)
	assert.Equal(t, DefaultResilience(), r)

	path := filepath.Join(t.TempDir(), "resilience.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
	r, err = LoadResilience(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, r.Search.Deadline)

	_, err = LoadResilience(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
