// Package config loads the resilience tuning file of the worker.
//
// The file is YAML and every section is optional; omitted values keep the
// built-in defaults. Durations are Go duration strings ("15s", "2m").
//
//	search:
//	  deadline: 45s
//	  enabled_sources: [remotive, linkedin]
//	sources:
//	  defaults:
//	    timeout: 15s
//	    retry: {max_attempts: 3, strategy: exponential, base_delay: 1s, max_delay: 10s}
//	    breaker: {failure_threshold: 5, recovery_timeout: 60s}
//	  linkedin:
//	    timeout: 20s
//	recovery:
//	  - component: database
//	    triggers: [connection_failure, timeout]
//	    actions: [retry, circuit_breaker, alert]
//	    cooldown: 60s
//	    max_attempts: 3
//	report:
//	  max_age: 24h
//	  max_entries: 5000
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"jobscout/internal/resilience/backoff"
	"jobscout/internal/resilience/circuitbreaker"
	"jobscout/internal/resilience/failure"
	"jobscout/internal/usecase/recovery"
	"jobscout/internal/usecase/report"
	"jobscout/internal/usecase/search"
)

// Duration decodes a Go duration string.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(parsed)
	return nil
}

type retryFile struct {
	MaxAttempts *int      `yaml:"max_attempts"`
	Strategy    *string   `yaml:"strategy"`
	BaseDelay   *Duration `yaml:"base_delay"`
	MaxDelay    *Duration `yaml:"max_delay"`
	Multiplier  *float64  `yaml:"multiplier"`
	Jitter      *bool     `yaml:"jitter"`
	JitterRatio *float64  `yaml:"jitter_ratio"`
}

type breakerFile struct {
	FailureThreshold *uint32   `yaml:"failure_threshold"`
	RecoveryTimeout  *Duration `yaml:"recovery_timeout"`
}

type sourceFile struct {
	Timeout *Duration    `yaml:"timeout"`
	Retry   *retryFile   `yaml:"retry"`
	Breaker *breakerFile `yaml:"breaker"`
}

type strategyFile struct {
	Component   string   `yaml:"component"`
	Triggers    []string `yaml:"triggers"`
	Actions     []string `yaml:"actions"`
	Cooldown    Duration `yaml:"cooldown"`
	MaxAttempts int      `yaml:"max_attempts"`
}

type file struct {
	Search struct {
		Deadline          *Duration `yaml:"deadline"`
		EnabledSources    []string  `yaml:"enabled_sources"`
		EnrichThreshold   *int      `yaml:"enrich_threshold"`
		EnrichParallelism *int      `yaml:"enrich_parallelism"`
	} `yaml:"search"`
	Sources  map[string]sourceFile `yaml:"sources"`
	Recovery []strategyFile        `yaml:"recovery"`
	Report   struct {
		MaxAge               *Duration `yaml:"max_age"`
		MaxEntries           *int      `yaml:"max_entries"`
		SinkTimeout          *Duration `yaml:"sink_timeout"`
		SinkFailureThreshold *int      `yaml:"sink_failure_threshold"`
		SinkCooldown         *Duration `yaml:"sink_cooldown"`
	} `yaml:"report"`
}

// Resilience is the resolved tuning of the worker.
type Resilience struct {
	Search search.Config
	// EnabledSources is empty when every source is enabled.
	EnabledSources  []string
	BreakerDefaults circuitbreaker.Config
	// Breakers holds the per-source breaker overrides.
	Breakers map[string]circuitbreaker.Config
	// Strategies is keyed by component. Entries from the file replace the
	// built-in strategy of the same component.
	Strategies map[string]recovery.Strategy
	Report     report.Config
}

// DefaultResilience returns the built-in tuning.
func DefaultResilience() *Resilience {
	return &Resilience{
		Search:          search.DefaultConfig(),
		BreakerDefaults: circuitbreaker.ExternalAPIConfig(""),
		Breakers:        map[string]circuitbreaker.Config{},
		Strategies:      recovery.DefaultStrategies(),
		Report:          report.DefaultConfig(),
	}
}

// BreakerConfig returns the breaker configuration for the named source.
func (r *Resilience) BreakerConfig(name string) circuitbreaker.Config {
	if cfg, ok := r.Breakers[name]; ok {
		return cfg
	}
	cfg := r.BreakerDefaults
	cfg.Name = name
	return cfg
}

// LoadResilience reads path. An empty path returns the defaults.
func LoadResilience(path string) (*Resilience, error) {
	if path == "" {
		return DefaultResilience(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resilience config: %w", err)
	}
	r, err := ParseResilience(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// ParseResilience decodes and validates a resilience document. Unknown
// keys are rejected.
func ParseResilience(data []byte) (*Resilience, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode resilience config: %w", err)
	}

	r := DefaultResilience()
	var errs []error

	if f.Search.Deadline != nil {
		r.Search.Deadline = time.Duration(*f.Search.Deadline)
	}
	if f.Search.EnrichThreshold != nil {
		r.Search.EnrichThreshold = *f.Search.EnrichThreshold
	}
	if f.Search.EnrichParallelism != nil {
		r.Search.EnrichParallelism = *f.Search.EnrichParallelism
	}
	r.EnabledSources = f.Search.EnabledSources
	if r.Search.Deadline <= 0 {
		errs = append(errs, fmt.Errorf("search.deadline must be positive"))
	}

	if def, ok := f.Sources["defaults"]; ok {
		r.Search.Defaults = applySource(r.Search.Defaults, def)
		r.BreakerDefaults = applyBreaker(r.BreakerDefaults, def.Breaker)
	}
	errs = append(errs, validateSettings("sources.defaults", r.Search.Defaults))

	for _, name := range slices.Sorted(maps.Keys(f.Sources)) {
		if name == "defaults" {
			continue
		}
		src := f.Sources[name]
		settings := applySource(r.Search.Defaults, src)
		if r.Search.Sources == nil {
			r.Search.Sources = make(map[string]search.SourceSettings)
		}
		r.Search.Sources[name] = settings
		errs = append(errs, validateSettings("sources."+name, settings))

		if src.Breaker != nil {
			cfg := applyBreaker(r.BreakerDefaults, src.Breaker)
			cfg.Name = name
			r.Breakers[name] = cfg
			errs = append(errs, cfg.Validate())
		}
	}
	probe := r.BreakerDefaults
	probe.Name = "defaults"
	errs = append(errs, probe.Validate())

	for i, sf := range f.Recovery {
		s, err := toStrategy(sf)
		if err != nil {
			errs = append(errs, fmt.Errorf("recovery[%d]: %w", i, err))
			continue
		}
		r.Strategies[s.Component] = s
	}

	applyReport(&r.Report, &f)
	if r.Report.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("report.max_entries must be at least 1"))
	}
	if r.Report.MaxAge <= 0 {
		errs = append(errs, fmt.Errorf("report.max_age must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

func applySource(base search.SourceSettings, f sourceFile) search.SourceSettings {
	if f.Timeout != nil {
		base.Timeout = time.Duration(*f.Timeout)
	}
	if f.Retry != nil {
		base.Policy = applyRetry(base.Policy, f.Retry)
	}
	return base
}

func applyRetry(p backoff.Policy, f *retryFile) backoff.Policy {
	if f.MaxAttempts != nil {
		p.MaxAttempts = *f.MaxAttempts
	}
	if f.Strategy != nil {
		// Invalid names surface through validateSettings.
		if s, err := backoff.ParseStrategy(*f.Strategy); err == nil {
			p.Strategy = s
		} else {
			p.Strategy = backoff.Strategy(-1)
		}
	}
	if f.BaseDelay != nil {
		p.BaseDelay = time.Duration(*f.BaseDelay)
	}
	if f.MaxDelay != nil {
		p.MaxDelay = time.Duration(*f.MaxDelay)
	}
	if f.Multiplier != nil {
		p.Multiplier = *f.Multiplier
	}
	if f.Jitter != nil {
		p.Jitter = *f.Jitter
	}
	if f.JitterRatio != nil {
		p.JitterRatio = *f.JitterRatio
	}
	return p
}

func applyBreaker(cfg circuitbreaker.Config, f *breakerFile) circuitbreaker.Config {
	if f == nil {
		return cfg
	}
	if f.FailureThreshold != nil {
		cfg.FailureThreshold = *f.FailureThreshold
	}
	if f.RecoveryTimeout != nil {
		cfg.RecoveryTimeout = time.Duration(*f.RecoveryTimeout)
	}
	return cfg
}

func validateSettings(field string, s search.SourceSettings) error {
	var errs []error
	if s.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if s.Policy.Strategy < backoff.Exponential || s.Policy.Strategy > backoff.Fibonacci {
		errs = append(errs, fmt.Errorf("unknown retry strategy"))
	}
	if err := s.Policy.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	return nil
}

func toStrategy(f strategyFile) (recovery.Strategy, error) {
	s := recovery.Strategy{
		Component:   f.Component,
		Cooldown:    time.Duration(f.Cooldown),
		MaxAttempts: f.MaxAttempts,
	}
	for _, t := range f.Triggers {
		kind, err := failure.ParseKind(t)
		if err != nil {
			return s, err
		}
		s.Triggers = append(s.Triggers, kind)
	}
	for _, a := range f.Actions {
		action, err := recovery.ParseAction(a)
		if err != nil {
			return s, err
		}
		s.Actions = append(s.Actions, action)
	}
	return s, s.Validate()
}

func applyReport(cfg *report.Config, f *file) {
	if f.Report.MaxAge != nil {
		cfg.MaxAge = time.Duration(*f.Report.MaxAge)
	}
	if f.Report.MaxEntries != nil {
		cfg.MaxEntries = *f.Report.MaxEntries
	}
	if f.Report.SinkTimeout != nil {
		cfg.SinkTimeout = time.Duration(*f.Report.SinkTimeout)
	}
	if f.Report.SinkFailureThreshold != nil {
		cfg.SinkFailureThreshold = *f.Report.SinkFailureThreshold
	}
	if f.Report.SinkCooldown != nil {
		cfg.SinkCooldown = time.Duration(*f.Report.SinkCooldown)
	}
}
