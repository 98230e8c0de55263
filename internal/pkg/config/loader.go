// Package config loads environment variables with validation and
// fall-back-to-default semantics. Loaders never fail: an invalid value is
// replaced by the default and reported as a warning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadResult is the outcome of loading one variable.
type LoadResult[T any] struct {
	Value T
	// Warning is set when FallbackApplied is true.
	Warning         string
	FallbackApplied bool
}

// LoadEnvString returns the variable, or defaultValue when it is unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return defaultValue
}

// LoadEnv reads envKey, parses it and validates the result. An unset
// variable yields defaultValue without a warning. validator may be nil.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnv[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) LoadResult[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return LoadResult[T]{Value: defaultValue}
	}

	fallback := func(err error) LoadResult[T] {
		return LoadResult[T]{
			Value:           defaultValue,
			Warning:         fmt.Sprintf("Invalid %s='%s': %v, falling back to default '%v'", envKey, raw, err, defaultValue),
			FallbackApplied: true,
		}
	}

	v, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validator != nil {
		if err := validator(v); err != nil {
			return fallback(err)
		}
	}
	return LoadResult[T]{Value: v}
}

// LoadEnvWithFallback validates a string variable.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) LoadResult[string] {
	return LoadEnv(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration parses values such as "30s" or "5m".
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) LoadResult[time.Duration] {
	return LoadEnv(envKey, defaultValue, func(s string) (time.Duration, error) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid duration format (expected e.g. '30s', '5m')")
		}
		return d, nil
	}, validator)
}

// LoadEnvInt parses a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) LoadResult[int] {
	return LoadEnv(envKey, defaultValue, func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return n, nil
	}, validator)
}

// LoadEnvFloat parses a decimal number.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) LoadResult[float64] {
	return LoadEnv(envKey, defaultValue, func(s string) (float64, error) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number format")
		}
		return f, nil
	}, validator)
}

// LoadEnvBool accepts the forms understood by strconv.ParseBool.
func LoadEnvBool(envKey string, defaultValue bool) LoadResult[bool] {
	return LoadEnv(envKey, defaultValue, func(s string) (bool, error) {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return b, nil
	}, nil)
}

// LoadEnvList splits a comma-separated variable, dropping empty items.
func LoadEnvList(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if strings.TrimSpace(raw) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
