// Package backoff computes retry delays for the exponential, linear, fixed and
// fibonacci strategies. Delay calculation is pure and never sleeps.
package backoff

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Strategy selects how the delay grows with the attempt index.
type Strategy int

const (
	Exponential Strategy = iota
	Linear
	Fixed
	Fibonacci
)

// String returns the lowercase name of the strategy.
func (s Strategy) String() string {
	switch s {
	case Exponential:
		return "exponential"
	case Linear:
		return "linear"
	case Fixed:
		return "fixed"
	case Fibonacci:
		return "fibonacci"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name, case-insensitively.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exponential", "exp":
		return Exponential, nil
	case "linear":
		return Linear, nil
	case "fixed":
		return Fixed, nil
	case "fibonacci", "fib":
		return Fibonacci, nil
	default:
		return Exponential, fmt.Errorf("unknown backoff strategy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Policy is an immutable retry configuration for one call site or operation class.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	Strategy    Strategy
	BaseDelay   time.Duration
	// MaxDelay caps every delay. Zero or negative means uncapped.
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
	// JitterRatio is the symmetric perturbation as a fraction of the delay (0.0 to 1.0).
	JitterRatio float64
}

// Validate checks that the policy can be used by the retry executor.
func (p Policy) Validate() error {
	var errs []error
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts))
	}
	if p.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("base delay must be non-negative, got %v", p.BaseDelay))
	}
	if p.MaxDelay > 0 && p.MaxDelay < p.BaseDelay {
		errs = append(errs, fmt.Errorf("max delay %v is below base delay %v", p.MaxDelay, p.BaseDelay))
	}
	if p.Strategy == Exponential && p.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("multiplier must be >= 1 for exponential backoff, got %v", p.Multiplier))
	}
	if p.JitterRatio < 0 || p.JitterRatio > 1 {
		errs = append(errs, fmt.Errorf("jitter ratio must be between 0 and 1, got %v", p.JitterRatio))
	}
	return errors.Join(errs...)
}

// DefaultPolicy returns a general purpose exponential policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    Exponential,
		BaseDelay:   1 * time.Second,
		MaxDelay:    60 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		JitterRatio: 0.1,
	}
}

// SourcePolicy returns the policy used for job source calls.
// Sources are slow and rate limited, so delays grow quickly.
func SourcePolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    Exponential,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		JitterRatio: 0.1,
	}
}

// DatabasePolicy returns a fast policy for transient connection issues.
func DatabasePolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Strategy:    Exponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    1 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		JitterRatio: 0.1,
	}
}

// QuickPolicy returns a single-retry fixed policy with a brief delay.
func QuickPolicy() Policy {
	return Policy{
		MaxAttempts: 2,
		Strategy:    Fixed,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
		Multiplier:  1.0,
	}
}

// Calculator computes delays using its own random source for jitter.
// It is safe for concurrent use.
type Calculator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCalculator returns a calculator whose jitter is deterministic for seed.
func NewCalculator(seed int64) *Calculator {
	// #nosec G404 -- jitter does not need cryptographic randomness.
	return &Calculator{rng: rand.New(rand.NewSource(seed))}
}

var defaultCalculator = NewCalculator(time.Now().UnixNano())

// Delay returns the delay before the retry that follows attempt (0-based).
func Delay(attempt int, p Policy) time.Duration {
	return defaultCalculator.Delay(attempt, p)
}

// Delay returns the delay before the retry that follows attempt (0-based).
func (c *Calculator) Delay(attempt int, p Policy) time.Duration {
	d := clamp(raw(attempt, p), p.MaxDelay)
	if !p.Jitter || p.JitterRatio <= 0 || d == 0 {
		return d
	}

	c.mu.Lock()
	r := c.rng.Float64()
	c.mu.Unlock()

	ratio := math.Min(p.JitterRatio, 1)
	jittered := float64(d) + float64(d)*ratio*(r*2-1)
	if jittered < 0 {
		return 0
	}
	return toDuration(jittered)
}

// raw returns the unclamped delay in nanoseconds.
func raw(attempt int, p Policy) float64 {
	if attempt < 0 {
		attempt = 0
	}
	base := float64(p.BaseDelay)
	switch p.Strategy {
	case Linear:
		return base * float64(attempt+1)
	case Fixed:
		return base
	case Fibonacci:
		return base * fib(attempt)
	default:
		return base * math.Pow(p.Multiplier, float64(attempt))
	}
}

// fib returns fib(n) with fib(0) = fib(1) = 1. Large values saturate at +Inf.
func fib(n int) float64 {
	a, b := 1.0, 1.0
	for i := 1; i < n; i++ {
		a, b = b, a+b
		if math.IsInf(b, 1) {
			return b
		}
	}
	return b
}

func clamp(ns float64, maxDelay time.Duration) time.Duration {
	if math.IsNaN(ns) || ns <= 0 {
		return 0
	}
	if maxDelay > 0 && ns >= float64(maxDelay) {
		return maxDelay
	}
	return toDuration(ns)
}

func toDuration(ns float64) time.Duration {
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
