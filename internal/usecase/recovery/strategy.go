package recovery

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"jobscout/internal/resilience/failure"
)

// Action is a single recovery step.
type Action int

const (
	// RestartComponent reinitializes the component through its Restarter.
	RestartComponent Action = iota
	// EnableFallbackMode runs the fallback handler and marks the component degraded.
	EnableFallbackMode
	// ActivateCircuitBreaker opens the component's breaker.
	ActivateCircuitBreaker
	// RetryOperation re-runs the component probe once after a brief delay.
	RetryOperation
	// EnableGracefulDegradation marks the component degraded.
	EnableGracefulDegradation
	// AlertAdministrators logs an alert. It always succeeds.
	AlertAdministrators
)

var actionNames = map[Action]string{
	RestartComponent:          "restart",
	EnableFallbackMode:        "fallback",
	ActivateCircuitBreaker:    "circuit_breaker",
	RetryOperation:            "retry",
	EnableGracefulDegradation: "degrade",
	AlertAdministrators:       "alert",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction parses the names used in configuration files.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown recovery action %q", s)
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Strategy maps failures of one component to an ordered list of actions.
type Strategy struct {
	Component string
	// Triggers are the failure kinds that start recovery.
	Triggers []failure.Kind
	Actions  []Action
	// Cooldown is the window in which at most MaxAttempts recoveries run.
	Cooldown    time.Duration
	MaxAttempts int
}

// Validate checks the strategy.
func (s Strategy) Validate() error {
	var errs []error
	if s.Component == "" {
		errs = append(errs, errors.New("component is required"))
	}
	if len(s.Triggers) == 0 {
		errs = append(errs, errors.New("at least one trigger is required"))
	}
	if len(s.Actions) == 0 {
		errs = append(errs, errors.New("at least one action is required"))
	}
	if s.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("cooldown must be positive, got %v", s.Cooldown))
	}
	if s.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", s.MaxAttempts))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("recovery strategy %q: %w", s.Component, err)
	}
	return nil
}

// Triggered reports whether kind is one of the strategy's triggers.
func (s Strategy) Triggered(kind failure.Kind) bool {
	return slices.Contains(s.Triggers, kind)
}

// ForComponent returns a copy of s bound to component.
func (s Strategy) ForComponent(component string) Strategy {
	s.Component = component
	s.Triggers = slices.Clone(s.Triggers)
	s.Actions = slices.Clone(s.Actions)
	return s
}

// Component names with built-in strategies.
const (
	ComponentDatabase    = "database"
	ComponentAgentPool   = "agent-pool"
	ComponentAIModel     = "ai-model"
	ComponentFilesystem  = "filesystem"
	ComponentExternalAPI = "external-api"
)

// DefaultStrategies returns the built-in strategies keyed by component.
// The external-api strategy is a template; bind it to each source with
// ForComponent.
func DefaultStrategies() map[string]Strategy {
	return map[string]Strategy{
		ComponentDatabase: {
			Component:   ComponentDatabase,
			Triggers:    []failure.Kind{failure.ConnectionFailure, failure.Timeout, failure.AuthenticationFailure},
			Actions:     []Action{RetryOperation, ActivateCircuitBreaker, EnableGracefulDegradation, AlertAdministrators},
			Cooldown:    60 * time.Second,
			MaxAttempts: 3,
		},
		ComponentAgentPool: {
			Component:   ComponentAgentPool,
			Triggers:    []failure.Kind{failure.ConnectionFailure, failure.Timeout, failure.Unknown},
			Actions:     []Action{RestartComponent, EnableFallbackMode, AlertAdministrators},
			Cooldown:    120 * time.Second,
			MaxAttempts: 2,
		},
		ComponentAIModel: {
			Component:   ComponentAIModel,
			Triggers:    []failure.Kind{failure.ServiceUnavailable, failure.Timeout, failure.Unknown},
			Actions:     []Action{RetryOperation, EnableFallbackMode, EnableGracefulDegradation},
			Cooldown:    180 * time.Second,
			MaxAttempts: 2,
		},
		ComponentFilesystem: {
			Component:   ComponentFilesystem,
			Triggers:    []failure.Kind{failure.ResourceExhausted, failure.PermissionDenied},
			Actions:     []Action{EnableGracefulDegradation, AlertAdministrators},
			Cooldown:    300 * time.Second,
			MaxAttempts: 1,
		},
		ComponentExternalAPI: {
			Component:   ComponentExternalAPI,
			Triggers:    []failure.Kind{failure.RateLimited, failure.ServiceUnavailable, failure.Timeout},
			Actions:     []Action{ActivateCircuitBreaker, RetryOperation, EnableFallbackMode},
			Cooldown:    600 * time.Second,
			MaxAttempts: 3,
		},
	}
}
