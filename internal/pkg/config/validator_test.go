package config

import (
	"testing"
	"time"
)

func TestValidateCronSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"30 5 * * *", false},
		{"*/15 * * * *", false},
		{"@every 5m", false},
		{"@hourly", false},
		{"", true},
		{"* * *", true},
		{"61 * * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			if err := ValidateCronSchedule(tt.schedule); (err != nil) != tt.wantErr {
				t.Errorf("ValidateCronSchedule(%q) error = %v, wantErr %v", tt.schedule, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTimezone(t *testing.T) {
	if err := ValidateTimezone("UTC"); err != nil {
		t.Errorf("UTC: %v", err)
	}
	if err := ValidateTimezone(""); err == nil {
		t.Error("empty timezone accepted")
	}
	if err := ValidateTimezone("Nowhere/Land"); err == nil {
		t.Error("unknown timezone accepted")
	}
}

func TestValidateDuration(t *testing.T) {
	tests := []struct {
		name     string
		d        time.Duration
		min, max time.Duration
		wantErr  bool
	}{
		{"inside", 5 * time.Second, time.Second, time.Minute, false},
		{"at min", time.Second, time.Second, time.Minute, false},
		{"below", time.Millisecond, time.Second, time.Minute, true},
		{"above", time.Hour, time.Second, time.Minute, true},
		{"inverted range", time.Second, time.Minute, time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateDuration(tt.d, tt.min, tt.max); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIntRange(t *testing.T) {
	if err := ValidateIntRange(5, 1, 10); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateIntRange(0, 1, 10); err == nil {
		t.Error("below range accepted")
	}
	if err := ValidateIntRange(11, 1, 10); err == nil {
		t.Error("above range accepted")
	}
}

func TestValidatePositiveDuration(t *testing.T) {
	if err := ValidatePositiveDuration(0); err == nil {
		t.Error("zero accepted")
	}
	if err := ValidatePositiveDuration(time.Nanosecond); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateHTTPURL(t *testing.T) {
	valid := []string{"https://hooks.slack.com/services/x", "http://localhost:8080/hook"}
	invalid := []string{"", "hooks.slack.com", "ftp://example.com", "https://"}
	for _, u := range valid {
		if err := ValidateHTTPURL(u); err != nil {
			t.Errorf("ValidateHTTPURL(%q) = %v", u, err)
		}
	}
	for _, u := range invalid {
		if err := ValidateHTTPURL(u); err == nil {
			t.Errorf("ValidateHTTPURL(%q) accepted", u)
		}
	}
}
