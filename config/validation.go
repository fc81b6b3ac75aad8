package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateAPI(&c.API)...)
	errors = append(errors, validateStream(&c.Stream)...)
	errors = append(errors, validatePoll(&c.Poll)...)
	errors = append(errors, validateNotify(&c.Notify)...)
	errors = append(errors, validateHealthServer(&c.HealthServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateAPI(a *APIConfig) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(a.BaseURL) == "" {
		errors = append(errors, ValidationError{
			Field:   "api.base_url",
			Message: "must not be empty",
		})
	}

	return errors
}

func validateStream(s *StreamConfig) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(s.URL) == "" {
		errors = append(errors, ValidationError{
			Field:   "stream.url",
			Message: "must not be empty",
		})
	}

	if s.PingInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "stream.ping_interval",
			Message: "must be at least 1 second",
		})
	}

	if s.ReconnectDelay < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "stream.reconnect_delay",
			Message: "must be at least 1 second",
		})
	}

	if s.MaxReconnectAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "stream.max_reconnect_attempts",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validatePoll(p *PollConfig) []ValidationError {
	var errors []ValidationError

	if p.AlertsInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "poll.alerts_interval",
			Message: "must be at least 1 second",
		})
	}

	if p.NotificationsInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "poll.notifications_interval",
			Message: "must be at least 1 second",
		})
	}

	if p.AlertLimit < 1 {
		errors = append(errors, ValidationError{
			Field:   "poll.alert_limit",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateNotify(n *NotifyConfig) []ValidationError {
	var errors []ValidationError

	if n.HistorySize < 1 {
		errors = append(errors, ValidationError{
			Field:   "notify.history_size",
			Message: "must be at least 1",
		})
	}

	if n.QueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "notify.queue_size",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateHealthServer(hs *HealthServerConfig) []ValidationError {
	var errors []ValidationError

	if hs.Port < 1 || hs.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "health_server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", hs.Port),
		})
	}

	return errors
}
