package config

import (
	"errors"
	"fmt"
)

// ConfigurationError 表示缺失或冲突的运行参数，属于致命错误。
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
}

// Invalid builds a ConfigurationError for key.
func Invalid(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
