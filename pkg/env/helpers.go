package env

import (
	"strconv"
	"strings"
	"time"
)

// Get returns the value for key or the empty string.
func Get(a Accessor, key string) string {
	value, _ := a.Lookup(key)
	return value
}

// GetDefault returns the value for key or defaultValue when unset or empty.
func GetDefault(a Accessor, key, defaultValue string) string {
	if value, ok := a.Lookup(key); ok && value != "" {
		return value
	}
	return defaultValue
}

// GetBool returns a boolean value or defaultValue when unset.
// "true" (any case) and "1" are true; everything else is false.
func GetBool(a Accessor, key string, defaultValue bool) bool {
	if value, ok := a.Lookup(key); ok && value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

// GetInt returns an integer value or defaultValue when unset or unparseable.
func GetInt(a Accessor, key string, defaultValue int) int {
	if value, ok := a.Lookup(key); ok && value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetDuration returns a duration value or defaultValue when unset or unparseable.
func GetDuration(a Accessor, key string, defaultValue time.Duration) time.Duration {
	if value, ok := a.Lookup(key); ok && value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
