package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard fields for the linking domain.

// Provider is the canonical provider name ("music", "wearable").
func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

// SessionID identifies one linking attempt.
func SessionID(v string) zap.Field {
	return zap.String("session_id", v)
}

// Outcome is the terminal status of a session.
func Outcome(v string) zap.Field {
	return zap.String("outcome", v)
}

// Endpoint is a backend gateway endpoint path.
func Endpoint(v string) zap.Field {
	return zap.String("endpoint", v)
}

// Status is an HTTP status code.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration of an operation.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// AccountID is the linked external account identifier.
func AccountID(v string) zap.Field {
	return zap.String("account_id", v)
}

// Component identifies the emitting module.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op is the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Key is a credential store key.
func Key(v string) zap.Field {
	return zap.String("key", v)
}

// Err wraps an error field.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// String is a generic string field.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Bool is a generic bool field.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
