package observability

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the stack trace. Meant
// for defer statements guarding background work such as scheduled jobs, where
// a panic must not take down the process:
//
//	defer observability.RecoverPanic(logger, "revalidation job")
//
// The panic is not re-raised.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("panic recovered")
	}
}

// MustRecover converts a recovered panic value to an error. Returns nil when
// r is nil, so it can wrap a bare recover() call:
//
//	defer func() { err = observability.MustRecover(recover()) }()
func MustRecover(r interface{}) error {
	if r != nil {
		return fmt.Errorf("panic: %v", r)
	}
	return nil
}
