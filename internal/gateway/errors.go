package gateway

import "errors"

var (
	// ErrShuttingDown is returned to any caller whose request was queued or
	// in flight when the gateway was torn down.
	ErrShuttingDown = errors.New("request queue is shutting down")

	// ErrQueueFull is returned by TryExecute when the queue is at capacity.
	// The blocking Execute never returns it.
	ErrQueueFull = errors.New("request queue is full")

	// ErrUnknownService is returned by registry lookups for a service name
	// that was not provisioned at startup.
	ErrUnknownService = errors.New("unknown service")

	// ErrNoName is returned when a gateway config has an empty service name.
	ErrNoName = errors.New("service name is required")

	// ErrJoinTimeout is returned by Shutdown when workers did not exit
	// within the bounded join timeout.
	ErrJoinTimeout = errors.New("workers did not stop within timeout")
)
