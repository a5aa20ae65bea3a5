package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ConfigurationError reports a missing or unusable backend credential.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "llm configuration: " + e.Reason
}

// ErrorKind partitions inference failures for logging and status mapping.
type ErrorKind string

const (
	KindQuota   ErrorKind = "quota-exceeded"
	KindNetwork ErrorKind = "network-unavailable"
	KindTimeout ErrorKind = "timeout"
	KindProcess ErrorKind = "process-failure"
	KindLaunch  ErrorKind = "launch-failure"
	KindUnknown ErrorKind = "unknown"
)

// InferenceError is raised when a backend call fails. Detail is for logs
// only and never returned to clients.
type InferenceError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *InferenceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("inference failed (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("inference failed (%s)", e.Kind)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// classifyCloudError buckets a Gemini call failure into an error kind.
func classifyCloudError(err error) *InferenceError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &InferenceError{Kind: KindTimeout, Detail: "cloud inference deadline exceeded", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &InferenceError{Kind: KindTimeout, Detail: err.Error(), Err: err}
		}
		return &InferenceError{Kind: KindNetwork, Detail: err.Error(), Err: err}
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(lower, "quota"):
		return &InferenceError{Kind: KindQuota, Detail: msg, Err: err}
	case strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "network is unreachable"):
		return &InferenceError{Kind: KindNetwork, Detail: msg, Err: err}
	default:
		return &InferenceError{Kind: KindUnknown, Detail: msg, Err: err}
	}
}
