package errors

import "fmt"

// Domain error taxonomy shared by the activation and resolution engines.
// Handlers map these onto HTTP statuses and the codes in errors.go.

// BadRequestError means the inbound payload is missing required data.
type BadRequestError struct {
	Reason string
}

func (e *BadRequestError) Error() string {
	return "bad request: " + e.Reason
}

// NotFoundError covers "no definition", "no matching link" and "no agent
// link". Which of those it was is deliberately not always distinguishable
// when multiple candidate definitions were in play.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return "not found: " + e.Reason
}

// LinkNotActiveError means a link matched the payload's identifier hash but
// its setup is not (or no longer) complete. Surfaced as 403, never treated
// as a mere candidate miss.
type LinkNotActiveError struct {
	WebhookID string
	Status    string
}

func (e *LinkNotActiveError) Error() string {
	return fmt.Sprintf("link for webhook %s is %s, not active", e.WebhookID, e.Status)
}

// ConfigError means a stored definition is malformed. This is an operator
// problem, not a caller problem: it aborts resolution entirely instead of
// skipping the candidate.
type ConfigError struct {
	WebhookID string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("webhook %s misconfigured: %s", e.WebhookID, e.Reason)
}

// InternalError wraps faults that must never be presented as missing setup,
// such as a secret-store count mismatch or an unreachable store.
type InternalError struct {
	Reason string
	Err    error
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("internal: %s: %v", e.Reason, e.Err)
	}
	return "internal: " + e.Reason
}

func (e *InternalError) Unwrap() error { return e.Err }
