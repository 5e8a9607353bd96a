package tfc

import "fmt"

// APIError is a non-2xx response from the Terraform Cloud API. The status
// code and body are preserved for operator diagnostics.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("terraform api %s %s failed: %d - %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// TransportError is a network-level failure reaching the API, distinct from
// an HTTP-level rejection.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("terraform api %s %s unreachable: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the poller's wall-clock budget elapsed without
// a resolved plan. The run id is carried for operator follow-up.
type TimeoutError struct {
	RunID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for terraform plan for run %s", e.RunID)
}
