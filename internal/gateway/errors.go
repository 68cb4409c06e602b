package gateway

import "fmt"

// retryableStatuses are the upstream responses worth another attempt. Any
// other non-2xx status is permanent and aborts immediately.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
	520: true,
	522: true,
	524: true,
}

// RetryableStatus reports whether an upstream status code is retryable.
func RetryableStatus(status int) bool {
	return retryableStatuses[status]
}

// Error is a classified gateway failure. Status 0 means no response was
// received (network or timeout).
type Error struct {
	Endpoint  string
	Status    int
	Retryable bool
	Attempts  int
	Err       error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("woocommerce %s failed after %d attempt(s): %v", e.Endpoint, e.Attempts, e.Err)
	}
	return fmt.Sprintf("woocommerce %s returned %d after %d attempt(s): %v", e.Endpoint, e.Status, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
