package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and transport errors
	ErrAPIRequest     = fmt.Errorf("API request failed")
	ErrTransport      = fmt.Errorf("network error")
	ErrUpgradeNeeded  = fmt.Errorf("upgrade required")
	ErrPaymentFailed  = fmt.Errorf("payment failed")
	ErrActionPending  = fmt.Errorf("action already in progress")
	ErrReducerClosed  = fmt.Errorf("reducer closed")
	ErrUnknownEntity  = fmt.Errorf("unknown transcript")
	ErrCallbackServed = fmt.Errorf("callback already handled")
	ErrTimeout        = fmt.Errorf("operation timed out")

	// Storage errors
	ErrStorageUnavailable = fmt.Errorf("session storage unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
