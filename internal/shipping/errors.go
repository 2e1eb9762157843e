package shipping

// These constants mirror domain error codes to avoid circular imports.
// The handler layer maps these to HTTP status codes.
const (
	codeInternal    = "internal"
	codeInvalid     = "invalid"
	codeUnavailable = "unavailable"
)

// ShippingError represents a shipping-specific error with a code and message.
type ShippingError struct {
	Code    string
	Message string
}

func (e *ShippingError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *ShippingError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *ShippingError) ErrorMessage() string {
	return e.Message
}

func newShippingError(code, message string) *ShippingError {
	return &ShippingError{Code: code, Message: message}
}

var (
	// ErrNegativeTotal is returned when an order total below zero is priced.
	ErrNegativeTotal = newShippingError(codeInvalid, "Order total must not be negative")

	// ErrShipmentRequired is returned when a label is requested without a shipment.
	ErrShipmentRequired = newShippingError(codeInvalid, "Shipment ID is required")

	// ErrNoRates is returned when no shipping rate is available.
	ErrNoRates = newShippingError(codeUnavailable, "No shipping rates available")

	// ErrLabelFailed is returned when a tracking number could not be issued.
	ErrLabelFailed = newShippingError(codeInternal, "Shipping label could not be created")
)
