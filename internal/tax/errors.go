package tax

// These constants mirror domain error codes to avoid circular imports.
const (
	codeInternal = "internal"
	codeInvalid  = "invalid"
)

// TaxError represents a tax-specific error with a code and message.
type TaxError struct {
	Code    string
	Message string
}

func (e *TaxError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *TaxError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *TaxError) ErrorMessage() string {
	return e.Message
}

func newTaxError(code, message string) *TaxError {
	return &TaxError{Code: code, Message: message}
}

var (
	ErrNegativeTaxable = newTaxError(codeInvalid, "taxable amount must not be negative")
	ErrUnavailable     = newTaxError(codeInternal, "tax calculation unavailable")
)
