package postcard

import "fmt"

// Code classifies a pipeline failure so the HTTP layer can map it to a
// status without string matching.
type Code string

const (
	CodeMissingParameter     Code = "missing_parameter"
	CodeInputTooLarge        Code = "input_too_large"
	CodeInvalidImage         Code = "invalid_image"
	CodeImageTooSmall        Code = "image_too_small"
	CodePayloadTooLarge      Code = "payload_too_large"
	CodePlacementOutOfBounds Code = "placement_out_of_bounds"
	CodeInternal             Code = "internal_error"
)

// Error is a terminal pipeline failure. All errors returned by
// Generator.Composite are of this type.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}
