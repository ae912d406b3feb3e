package errors

import (
	"errors"
)

// As is errors.As narrowed to *Error
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// GetCode extracts the code, OK for nil and Internal for uncoded errors
func GetCode(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return contextCode(err)
}

// GetMessage returns the outermost message
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// GetMeta returns the metadata of the outermost coded error
func GetMeta(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Meta
	}
	return nil
}

// IsNotFound checks for CodeNotFound
func IsNotFound(err error) bool { return GetCode(err) == CodeNotFound }

// IsInvalidArgument checks for CodeInvalidArgument
func IsInvalidArgument(err error) bool { return GetCode(err) == CodeInvalidArgument }

// IsPermissionDenied checks for CodePermissionDenied
func IsPermissionDenied(err error) bool { return GetCode(err) == CodePermissionDenied }

// IsUnavailable checks for CodeUnavailable
func IsUnavailable(err error) bool { return GetCode(err) == CodeUnavailable }

// IsCanceled checks for CodeCanceled
func IsCanceled(err error) bool { return GetCode(err) == CodeCanceled }

// IsDataLoss checks for CodeDataLoss
func IsDataLoss(err error) bool { return GetCode(err) == CodeDataLoss }
