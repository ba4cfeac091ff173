package autosave

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes autosave configuration errors.
type ErrorCode string

const (
	// ErrCodeInvalidField indicates a field that the record type does not declare.
	ErrCodeInvalidField ErrorCode = "INVALID_FIELD"

	// ErrCodeInvalidPass indicates a pass number outside 0..2.
	ErrCodeInvalidPass ErrorCode = "INVALID_PASS"

	// ErrCodeMissingConfiguration indicates a parameter that generation needs is unset.
	ErrCodeMissingConfiguration ErrorCode = "MISSING_CONFIGURATION"

	// ErrCodeConfigurationMismatch indicates a beamline path/address convention violation.
	ErrCodeConfigurationMismatch ErrorCode = "CONFIGURATION_MISMATCH"
)

// InvalidFieldError is returned by Mark when a field name is not valid for
// the record it is marked on. The registry is left untouched.
type InvalidFieldError struct {
	Record string
	Field  string
	Err    error // validator cause, may be nil
}

func (e *InvalidFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: field %q is not valid for record %q: %v", ErrCodeInvalidField, e.Field, e.Record, e.Err)
	}
	return fmt.Sprintf("%s: field %q is not valid for record %q", ErrCodeInvalidField, e.Field, e.Record)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}

// Code returns ErrCodeInvalidField.
func (e *InvalidFieldError) Code() ErrorCode { return ErrCodeInvalidField }

// InvalidPassError is returned by Mark for a pass outside the three supported passes.
type InvalidPassError struct {
	Pass Pass
}

func (e *InvalidPassError) Error() string {
	return fmt.Sprintf("%s: pass %d out of range (0..%d)", ErrCodeInvalidPass, int(e.Pass), NumPasses-1)
}

// Code returns ErrCodeInvalidPass.
func (e *InvalidPassError) Code() ErrorCode { return ErrCodeInvalidPass }

// MissingConfigurationError reports a parameter that is required at
// generation time but was never set.
type MissingConfigurationError struct {
	// Parameter names the missing value, e.g. "root path".
	Parameter string

	// Context explains why the parameter is needed here (optional).
	Context string
}

func (e *MissingConfigurationError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: autosave %s must be set (%s)", ErrCodeMissingConfiguration, e.Parameter, e.Context)
	}
	return fmt.Sprintf("%s: autosave %s must be set", ErrCodeMissingConfiguration, e.Parameter)
}

// Code returns ErrCodeMissingConfiguration.
func (e *MissingConfigurationError) Code() ErrorCode { return ErrCodeMissingConfiguration }

// ConfigurationMismatchError reports a beamline-mode convention violation.
type ConfigurationMismatchError struct {
	Parameter string
	Value     string
	Want      string // human readable expectation, e.g. `start with "/dls_sw/"`
}

func (e *ConfigurationMismatchError) Error() string {
	return fmt.Sprintf("%s: beamline autosave %s %q should %s", ErrCodeConfigurationMismatch, e.Parameter, e.Value, e.Want)
}

// Code returns ErrCodeConfigurationMismatch.
func (e *ConfigurationMismatchError) Code() ErrorCode { return ErrCodeConfigurationMismatch }

// IsInvalidField reports whether err is or wraps an InvalidFieldError.
func IsInvalidField(err error) bool {
	var fe *InvalidFieldError
	return errors.As(err, &fe)
}

// IsMissingConfiguration reports whether err is or wraps a MissingConfigurationError.
func IsMissingConfiguration(err error) bool {
	var me *MissingConfigurationError
	return errors.As(err, &me)
}

// IsConfigurationMismatch reports whether err is or wraps a ConfigurationMismatchError.
func IsConfigurationMismatch(err error) bool {
	var ce *ConfigurationMismatchError
	return errors.As(err, &ce)
}

// CodeOf extracts the ErrorCode from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var coded interface{ Code() ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
