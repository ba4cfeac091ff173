package cli

import (
	"errors"

	"github.com/roach88/autosave/internal/autosave"
	"github.com/roach88/autosave/internal/config"
	"github.com/roach88/autosave/internal/record"
)

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Definition or history file not found
	ErrCodeParseFailed = "E003" // Definition is not valid CUE/YAML
	ErrCodeSchema      = "E004" // Definition violates the IOC schema
	ErrCodeDecode      = "E005" // Definition could not be decoded
	ErrCodeBuildFailed = "E006" // Records could not be built
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeHistory     = "E008" // History database error
	ErrCodeRecordTypes = "E009" // Record type schema could not be loaded

	// Autosave errors
	ErrCodeInvalidField   = "E201" // Field not valid for its record type
	ErrCodeInvalidPass    = "E202" // Pass outside 0..2
	ErrCodeMissingConfig  = "E203" // Required autosave setting absent
	ErrCodeConfigMismatch = "E204" // Beamline convention violated
	ErrCodeUnknownField   = "E205" // Record definition uses an unknown type or field

	// Check results
	ErrCodeDrift     = "E301" // Generated output differs from recorded run
	ErrCodeNoHistory = "E302" // No recorded run for the IOC
)

// classify maps an error from loading, building or generating an IOC to
// an error code and exit code. Unreadable inputs are command errors; an
// invalid definition is a failure.
func classify(err error) (code string, exit int) {
	var loadErr *config.LoadError
	if errors.As(err, &loadErr) {
		switch loadErr.Stage {
		case config.StageRead:
			return ErrCodeNotFound, ExitCommandError
		case config.StageParse:
			return ErrCodeParseFailed, ExitFailure
		case config.StageSchema:
			return ErrCodeSchema, ExitFailure
		default:
			return ErrCodeDecode, ExitFailure
		}
	}

	switch autosave.CodeOf(err) {
	case autosave.ErrCodeInvalidField:
		return ErrCodeInvalidField, ExitFailure
	case autosave.ErrCodeInvalidPass:
		return ErrCodeInvalidPass, ExitFailure
	case autosave.ErrCodeMissingConfiguration:
		return ErrCodeMissingConfig, ExitFailure
	case autosave.ErrCodeConfigurationMismatch:
		return ErrCodeConfigMismatch, ExitFailure
	}

	var fieldErr *record.UnknownFieldError
	if errors.As(err, &fieldErr) {
		return ErrCodeUnknownField, ExitFailure
	}
	return ErrCodeGeneric, ExitFailure
}

// fail reports err through the formatter and returns the matching
// ExitError.
func fail(formatter *OutputFormatter, err error) error {
	code, exit := classify(err)
	return failWith(formatter, code, exit, err)
}

func failWith(formatter *OutputFormatter, code string, exit int, err error) error {
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(exit, code, err)
}
