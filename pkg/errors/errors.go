package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	// CodeRowSkippable marks legacy rows whose source file is gone. Never logged.
	CodeRowSkippable Code = "ROW_SKIPPABLE"
	// CodeAssetCreation marks a per-row asset creation failure. Logged, row skipped.
	CodeAssetCreation Code = "ASSET_CREATION_FAILURE"
	// CodeFatal marks bulk or structural failures that abort the run.
	CodeFatal      Code = "FATAL"
	CodeValidation Code = "VALIDATION_ERROR"
	CodeConflict   Code = "CONFLICT"
	CodeNotFound   Code = "NOT_FOUND"
	CodeInternal   Code = "INTERNAL_ERROR"
	CodeDependency Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	Recoverable   bool
	ExitCode      int
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeRowSkippable: {
		Recoverable:   true,
		ExitCode:      0,
		PublicMessage: "row skipped",
	},
	CodeAssetCreation: {
		Recoverable:   true,
		ExitCode:      0,
		PublicMessage: "asset creation failed",
	},
	CodeFatal: {
		Recoverable:   false,
		ExitCode:      1,
		PublicMessage: "migration aborted",
	},
	CodeValidation: {
		Recoverable:   false,
		ExitCode:      2,
		PublicMessage: "validation failed",
	},
	CodeConflict: {
		Recoverable:   false,
		ExitCode:      3,
		PublicMessage: "migration already running",
	},
	CodeNotFound: {
		Recoverable:   true,
		ExitCode:      0,
		PublicMessage: "resource not found",
	},
	CodeInternal: {
		Recoverable:   false,
		ExitCode:      1,
		PublicMessage: "internal error",
	},
	CodeDependency: {
		Recoverable:   false,
		ExitCode:      4,
		PublicMessage: "dependency unavailable",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether err carries the provided code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var typed *Error
		if !stdErrors.As(err, &typed) {
			return false
		}
		if typed.code == code {
			return true
		}
		err = typed.cause
	}
	return false
}
