package annotation

import "errors"

// Sentinel errors returned by the package.
var (
	// ErrSchema indicates malformed annotation configuration. It is fatal
	// and is returned before any file is scanned.
	ErrSchema = errors.New("invalid annotation schema")
	// ErrInvalidOption indicates an invalid configuration value, such as a
	// grammar name missing from the [Registry].
	ErrInvalidOption = errors.New("invalid option")
	ErrReadInput     = errors.New("read input")
	ErrWriteOutput   = errors.New("write output")
	// ErrLintFailed is returned by callers that treat a non-empty violation
	// list as a failed run.
	ErrLintFailed = errors.New("linting failed")
)
