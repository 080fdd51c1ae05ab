package mock

import "fmt"

// NotFoundError means no entry matched a segment, exactly or by wildcard.
// Path is the directory plus the segment that could not be matched.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("mock path:%s not found", e.Path)
}

// IOError is a failure to list a directory or read the matched script.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConstructionError means the script's outputs do not form a valid HTTP
// response.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "invalid mock response: " + e.Reason
}

// JoinError means the worker running a script never reported back: it
// panicked, or no worker became available.
type JoinError struct {
	Err error
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("mock script worker failed: %v", e.Err)
}

func (e *JoinError) Unwrap() error { return e.Err }
